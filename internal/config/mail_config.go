package config

type MailConfig interface {
	GetBrevoAPIKey() string
	GetBrevoEndpoint() string
	GetEmailFrom() string
	GetEmailFromName() string
}

type Mail struct{}

var _ MailConfig = Mail{}

func (Mail) GetBrevoAPIKey() string {
	return GetEnv("BREVO_API_KEY", "")
}

func (Mail) GetBrevoEndpoint() string {
	return GetEnv("BREVO_ENDPOINT", "https://api.brevo.com/v3/smtp/email")
}

func (Mail) GetEmailFrom() string {
	return GetEnv("EMAIL_FROM", "noreply@brevo.com")
}

func (Mail) GetEmailFromName() string {
	return GetEnv("EMAIL_FROM_NAME", "WebCraft")
}
