package mailer

import (
	"html/template"
	"strings"
)

var verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
    <h1 style="margin: 0;">Verify Your Email</h1>
  </div>
  <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
    <p>Hi {{.Username}},</p>
    <p>Thanks for signing up. Please confirm your email address to activate your account.</p>
    <p style="text-align: center; margin: 30px 0;">
      <a href="{{.Link}}" style="background: #667eea; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Verify Email Address</a>
    </p>
    <p>If the button does not work, copy and paste this link into your browser:</p>
    <p style="word-break: break-all; color: #667eea;">{{.Link}}</p>
    <p style="color: #888; font-size: 12px;">If you did not create an account, you can safely ignore this email.</p>
  </div>
</body>
</html>`))

var passwordResetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
    <h1 style="margin: 0;">Reset Your Password</h1>
  </div>
  <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
    <p>Hi {{.Username}},</p>
    <p>We received a request to reset the password for your account. Click the button below to choose a new one.</p>
    <p style="text-align: center; margin: 30px 0;">
      <a href="{{.Link}}" style="background: #667eea; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
    </p>
    <p>If the button does not work, copy and paste this link into your browser:</p>
    <p style="word-break: break-all; color: #667eea;">{{.Link}}</p>
    <p style="color: #888; font-size: 12px;">If you did not request a password reset, you can safely ignore this email.</p>
  </div>
</body>
</html>`))

type templateData struct {
	Username string
	Link     string
}

func verificationEmailBody(username, link string) string {
	return renderTemplate(verificationTmpl, username, link)
}

func passwordResetEmailBody(username, link string) string {
	return renderTemplate(passwordResetTmpl, username, link)
}

func renderTemplate(tmpl *template.Template, username, link string) string {
	var sb strings.Builder
	_ = tmpl.Execute(&sb, templateData{Username: username, Link: link})
	return sb.String()
}
