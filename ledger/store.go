package ledger

// One-shot flag names used to pass a message across a restart or page load.
const (
	FlagSessionExpired       = "session_expired"
	FlagEmailVerified        = "email_verified"
	FlagVerificationRequired = "verification_required"
)

// Store persists the ledger and a set of one-shot flags. Read treats a
// malformed persisted ledger as absent rather than an error; Write replaces
// the ledger entirely.
type Store interface {
	Read() (*StoredLedger, error)
	Write(ledger *StoredLedger) error
	Clear() error

	SetFlag(name string) error
	// TakeFlag reports whether the flag was set and clears it, so a flag is
	// observed at most once.
	TakeFlag(name string) (bool, error)
}
