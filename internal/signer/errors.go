package signer

import "errors"

var (
	ErrBackendNotConfigured = errors.New("signer: backend not configured")
	ErrMethodNotSignable    = errors.New("signer: only GET and POST can be signed")
	ErrIdentityParameter    = errors.New("signer: invalid identity parameters")
	ErrPermission           = errors.New("signer: permission denied")
)

// SigningError: бэкенд не смог подписать запрос.
type SigningError struct {
	Backend string
	Err     error
}

func (e *SigningError) Error() string {
	return "signer " + e.Backend + ": " + e.Err.Error()
}

func (e *SigningError) Unwrap() error { return e.Err }

// PremiumFeatureError: функция требует ключа с платным тарифом.
type PremiumFeatureError struct {
	Backend string
	Message string
	Raw     string
}

func (e *PremiumFeatureError) Error() string {
	msg := "sending chats requires an API key with a paid plan"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return "signer " + e.Backend + ": " + msg
}
