package authkit

import "errors"

var (
	// ErrUsernameTaken indicates a registration for a username that already exists.
	ErrUsernameTaken = errors.New("credentials.username_taken")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("credentials.invalid")
	// ErrInvalidRegistration indicates an empty username or password.
	ErrInvalidRegistration = errors.New("credentials.invalid_registration")
	// ErrUserNotFound indicates no user matched the identifier.
	ErrUserNotFound = errors.New("credentials.user_not_found")
	// ErrPersistence wraps storage failures that must surface as internal errors.
	ErrPersistence = errors.New("credentials.persistence")

	// ErrRefreshTokenRequired indicates a non-refresh token was presented for a refresh exchange.
	ErrRefreshTokenRequired = errors.New("tokens.refresh_required")
	// ErrEmptyIdentity indicates a token was requested for an empty subject.
	ErrEmptyIdentity = errors.New("tokens.empty_identity")

	// ErrEmptyTokenID indicates a registry call with an empty jti.
	ErrEmptyTokenID = errors.New("revocation.empty_token_id")
	// ErrRegistryClosed indicates the registry was used after Close.
	ErrRegistryClosed = errors.New("revocation.closed")
)
