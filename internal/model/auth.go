package model

// Auth error codes surfaced in 401 responses so clients can distinguish
// an expired token (refresh and retry) from a bad one (re-login).
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)
