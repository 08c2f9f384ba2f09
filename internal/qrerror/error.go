package qrerror

import "net/http"

// Tags identifying each failure of the QR login flow.
const (
	// TagNotFound is used when no login session matches the given token.
	TagNotFound = "not-found"
	// TagExpired is used when the session's validity window has passed.
	TagExpired = "expired"
	// TagAlreadyConfirmed is used when a confirmed session is confirmed again.
	TagAlreadyConfirmed = "already-confirmed"
	// TagDecode is used when an encoded token cannot be decoded.
	TagDecode = "decode-error"
	// TagUnauthenticated is used when the caller holds no valid device session.
	TagUnauthenticated = "unauthenticated"
	// TagIssuance is used when the one-time sign-in credential cannot be minted.
	TagIssuance = "issuance-failure"
	// TagStorage is used when the token store fails transiently.
	TagStorage = "storage-failure"
)

type (
	// A QRError represents the error format that can be rendered by qrbridge server.
	QRError struct {
		HTTPCode   int `json:"-"`
		FieldError err `json:"error"`
	}

	err struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// StatusCode returns the HTTP status code.
// A QRError built without a code is an internal error.
func StatusCode(err error) int {
	if qrerr, ok := err.(*QRError); ok && qrerr.HTTPCode != 0 {
		return qrerr.HTTPCode
	}
	return http.StatusInternalServerError
}

// Tag returns the error tag or an empty string for foreign errors.
func Tag(e error) string {
	if qrerr, ok := e.(*QRError); ok {
		return qrerr.FieldError.Tag
	}
	return ""
}

// New returns a new QRError with the given message.
func New(message string) *QRError {
	return &QRError{FieldError: err{Message: message}}
}

// NewWithTagCode returns a new QRError with the given code, tag and message.
func NewWithTagCode(code int, tag, message string) *QRError {
	return &QRError{HTTPCode: code, FieldError: err{Tag: tag, Message: message}}
}

// Message returns the user-facing message.
func (e *QRError) Message() string {
	return e.FieldError.Message
}

// Error implements error interface.
func (e *QRError) Error() string {
	return e.FieldError.Message
}
