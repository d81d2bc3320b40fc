package service

import "errors"

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrNotFound         = errors.New("not found")
	ErrExpired          = errors.New("expired")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Messages surfaced to clients.
const (
	MsgMissingInput      = "missing url or expiration"
	MsgInvalidFormat     = "invalid expiration format"
	MsgPastExpiration    = "expiration in the past"
	MsgInvalidURL        = "invalid url"
	MsgMissingDocumentID = "missing document id"
	MsgInvalidCode       = "invalid code"
	MsgExpired           = "code has expired"
	MsgStoreUnavailable  = "store unavailable"
)

// Error is a typed outcome of an issuance or resolution.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Msg
}

// Unwrap exposes the kind so errors.Is(err, ErrExpired) works.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}
