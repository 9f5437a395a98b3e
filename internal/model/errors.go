package model

import "errors"

var (
	ErrSignatureDeclined = errors.New("signature request declined")
	ErrSessionClosed     = errors.New("wallet session closed")
)

type opError struct {
	Op  string
	Msg string
	Err error
}

func (e opError) Error() string {
	msg := e.Op + ": " + e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e opError) Unwrap() error {
	return e.Err
}

// ValidationError is returned before any network call when a required input is missing.
type ValidationError struct{ opError }

// UploadError is a blob store failure.
type UploadError struct{ opError }

// ConfirmationError means the ledger accepted the submission but the response
// lacks the expected event or shape.
type ConfirmationError struct{ opError }

// RejectionError means the ledger explicitly rejected the call: wrong signer,
// stale state, already completed document.
type RejectionError struct{ opError }

// SignatureDeclinedError means the wallet holder refused to sign.
type SignatureDeclinedError struct{ opError }

// CommitError wraps a failure of the ledger step of the upload/commit flow,
// the underlying taxonomy error stays reachable through errors.As.
type CommitError struct{ opError }

func NewValidationError(op, msg string) error {
	return &ValidationError{opError{Op: op, Msg: msg}}
}

func WrapValidationError(op, msg string, err error) error {
	return &ValidationError{opError{Op: op, Msg: msg, Err: err}}
}

func NewUploadError(op string, err error) error {
	return &UploadError{opError{Op: op, Msg: "blob upload failed", Err: err}}
}

func NewConfirmationError(op, msg string) error {
	return &ConfirmationError{opError{Op: op, Msg: msg}}
}

func NewRejectionError(op, msg string) error {
	return &RejectionError{opError{Op: op, Msg: msg}}
}

func NewSignatureDeclinedError(op string) error {
	return &SignatureDeclinedError{opError{Op: op, Msg: "wallet signature", Err: ErrSignatureDeclined}}
}

func NewCommitError(op string, err error) error {
	return &CommitError{opError{Op: op, Msg: "ledger commit failed", Err: err}}
}

// ErrorKind names the taxonomy class of err, "internal" for anything else.
func ErrorKind(err error) string {
	var (
		validation *ValidationError
		upload     *UploadError
		confirm    *ConfirmationError
		rejection  *RejectionError
		declined   *SignatureDeclinedError
	)

	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &declined):
		return "signature_declined"
	case errors.As(err, &rejection):
		return "rejection"
	case errors.As(err, &confirm):
		return "confirmation"
	case errors.As(err, &upload):
		return "upload"
	default:
		return "internal"
	}
}
