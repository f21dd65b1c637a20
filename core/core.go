// Package core holds the error codes shared by every layer of the agent.
// Callers distinguish failures by Code, never by message text:
//
//	if core.Is(err, core.MissingRequestMetadata) { ... }
//
// or with errors.Is against the exported sentinel values.
package core

import (
	"errors"
	"fmt"
)

// Code identifies an error class.
type Code string

const (
	WalletAlreadyExists         Code = "WalletAlreadyExists"
	WalletAuthFailed            Code = "WalletAuthFailed"
	WalletNotFound              Code = "WalletNotFound"
	WalletNotOpen               Code = "WalletNotOpen"
	KdfParamsMissing            Code = "KdfParamsMissing"
	BackupDecryptFailed         Code = "BackupDecryptFailed"
	BackupParseFailed           Code = "BackupParseFailed"
	BackupFormatInvalid         Code = "BackupFormatInvalid"
	BackupNonceInvalid          Code = "BackupNonceInvalid"
	MissingRequestMetadata      Code = "MissingRequestMetadata"
	InvalidIdentifierFormat     Code = "InvalidIdentifierFormat"
	RestrictionValidationFailed Code = "RestrictionValidationFailed"
	ProofRejected               Code = "ProofRejected"
	EnvelopeExpired             Code = "EnvelopeExpired"
	EnvelopeUnpackFailed        Code = "EnvelopeUnpackFailed"

	DidNotFound            Code = "DidNotFound"
	NotFound               Code = "NotFound"
	AlreadyExists          Code = "AlreadyExists"
	ValidationFailed       Code = "ValidationFailed"
	PredicateNotSatisfied  Code = "PredicateNotSatisfied"
	InvalidCredential      Code = "InvalidCredential"
	InvalidStateTransition Code = "InvalidStateTransition"
)

// Sentinels for errors.Is. Any *Error with the same Code matches them.
var (
	ErrWalletAlreadyExists         = &Error{Code: WalletAlreadyExists}
	ErrWalletAuthFailed            = &Error{Code: WalletAuthFailed}
	ErrWalletNotFound              = &Error{Code: WalletNotFound}
	ErrWalletNotOpen               = &Error{Code: WalletNotOpen}
	ErrKdfParamsMissing            = &Error{Code: KdfParamsMissing}
	ErrBackupDecryptFailed         = &Error{Code: BackupDecryptFailed}
	ErrBackupParseFailed           = &Error{Code: BackupParseFailed}
	ErrBackupFormatInvalid         = &Error{Code: BackupFormatInvalid}
	ErrBackupNonceInvalid          = &Error{Code: BackupNonceInvalid}
	ErrMissingRequestMetadata      = &Error{Code: MissingRequestMetadata}
	ErrInvalidIdentifierFormat     = &Error{Code: InvalidIdentifierFormat}
	ErrRestrictionValidationFailed = &Error{Code: RestrictionValidationFailed}
	ErrProofRejected               = &Error{Code: ProofRejected}
	ErrEnvelopeExpired             = &Error{Code: EnvelopeExpired}
	ErrEnvelopeUnpackFailed        = &Error{Code: EnvelopeUnpackFailed}
	ErrDidNotFound                 = &Error{Code: DidNotFound}
	ErrNotFound                    = &Error{Code: NotFound}
	ErrAlreadyExists               = &Error{Code: AlreadyExists}
	ErrValidationFailed            = &Error{Code: ValidationFailed}
	ErrPredicateNotSatisfied       = &Error{Code: PredicateNotSatisfied}
	ErrInvalidCredential           = &Error{Code: InvalidCredential}
	ErrInvalidStateTransition      = &Error{Code: InvalidStateTransition}
)

// Error is a coded error. Msg is for humans, Code is for programs.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New returns a coded error with a formatted message.
func New(code Code, format string, a ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a coded error wrapping err. A nil err gives nil.
func Wrap(code Code, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf returns the code of the outermost *Error in the chain, or the empty
// Code if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether any error in err's chain carries the code.
func Is(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}
