// Package errors carries structured verification errors: each failure
// names the check that produced it so a caller can decide whether a
// corrected resubmission is meaningful.
package errors

import (
	"errors"
)

// Code identifies the check a permit failed. Verification errors are
// terminal for the submission that produced them: retrying identical
// bytes reproduces the identical failure.
type Code string

const (
	CodeDecode               Code = "decode_error"
	CodeDomainMismatch       Code = "domain_mismatch"
	CodeVersionUnsupported   Code = "version_unsupported"
	CodeExpired              Code = "expired"
	CodeReplayRejected       Code = "replay_rejected"
	CodeSignatureInvalid     Code = "signature_invalid"
	CodeRelayerNotAuthorized Code = "relayer_not_authorized"
	CodeKeyAlgorithmMismatch Code = "key_algorithm_mismatch"
	CodeScopeDenied          Code = "scope_denied"
	CodeFeeExceeded          Code = "fee_exceeded"
)

// PermitError is an error tagged with the failed check
type PermitError interface {
	error
	PermitCode() Code
}

type withCode struct {
	error
	code Code
}

func (w withCode) PermitCode() Code { return w.code }
func (w withCode) Unwrap() error    { return w.error }

// Wrap tags an error with the check it originates from
func Wrap(e error, code Code) PermitError {
	return withCode{error: e, code: code}
}

// CodeOf extracts the check code, or the empty string for untagged errors
func CodeOf(e error) Code {
	var pe PermitError
	if errors.As(e, &pe) {
		return pe.PermitCode()
	}
	return ""
}
