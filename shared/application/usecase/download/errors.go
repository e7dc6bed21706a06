package download

import (
	"errors"
	"fmt"
)

// Error codes reported by DownloadArtifact.
const (
	CodeInvalidJob     = "INVALID_JOB"
	CodeInvalidURL     = "INVALID_URL"
	CodeNotFound       = "NOT_FOUND"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeStorageFailed  = "STORAGE_FAILED"
	CodeLedgerFailed   = "LEDGER_FAILED"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code      string
	Message   string
	Err       error
	Retryable bool
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error, retryable bool) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}

// AsDomainError extracts a DomainError from err. Errors of any other kind
// are reported as retryable DOWNLOAD_FAILED.
func AsDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return NewDomainError(CodeDownloadFailed, "unexpected failure", err, true)
}
