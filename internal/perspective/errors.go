package perspective

import "fmt"

// ErrorKind classifies a failed scoring call. Kinds are tallied by the
// pipeline and reported in the run summary; none of them abort a run.
type ErrorKind string

const (
	KindRateLimit           ErrorKind = "RATE_LIMIT"
	KindQuotaExceeded       ErrorKind = "QUOTA_EXCEEDED"
	KindLanguageUnsupported ErrorKind = "LANGUAGE_UNSUPPORTED"
	KindMalformedRequest    ErrorKind = "MALFORMED_REQUEST"
	KindTransport           ErrorKind = "TRANSPORT"
	KindDecodeFailure       ErrorKind = "DECODE_FAILURE"
)

// ClassifyError is a failed scoring call with its classified kind. ErrorType
// preserves the raw machine-readable type from the API response when one was
// present.
type ClassifyError struct {
	Kind      ErrorKind
	ErrorType string
	Message   string
	Err       error
}

func (e *ClassifyError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("perspective: %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("perspective: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("perspective: %s", e.Kind)
}

func (e *ClassifyError) Unwrap() error {
	return e.Err
}

// classifyErrorType maps the machine-readable errorType from a comment
// analyzer error response to a kind. Unknown types fall back by HTTP-level
// status classification in the client.
func classifyErrorType(errorType string) (ErrorKind, bool) {
	switch errorType {
	case "RATE_LIMIT_EXCEEDED":
		return KindRateLimit, true
	case "QUOTA_EXCEEDED":
		return KindQuotaExceeded, true
	case "LANGUAGE_NOT_SUPPORTED_BY_ATTRIBUTE", "UNSUPPORTED_LANGUAGE":
		return KindLanguageUnsupported, true
	case "COMMENT_EMPTY", "INVALID_ARGUMENT", "MISSING_FIELD", "TEXT_TOO_LONG":
		return KindMalformedRequest, true
	}
	return "", false
}

// classifyStatus maps a google.rpc error status to a kind when no errorType
// detail was present.
func classifyStatus(status string) ErrorKind {
	switch status {
	case "RESOURCE_EXHAUSTED":
		return KindQuotaExceeded
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION":
		return KindMalformedRequest
	default:
		return KindTransport
	}
}
