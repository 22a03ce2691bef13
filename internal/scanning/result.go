package scanning

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Failure classifies why a payload could not be read as structured data
type Failure int

const (
	FailureNone Failure = iota
	FailureNotStructured
	FailureMalformedSyntax
	FailureUnexpected
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureNotStructured:
		return "not_structured"
	case FailureMalformedSyntax:
		return "malformed_syntax"
	case FailureUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Result is the interpretation of one scanned payload.
// StructuredData and DisplayText are set only when IsStructured is true,
// ErrorMessage only when it is false.
type Result struct {
	RawText              string                              `json:"raw_text"`
	IsStructured         bool                                `json:"is_structured"`
	StructuredData       *orderedmap.OrderedMap[string, any] `json:"structured_data,omitempty"`
	DisplayText          string                              `json:"display_text,omitempty"`
	ErrorMessage         string                              `json:"error_message,omitempty"`
	Failure              Failure                             `json:"-"`
	Identifier           string                              `json:"identifier,omitempty"`
	HasIdentifier        bool                                `json:"has_identifier"`
	RequiresVerification bool                                `json:"requires_verification"`
}

// ClipboardText returns the text to copy when the result is shown
func (r Result) ClipboardText() string {
	if r.IsStructured && r.DisplayText != "" {
		return r.DisplayText
	}
	return r.RawText
}

func failed(raw string, failure Failure, message string) Result {
	return Result{
		RawText:      raw,
		IsStructured: false,
		ErrorMessage: message,
		Failure:      failure,
	}
}
