package scanning

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	notObjectMessage  = "Could not parse as JSON object"
	malformedMessage  = "Invalid JSON format"
	unexpectedMessage = "Error parsing data"
)

// VerificationCodeLength is the number of digits in a derived PIN and the
// minimum identifier length that triggers verification.
const VerificationCodeLength = 6

// identifierKeys are checked in order; the first non-null value wins
var identifierKeys = []string{"DNI", "dni", "Dni", "document_id", "documentId"}

// Parse interprets a scanned payload. It never panics and always returns a
// Result; failures are reported through ErrorMessage and Failure.
func Parse(raw string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = failed(raw, FailureUnexpected, fmt.Sprintf("%s: %v", unexpectedMessage, r))
		}
	}()

	if strings.TrimSpace(raw) == "" {
		return failed(raw, FailureNotStructured, notObjectMessage)
	}

	var probe any
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return failed(raw, FailureMalformedSyntax, fmt.Sprintf("%s: %v", malformedMessage, err))
		}
		return failed(raw, FailureUnexpected, fmt.Sprintf("%s: %v", unexpectedMessage, err))
	}
	if _, ok := probe.(map[string]any); !ok {
		return failed(raw, FailureNotStructured, notObjectMessage)
	}

	// Decode again to keep the source key order
	data := orderedmap.New[string, any]()
	if err := json.Unmarshal([]byte(raw), data); err != nil {
		return failed(raw, FailureUnexpected, fmt.Sprintf("%s: %v", unexpectedMessage, err))
	}

	display, err := formatDisplay(data)
	if err != nil {
		return failed(raw, FailureUnexpected, fmt.Sprintf("%s: %v", unexpectedMessage, err))
	}

	result = Result{
		RawText:        raw,
		IsStructured:   true,
		StructuredData: data,
		DisplayText:    display,
		Failure:        FailureNone,
	}

	id, ok, err := extractIdentifier(data)
	if err != nil {
		return failed(raw, FailureUnexpected, fmt.Sprintf("%s: %v", unexpectedMessage, err))
	}
	if ok {
		result.Identifier = id
		result.HasIdentifier = true
		result.RequiresVerification = utf8.RuneCountInString(id) >= VerificationCodeLength
	}
	return result
}

// extractIdentifier returns the first identifier candidate with a non-null value
func extractIdentifier(data *orderedmap.OrderedMap[string, any]) (string, bool, error) {
	for _, key := range identifierKeys {
		value, present := data.Get(key)
		if !present || value == nil {
			continue
		}
		text, err := stringify(value)
		if err != nil {
			return "", false, fmt.Errorf("stringifying %s: %w", key, err)
		}
		return text, true, nil
	}
	return "", false, nil
}

func stringify(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case json.Number:
		return v.String(), nil
	default:
		return compactJSON(v)
	}
}

// DeriveVerificationCode returns the first six decimal digits of identifier,
// or fewer when it has fewer digits.
func DeriveVerificationCode(identifier string) string {
	var b strings.Builder
	for _, r := range identifier {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == VerificationCodeLength {
			break
		}
	}
	return b.String()
}
