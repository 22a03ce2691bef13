package scanning

import (
	"bytes"
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// formatDisplay renders data for humans: braces on their own lines and one
// top-level field per line. Nested values stay compact. The output is not
// meant to be parsed back.
func formatDisplay(data *orderedmap.OrderedMap[string, any]) (string, error) {
	fields := make([]string, 0, data.Len())
	for pair := data.Oldest(); pair != nil; pair = pair.Next() {
		key, err := compactJSON(pair.Key)
		if err != nil {
			return "", err
		}
		value, err := compactJSON(pair.Value)
		if err != nil {
			return "", err
		}
		fields = append(fields, "  "+key+":"+value)
	}

	if len(fields) == 0 {
		return "{\n}", nil
	}
	return "{\n" + strings.Join(fields, ",\n") + "\n}", nil
}

func compactJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
