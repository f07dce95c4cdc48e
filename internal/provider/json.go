package provider

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeJSON unmarshals model-produced JSON into v. Markdown code fences are
// stripped and, on a syntax error, the text is repaired and decoded again.
func DecodeJSON(data string, v any) error {
	data = stripFences(data)
	if data == "" {
		data = "{}"
	}
	err := json.Unmarshal([]byte(data), v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, rerr := jsonrepair.JSONRepair(data)
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
