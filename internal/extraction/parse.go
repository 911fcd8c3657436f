package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/taxdesk/internal/domain/document"
)

// StripFences removes markdown code fences that model-backed extractors wrap
// around their JSON, then trims anything outside the outermost object.
func StripFences(out []byte) []byte {
	s := strings.ReplaceAll(string(out), "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	return []byte(s)
}

// ParseOutput turns extractor stdout into the payload variant for t.
func ParseOutput(stdout []byte, t document.Type, aliases map[string]string) (document.Payload, error) {
	cleaned := StripFences(stdout)
	if len(bytes.TrimSpace(cleaned)) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrParseFailure)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(cleaned, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: output is not a JSON object", ErrParseFailure)
	}

	if msg, ok := reportedError(fields); ok {
		return nil, fmt.Errorf("%w: extractor reported: %s", ErrProcessFailure, msg)
	}

	p, err := document.Decode(t, applyAliases(fields, aliases))
	if err != nil {
		if errors.Is(err, document.ErrNoRecognisedFields) {
			return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		return nil, err
	}

	return p, nil
}

func reportedError(fields map[string]json.RawMessage) (string, bool) {
	raw, ok := fields["error"]
	if !ok {
		return "", false
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg, msg != ""
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) {
		return "", false
	}
	return string(trimmed), true
}

// An alias never overwrites a key the extractor already emitted canonically.
func applyAliases(fields map[string]json.RawMessage, aliases map[string]string) map[string]json.RawMessage {
	if len(aliases) == 0 {
		return fields
	}

	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if _, isAlias := aliases[k]; !isAlias {
			out[k] = v
		}
	}
	for k, v := range fields {
		target, isAlias := aliases[k]
		if !isAlias {
			continue
		}
		if _, taken := out[target]; taken {
			out[k] = v
			continue
		}
		out[target] = v
	}
	return out
}
