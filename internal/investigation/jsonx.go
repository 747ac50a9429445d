package investigation

import (
	"encoding/json"
	"strings"
)

// ExtractOutcome reports how a JSON payload was recovered from model output.
type ExtractOutcome string

const (
	// ExtractDirect means the text parsed as-is (after fence stripping).
	ExtractDirect ExtractOutcome = "direct"
	// ExtractSubstring means the first {...} block parsed.
	ExtractSubstring ExtractOutcome = "substring"
	// ExtractFailed means no usable JSON was found; the payload carries an
	// _error marker and a truncated raw copy.
	ExtractFailed ExtractOutcome = "failed"
)

// rawPreviewLimit caps the raw text echoed back in failure payloads.
const rawPreviewLimit = 2000

// ExtractJSON recovers a JSON object from model output. Models wrap payloads
// in markdown fences or surrounding prose; this strips fences, tries a
// direct parse, then falls back to the first {...} block. Failures return a
// marker payload instead of an error so one bad agent never sinks a case.
func ExtractJSON(s string) (map[string]any, ExtractOutcome) {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{"_error": "empty_output"}, ExtractFailed
	}

	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	var direct any
	if err := json.Unmarshal([]byte(s), &direct); err == nil {
		if obj, ok := direct.(map[string]any); ok {
			return obj, ExtractDirect
		}
		return map[string]any{"value": direct}, ExtractDirect
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		var obj map[string]any
		if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err == nil {
			return obj, ExtractSubstring
		}
		return map[string]any{"_error": "invalid_json", "raw": truncate(s, rawPreviewLimit)}, ExtractFailed
	}

	return map[string]any{"_error": "no_json_found", "raw": truncate(s, rawPreviewLimit)}, ExtractFailed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
