package chat

import (
	"encoding/json"
	"strings"

	"github.com/privylex/privylex/internal/protection"
)

const (
	// PendingText is the provisional assistant message shown while a
	// process call is in flight.
	PendingText = "Analyzing your document..."
	// NoInsightsText is the fallback when the service returns an empty
	// result.
	NoInsightsText = "No insights found for this query."
	// UnableText is the soft-failure message for a malformed result
	// that carries neither a payload nor a task reference.
	UnableText = "Unable to process the document. Please try again."
)

// Normalize converts a raw process result into transcript text. A
// payload is decoded as UTF-8 and trimmed; structured payloads are
// re-serialized into their canonical JSON form; an empty payload falls
// back to the no-insights message; a task reference with no payload is
// surfaced as the message itself rather than treated as an error.
func Normalize(res *protection.ProcessResult) string {
	if res == nil {
		return UnableText
	}
	if res.Result != nil {
		text := strings.TrimSpace(string(res.Result))
		if text == "" {
			return NoInsightsText
		}
		if canonical, ok := canonicalJSON(text); ok {
			return canonical
		}
		return text
	}
	if res.TaskRef != "" {
		return res.TaskRef
	}
	return UnableText
}

// canonicalJSON re-serializes a structured value (object or array)
// so that equivalent results render identically.
func canonicalJSON(text string) (string, bool) {
	if len(text) == 0 || (text[0] != '{' && text[0] != '[') {
		return "", false
	}
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return "", false
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(out), true
}
