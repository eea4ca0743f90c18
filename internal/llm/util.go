package llm

import "strings"

// CleanJSONBlock strips a surrounding Markdown code fence from a model
// response. Providers fence JSON often enough, instructions or not, that
// every structured response passes through here before schema validation.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	body = strings.TrimPrefix(body, "json")
	if idx := strings.Index(body, "\n"); idx >= 0 {
		// A short first line without spaces or braces is a language tag,
		// not payload.
		if tag := body[:idx]; len(tag) < 20 && !strings.ContainsAny(tag, " {") {
			body = body[idx+1:]
		}
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
