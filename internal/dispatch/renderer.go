// internal/dispatch/renderer.go
package dispatch

import "strings"

// Render substitutes {placeholder} tokens in template with values from
// ctx. Key lookup is case-insensitive. Placeholders without a matching
// key are left in the output untouched — a CSV missing a column should
// not blank out the text, the operator sees exactly what went wrong.
func Render(template string, ctx map[string]string) string {
	if len(ctx) == 0 {
		return template
	}
	keys := make(map[string]string, len(ctx))
	for k, v := range ctx {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		keys[key] = v
	}

	// Single pass over the template so byte offsets always refer to
	// the template itself. Only the extracted key is case-folded.
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end += open
		key := strings.ToLower(rest[open+1 : end])
		if v, ok := keys[key]; ok {
			b.WriteString(rest[:open])
			b.WriteString(v)
		} else {
			b.WriteString(rest[:end+1])
		}
		rest = rest[end+1:]
	}
}
