package explorer

import (
	"fmt"
	"strings"
)

// cleanSQL strips markdown fences and a trailing semicolon from the model's
// output. Models occasionally wrap queries in code blocks despite being told
// not to.
func cleanSQL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		var kept []string
		for _, line := range strings.Split(raw, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		raw = strings.Join(kept, "\n")
	}
	return strings.TrimSuffix(strings.TrimSpace(raw), ";")
}

// validateReadOnly rejects anything that is not a single SELECT (or WITH)
// statement. Generated SQL runs against the live database, so writes and
// statement chaining are refused outright.
func validateReadOnly(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return fmt.Errorf("generated SQL is empty")
	}
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("generated SQL is not a read-only query: %s", firstLine(trimmed))
	}
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("generated SQL contains multiple statements")
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
