package tracker

import (
	"strings"

	"partnerdash/api/models"
)

// Describe builds a best-effort identifier for a DOM target: "#id", then
// ".class" for every class, then the lowercase tag, with no separators.
func Describe(t models.EventTarget) string {
	var b strings.Builder
	if id := strings.TrimSpace(t.ID); id != "" {
		b.WriteByte('#')
		b.WriteString(id)
	}
	for _, class := range strings.Fields(t.ClassName) {
		b.WriteByte('.')
		b.WriteString(class)
	}
	b.WriteString(strings.ToLower(t.TagName))
	return b.String()
}
