// internal/service/template_service.go
package service

import (
	"regexp"
)

var placeholder = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Substitute replaces every {{ key }} whose key is in vars. Unknown keys stay
// verbatim and substituted values are never rescanned.
func Substitute(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return match
	})
}

// RenderTemplate substitutes into both parts of a template.
func RenderTemplate(subject, body string, vars map[string]string) (string, string) {
	return Substitute(subject, vars), Substitute(body, vars)
}
