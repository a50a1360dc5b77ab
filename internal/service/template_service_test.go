package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/crm-backend/internal/service"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{
		"name":         "Alice",
		"email":        "alice@example.com",
		"sender_name":  "Dana",
		"company_name": "Acme",
		"empty":        "",
		"loop":         "{{name}}",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"plain key", "Hi {{name}}", "Hi Alice"},
		{"whitespace inside braces", "Hi {{  name }}!", "Hi Alice!"},
		{"repeated key", "{{name}} and {{name}}", "Alice and Alice"},
		{"several keys", "{{name}} <{{email}}> from {{sender_name}} at {{company_name}}",
			"Alice <alice@example.com> from Dana at Acme"},
		{"unknown key stays verbatim", "Hi {{nickname}}", "Hi {{nickname}}"},
		{"keys are case sensitive", "Hi {{Name}}", "Hi {{Name}}"},
		{"empty value", "[{{empty}}]", "[]"},
		{"values are not rescanned", "{{loop}}", "{{name}}"},
		{"non word key is not a placeholder", "{{first-name}}", "{{first-name}}"},
		{"empty braces", "{{}}", "{{}}"},
		{"single braces", "{name}", "{name}"},
		{"no placeholders", "Hello there", "Hello there"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.Substitute(tt.template, vars))
		})
	}
}

func TestSubstitute_NilVarsLeavesTemplate(t *testing.T) {
	assert.Equal(t, "Hi {{name}}", service.Substitute("Hi {{name}}", nil))
}

func TestRenderTemplate(t *testing.T) {
	subject, body := service.RenderTemplate("Hi {{name}}", "Hello {{name}}, from {{sender_name}}",
		map[string]string{"name": "Bob", "sender_name": "Dana"})
	assert.Equal(t, "Hi Bob", subject)
	assert.Equal(t, "Hello Bob, from Dana", body)
}
