package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/adw/internal/domain"
)

func TestParser_ParseJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []domain.TestResult
	}{
		{
			name:  "bare array",
			input: `[{"test_name":"lint","passed":true}]`,
			want:  []domain.TestResult{{TestName: "lint", Passed: true}},
		},
		{
			name:  "json fence",
			input: "Here are the results:\n```json\n[{\"test_name\":\"build\",\"passed\":false,\"error\":\"tsc\"}]\n```\nDone.",
			want:  []domain.TestResult{{TestName: "build", Error: "tsc"}},
		},
		{
			name:  "plain fence",
			input: "```\n[]\n```",
			want:  []domain.TestResult{},
		},
		{
			name:  "surrounding prose",
			input: `I ran everything. [{"test_name":"unit","passed":true}] All good.`,
			want:  []domain.TestResult{{TestName: "unit", Passed: true}},
		},
	}
	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []domain.TestResult
			require.NoError(t, p.ParseJSON(tt.input, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParser_ParseJSON_Object(t *testing.T) {
	var got domain.E2ETestResult
	err := New().ParseJSON("result:\n{\"test_name\":\"login\",\"status\":\"passed\",\"test_path\":\"e2e/login.spec.ts\",\"screenshots\":[]}", &got)
	require.NoError(t, err)
	assert.True(t, got.Passed())
	assert.Equal(t, "e2e/login.spec.ts", got.TestPath)
}

func TestParser_ParseJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "prose only", input: "the tests could not be run"},
		{name: "truncated", input: `[{"test_name":"x", "passed": tr]`},
		{name: "wrong shape", input: `{"test_name":"x"}`},
	}
	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []domain.TestResult
			err := p.ParseJSON(tt.input, &got)
			var parseErr *domain.ParseError
			require.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestSnippet(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	s := snippet(string(long))
	assert.Len(t, s, snippetLen+3)
	assert.Equal(t, "short", snippet("  short \n"))
}
