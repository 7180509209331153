// Package parser extracts JSON payloads from free-form agent output.
package parser

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/runoshun/adw/internal/domain"
)

const snippetLen = 80

var errNoJSON = errors.New("no JSON value found")

// Parser implements domain.ResultParser.
type Parser struct{}

// New creates a new Parser.
func New() *Parser {
	return &Parser{}
}

// Ensure Parser implements domain.ResultParser interface.
var _ domain.ResultParser = (*Parser)(nil)

// ParseJSON decodes the JSON embedded in text into target.
// A fenced ```json block wins; otherwise the span from the first opening
// bracket to the last matching closing bracket is used.
func (p *Parser) ParseJSON(text string, target any) error {
	payload := extract(text)
	if payload == "" {
		return &domain.ParseError{Err: errNoJSON, Snippet: snippet(text)}
	}
	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return &domain.ParseError{Err: err, Snippet: snippet(payload)}
	}
	return nil
}

func extract(text string) string {
	if body, ok := fenced(text); ok {
		return body
	}
	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return ""
	}
	closer := "]"
	if text[start] == '{' {
		closer = "}"
	}
	end := strings.LastIndex(text, closer)
	if end < start {
		return ""
	}
	return text[start : end+1]
}

// fenced returns the body of the first markdown code fence.
func fenced(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open < 0 {
		return "", false
	}
	rest := text[open+3:]
	// Skip the info string (e.g. "json") up to the end of the line.
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return "", false
	}
	rest = rest[nl+1:]
	closing := strings.Index(rest, "```")
	if closing < 0 {
		return "", false
	}
	body := strings.TrimSpace(rest[:closing])
	return body, body != ""
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetLen {
		return s[:snippetLen] + "..."
	}
	return s
}
