package database

import (
	"context"
	"fmt"
	"strings"
)

// SplitStatements splits a SQL script into statements on lines ending with
// ';'. Comment lines are dropped; a trailing statement without ';' is kept.
func SplitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}

// ExecScript runs each statement of script in order. With ignoreExisting,
// errors for objects that already exist are skipped. It returns the number
// of statements executed.
func (p *Pool) ExecScript(ctx context.Context, script string, ignoreExisting bool) (int, error) {
	n := 0
	for _, stmt := range SplitStatements(script) {
		if _, err := p.ExecContext(ctx, stmt); err != nil {
			if ignoreExisting && isAlreadyExists(err) {
				continue
			}
			return n, fmt.Errorf("statement %d failed: %w", n+1, err)
		}
		n++
	}
	return n, nil
}

func isAlreadyExists(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Duplicate") || strings.Contains(msg, "already exists")
}
