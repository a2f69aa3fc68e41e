// Package proctitle names the running process after its subcommand so
// "trendjack:serve" and "trendjack:generate" are distinguishable in ps.
package proctitle

import "strings"

const base = "trendjack"

// Title returns the process title for role. An empty role yields the bare
// binary name.
func Title(role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		return base
	}
	return base + ":" + role
}

// kernelName fits title into the comm field, keeping the role suffix
// readable when the full title is too long.
func kernelName(title string, max int) string {
	if len(title) <= max {
		return title
	}
	if i := strings.IndexByte(title, ':'); i >= 0 && len(title)-i <= max {
		return title[len(title)-max:]
	}
	return title[:max]
}
