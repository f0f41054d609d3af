// Package listing holds the list-query contract shared by every resource:
// pagination parameters, free-text search predicates, sorting, and the
// paginated response envelope.
package listing

import "strings"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest is the normalized pagination window of a list call.
type PageRequest struct {
	Page  int
	Limit int
}

// ParsePage derives a PageRequest from raw query values. Missing or
// malformed values fall back to defaults; it never fails.
func ParsePage(rawPage, rawLimit string) PageRequest {
	page, ok := parseLeadingInt(rawPage)
	if !ok || page == 0 {
		page = DefaultPage
	}
	page = max(1, page)

	limit, ok := parseLeadingInt(rawLimit)
	if !ok || limit == 0 {
		limit = DefaultLimit
	}
	limit = min(MaxLimit, max(1, limit))

	return PageRequest{Page: page, Limit: limit}
}

// Skip is the number of rows preceding the page.
func (p PageRequest) Skip() int {
	return (p.Page - 1) * p.Limit
}

// parseLeadingInt reads an optionally signed run of leading digits, so
// "2.7" is 2 and "12abc" is 12. It reports false when no digit is found.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		// Saturate instead of overflowing on absurd inputs.
		if n < 1<<31 {
			n = n*10 + int(r-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
