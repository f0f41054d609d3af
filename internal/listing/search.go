package listing

import "strings"

// Predicate is a case-insensitive substring match of Term against any of
// Fields. The zero Predicate is unconstrained and matches everything.
type Predicate struct {
	Fields []string
	Term   string
}

// Search builds the free-text predicate for the given fields. Only an empty
// query yields the unconstrained predicate; any other query, whitespace
// included, is matched verbatim.
func Search(fields []string, query string) Predicate {
	if query == "" || len(fields) == 0 {
		return Predicate{}
	}
	return Predicate{Fields: fields, Term: query}
}

// IsZero reports whether the predicate places no constraint.
func (p Predicate) IsZero() bool {
	return p.Term == "" || len(p.Fields) == 0
}

// Matches evaluates the predicate in memory. value returns the text of a
// field for the record under test.
func (p Predicate) Matches(value func(field string) string) bool {
	if p.IsZero() {
		return true
	}
	term := strings.ToLower(p.Term)
	for _, f := range p.Fields {
		if strings.Contains(strings.ToLower(value(f)), term) {
			return true
		}
	}
	return false
}

// LikePattern returns the term as an ILIKE "contains" pattern with the LIKE
// metacharacters escaped (backslash is PostgreSQL's default escape).
func (p Predicate) LikePattern() string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(p.Term) + "%"
}
