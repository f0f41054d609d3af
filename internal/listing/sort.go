package listing

import "strings"

// SortOrder is the direction of a sort.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// DefaultSortField is used when the caller names no sort field or one the
// resource does not allow.
const DefaultSortField = "createdAt"

// Sort is a whitelisted sort field (API name) and a direction.
type Sort struct {
	Field string
	Order SortOrder
}

// ParseSort normalizes sortBy/sortOrder. Only fields present in allowed are
// accepted; anything but "asc" sorts descending.
func ParseSort(sortBy, sortOrder string, allowed map[string]string) Sort {
	field := strings.TrimSpace(sortBy)
	if _, ok := allowed[field]; !ok {
		field = DefaultSortField
	}

	order := Desc
	if strings.EqualFold(strings.TrimSpace(sortOrder), string(Asc)) {
		order = Asc
	}
	return Sort{Field: field, Order: order}
}

// Params bundles everything a list call needs apart from resource filters.
type Params struct {
	Page   PageRequest
	Search string
	Sort   Sort
}
