// Predicate construction for the user listing.
//
// Filters are tagged variants: an exact match or a case-insensitive substring
// match against one whitelisted column. The builder turns a filter list into
// SQL text containing only positional placeholders plus a parallel bound-value
// list. No character of any user-supplied value ever appears in the SQL text;
// even the LIKE wildcards live inside the bound value.

package users

import (
	"fmt"
	"strings"
)

// column names a filterable column. The type is unexported and the only
// values are the constants below, so a Filter cannot be built against an
// identifier that did not come from this whitelist.
type column string

const (
	columnID       column = "id"
	columnUsername column = "username"
	columnEmail    column = "email"
)

// FilterKind tags the variant of a Filter.
type FilterKind int

const (
	// FilterExact matches the column value exactly: column = $n.
	FilterExact FilterKind = iota
	// FilterSubstring matches case-insensitively on a substring:
	// LOWER(column) LIKE $n, with wildcards added inside the bound value.
	FilterSubstring
)

// Filter is a single predicate of a listing query.
type Filter struct {
	Kind  FilterKind
	Col   column
	Value any
}

// ExactID filters on the numeric id column.
func ExactID(id int) Filter {
	return Filter{Kind: FilterExact, Col: columnID, Value: id}
}

// ExactUsername filters on an exact, case-sensitive username.
func ExactUsername(username string) Filter {
	return Filter{Kind: FilterExact, Col: columnUsername, Value: username}
}

// ExactEmail filters on an exact, case-sensitive email.
func ExactEmail(email string) Filter {
	return Filter{Kind: FilterExact, Col: columnEmail, Value: email}
}

// SubstringUsername filters on usernames containing the given text,
// case-insensitively.
func SubstringUsername(text string) Filter {
	return Filter{Kind: FilterSubstring, Col: columnUsername, Value: text}
}

// BuildListQuery assembles the listing SELECT for the given filters.
// Clauses are ANDed in filter order and placeholder positions correspond 1:1
// with the returned args; the row cap is bound as a parameter like everything
// else. With no filters the query is an unconditional scan up to the cap.
// Ordering is explicit (id ASC) so responses are deterministic.
func BuildListQuery(filters []Filter, limit int) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT id, username, email FROM users")

	args := make([]any, 0, len(filters)+1)
	if len(filters) > 0 {
		clauses := make([]string, 0, len(filters))
		for _, f := range filters {
			switch f.Kind {
			case FilterSubstring:
				// The wildcards and lowercasing are applied to the bound
				// value, never to the SQL text.
				args = append(args, "%"+strings.ToLower(fmt.Sprint(f.Value))+"%")
				clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE $%d", f.Col, len(args)))
			default: // FilterExact
				args = append(args, f.Value)
				clauses = append(clauses, fmt.Sprintf("%s = $%d", f.Col, len(args)))
			}
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY id ASC LIMIT $%d", len(args))

	return sb.String(), args
}
