// Query-string extraction for the listing endpoint.

package users

import (
	"net/url"
	"strconv"

	"github.com/user/userdir-go/apperror"
)

// ParseListFilters reads the recognized listing parameters out of a query
// string and returns the corresponding filters.
//
// Recognized keys: id, username (alias: name), email, search (alias: q).
// Absent or empty values mean "no filter" for that key. Unrecognized keys are
// ignored; they have no path into query construction. The only typed
// parameter is id, which must parse as an integer; on failure a validation
// error naming the field is returned and nothing is built.
func ParseListFilters(query url.Values) ([]Filter, error) {
	var filters []Filter

	if raw := query.Get("id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperror.NewValidationError("id must be an integer", err)
		}
		filters = append(filters, ExactID(id))
	}

	username := query.Get("username")
	if username == "" {
		username = query.Get("name")
	}
	if username != "" {
		filters = append(filters, ExactUsername(username))
	}

	if email := query.Get("email"); email != "" {
		filters = append(filters, ExactEmail(email))
	}

	search := query.Get("search")
	if search == "" {
		search = query.Get("q")
	}
	if search != "" {
		filters = append(filters, SubstringUsername(search))
	}

	return filters, nil
}
