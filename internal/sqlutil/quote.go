// Package sqlutil provides identifier quoting for the SQL record stores.
package sqlutil

import (
	"regexp"
	"strings"
)

// Dialect selects the identifier quoting rules.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

// QuoteIdentifier quotes a table or column name for dialect.
// MySQL uses backticks, Postgres double quotes; embedded quote characters are doubled.
// Example: "LinkedIn Dashboards" -> `"LinkedIn Dashboards"` (postgres)
// Example: "my`table" -> "`my``table`" (mysql)
func QuoteIdentifier(dialect Dialect, name string) string {
	if dialect == Postgres {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// validIdentifierRegex accepts letters (including accented ones), digits,
// underscore and inner spaces, as used by spreadsheet-style table names.
var validIdentifierRegex = regexp.MustCompile(`^[\p{L}\p{N}_]+( [\p{L}\p{N}_]+)*$`)

// IsValidIdentifier checks that name only contains letters, digits,
// underscores and single inner spaces.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes name after validating it.
func QuoteIdentifierSafe(dialect Dialect, name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(dialect, name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only letters, digits, underscores and spaces)"
}
