package sqltool

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultAllowedTables are the only relations the query tool may read. They
// cover a renter's own booking, payment, and freeze history plus the public
// listing data needed to make those rows readable.
var DefaultAllowedTables = []string{
	"bookings",
	"booking_freezes",
	"payments",
	"cars",
	"locations",
	"reviews",
	"users",
}

const defaultRowLimit = 10

var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"GRANT", "REVOKE", "EXEC", "EXECUTE", "CALL", "MERGE", "REPLACE",
}

var forbiddenSubstrings = []string{"--", "/*", "*/", ";", "UNION"}

var (
	forbiddenKeywordRe = compileKeywordPattern(forbiddenKeywords)
	tableRefRe         = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_][a-zA-Z0-9_.]*)`)
	limitRe            = regexp.MustCompile(`(?i)\bLIMIT\b`)
)

func compileKeywordPattern(keywords []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(keywords, "|") + `)\b`)
}

// Validator enforces the read-only contract on model-authored SQL. Checks
// run in a fixed order so rejections are deterministic and loggable.
type Validator struct {
	allowedTables map[string]struct{}
}

func NewValidator(allowedTables []string) *Validator {
	allowed := make(map[string]struct{}, len(allowedTables))
	for _, t := range allowedTables {
		allowed[strings.ToLower(t)] = struct{}{}
	}
	return &Validator{allowedTables: allowed}
}

// Validate returns the sanitized statement that may be executed, or an error
// describing the first rule the input broke. A single trailing semicolon is
// tolerated and stripped; a LIMIT clause is appended when absent.
func (v *Validator) Validate(query string) (string, error) {
	sanitized := strings.TrimSpace(query)
	sanitized = strings.TrimSuffix(sanitized, ";")
	sanitized = strings.TrimSpace(sanitized)

	if sanitized == "" {
		return "", fmt.Errorf("empty query")
	}

	upper := strings.ToUpper(sanitized)
	if !strings.HasPrefix(upper, "SELECT") {
		return "", fmt.Errorf("only SELECT statements are allowed")
	}

	if m := forbiddenKeywordRe.FindString(sanitized); m != "" {
		return "", fmt.Errorf("forbidden keyword: %s", strings.ToUpper(m))
	}

	for _, sub := range forbiddenSubstrings {
		if strings.Contains(upper, strings.ToUpper(sub)) {
			return "", fmt.Errorf("forbidden sequence: %s", sub)
		}
	}

	tables := referencedTables(sanitized)
	if len(tables) == 0 {
		return "", fmt.Errorf("no table reference found")
	}
	for _, table := range tables {
		if _, ok := v.allowedTables[table]; !ok {
			return "", fmt.Errorf("table not allowed: %s", table)
		}
	}

	if !limitRe.MatchString(sanitized) {
		sanitized = fmt.Sprintf("%s LIMIT %d", sanitized, defaultRowLimit)
	}
	return sanitized, nil
}

// referencedTables pulls every FROM/JOIN target, lowercased and stripped of
// any schema qualifier.
func referencedTables(query string) []string {
	matches := tableRefRe.FindAllStringSubmatch(query, -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.ToLower(m[1])
		if idx := strings.LastIndex(name, "."); idx != -1 {
			name = name[idx+1:]
		}
		tables = append(tables, name)
	}
	return tables
}
