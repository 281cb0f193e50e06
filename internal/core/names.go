package core

import (
	"regexp"
	"strings"
)

var nameRE = regexp.MustCompile(`[^a-z0-9_]+`)

// SanitizeName collapses a database, collection or topic label to a plain
// snake-case identifier. The router and the store must agree on this form:
// the routed Target is recorded verbatim as the meta location, so the name
// written there has to be the name the store actually uses in DDL.
func SanitizeName(name string) string {
	name = nameRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "x"
	}
	return name
}
