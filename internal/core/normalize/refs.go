package normalize

import (
	"regexp"
	"strings"
)

// refHeadingRE matches the closed set of reference-section headings, at any
// heading level, case-insensitive.
var refHeadingRE = regexp.MustCompile(
	`(?im)^#{1,6}\s+(references(\s+and\s+notes)?|bibliography|works\s+cited)\b.*$`)

// StripReferences cuts the body at the first reference-section heading.
// The stripped tail (heading included) is returned separately so citation
// extraction can still see it; it is never indexed. A body without such a
// heading comes back unchanged with an empty tail.
func StripReferences(body string) (kept, refs string) {
	loc := refHeadingRE.FindStringIndex(body)
	if loc == nil {
		return body, ""
	}
	kept = strings.TrimRight(body[:loc[0]], "\n") + "\n"
	refs = body[loc[0]:]
	return kept, refs
}
