// Package identity derives the stable identifiers the dedup guard keys on:
// normalized DOIs, citation keys and content hashes.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	doiRE      = regexp.MustCompile(`(?i)\b10\.\d{4,9}/[-._;()/:A-Za-z0-9]+\b`)
	doiURLRE   = regexp.MustCompile(`(?i)^https?://(dx\.)?doi\.org/`)
	nonAlnumRE = regexp.MustCompile(`[^a-z0-9]+`)
	wordRE     = regexp.MustCompile(`[A-Za-z0-9]+`)
)

// stopwords dropped from the short-title component of citation keys.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true,
	"in": true, "on": true, "for": true, "to": true, "with": true,
}

// FindDOI returns the first DOI-looking token in text, normalized, or "".
func FindDOI(text string) string {
	m := doiRE.FindString(text)
	if m == "" {
		return ""
	}
	return NormalizeDOI(m)
}

// doiScanLimit bounds body scans to the opening of a document, where a
// paper's own DOI appears. DOIs cited deeper in the text must not win.
const doiScanLimit = 4096

// FindDOIInBody scans the head of a document body for its own DOI.
func FindDOIInBody(body string) string {
	if len(body) > doiScanLimit {
		body = body[:doiScanLimit]
	}
	return FindDOI(body)
}

// NormalizeDOI strips doi.org URL prefixes and surrounding punctuation.
func NormalizeDOI(raw string) string {
	s := strings.TrimSpace(raw)
	s = doiURLRE.ReplaceAllString(s, "")
	s = strings.Trim(s, " \t\r\n.,;)>")
	return s
}

// IsRealDOI reports whether s looks like a registered DOI rather than a
// synthetic document id.
func IsRealDOI(s string) bool {
	return strings.HasPrefix(s, "10.")
}

// SyntheticDOI builds a stable "doc:<hash>" identifier from the document
// body, used for grey literature without a registered DOI.
func SyntheticDOI(body string) string {
	return "doc:" + HashText(body)[:16]
}

// HashText returns the hex sha256 of s. Chunk content hashes use this.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CitationKey builds the persistent key: first author family name, year and
// a short title with stopwords removed, all collapsed to lowercase alnum.
// Example: gaudry + 2025 + "Renal Replacement Therapy ..." ->
// "gaudry2025renalreplacementtherapy".
func CitationKey(family, year, title string) string {
	fam := nonAlnumRE.ReplaceAllString(strings.ToLower(family), "")
	if fam == "" {
		fam = "anon"
	}
	if year == "" {
		year = "0000"
	}
	key := fam + year + ShortTitle(title, 24)
	key = nonAlnumRE.ReplaceAllString(strings.ToLower(key), "")
	if key == "" {
		key = "key"
	}
	return key
}

// ShortTitle concatenates the title words minus stopwords, capped at maxLen.
func ShortTitle(title string, maxLen int) string {
	words := wordRE.FindAllString(strings.ToLower(title), -1)
	var kept []string
	for _, w := range words {
		if !stopwords[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return "art"
	}
	s := strings.Join(kept, "")
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// FamilyName extracts the family-name component from a "Given Family" string.
func FamilyName(author string) string {
	fields := strings.Fields(strings.TrimSpace(author))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// YearFromISO returns the year of an ISO date ("2025-03-01" -> "2025").
func YearFromISO(issued string) string {
	if len(issued) >= 4 {
		return issued[:4]
	}
	return ""
}
