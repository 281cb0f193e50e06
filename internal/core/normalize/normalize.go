// Package normalize turns raw converted markdown into a Paper: front matter
// reconciled, references stripped, identity resolved.
package normalize

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gusmmm/docrag/internal/core/identity"
	"github.com/gusmmm/docrag/internal/models"
)

var nonAlnumRE = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize builds a Paper from raw converted text and an optional
// bibliographic record. Front-matter fields win over the provided record;
// missing bibliography is not an error. Papers without a real DOI get a
// synthetic document id and grey-literature defaults so they still index
// deterministically.
func Normalize(raw string, bib *models.Bibliography, sourcePath string) *models.Paper {
	fm, body := SplitFrontMatter(raw)
	MergeBib(&fm, bib)

	kept, refs := StripReferences(body)
	kept = strings.TrimLeft(kept, "\n")

	doi := identity.NormalizeDOI(fm.DOI)
	key := strings.TrimSpace(fm.CitationKey)

	if !identity.IsRealDOI(doi) {
		// Converted papers often carry their DOI in the opening text
		// rather than in front matter.
		doi = identity.FindDOIInBody(kept)
	}

	if !identity.IsRealDOI(doi) {
		doi = identity.SyntheticDOI(kept)
		if key == "" {
			key = fileKey(sourcePath, doi)
		}
		if fm.Title == "" {
			fm.Title = stem(sourcePath)
		}
		if fm.Journal == "" {
			fm.Journal = "grey-literature"
		}
		if fm.URL == "" {
			fm.URL = "file://" + sourcePath
		}
	} else if key == "" {
		if len(fm.Authors) == 0 && fm.Title == "" {
			// Real DOI but no usable citation fields: an author/title key
			// would degenerate and collide across papers.
			key = fileKey(sourcePath, doi)
		} else {
			var family string
			if len(fm.Authors) > 0 {
				family = identity.FamilyName(fm.Authors[0])
			}
			key = identity.CitationKey(family, identity.YearFromISO(fm.Issued), fm.Title)
		}
	}
	fm.DOI = doi
	fm.CitationKey = key

	return &models.Paper{
		CitationKey: key,
		DOI:         doi,
		Topic:       strings.TrimSpace(fm.Topic),
		Bib:         fm,
		Body:        kept,
		References:  refs,
		SourcePath:  sourcePath,
	}
}

// Merge produces the normalized document text: the reconciled bibliographic
// preamble followed by the reference-stripped body.
func Merge(raw string, bib *models.Bibliography, sourcePath string) string {
	p := Normalize(raw, bib, sourcePath)
	return BuildFrontMatter(p.Bib) + p.Body
}

func stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// fileKey derives a stable key from the source filename and the tail of the
// document identifier, for papers with no bibliographic fields to key on.
func fileKey(sourcePath, doi string) string {
	base := nonAlnumRE.ReplaceAllString(strings.ToLower(stem(sourcePath)), "")
	if base == "" {
		base = "doc"
	}
	tail := doi
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	return base + nonAlnumRE.ReplaceAllString(strings.ToLower(tail), "")
}
