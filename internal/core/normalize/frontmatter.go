package normalize

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gusmmm/docrag/internal/models"
)

// maxAuthors bounds the author list written back into front matter.
const maxAuthors = 50

// SplitFrontMatter separates a leading YAML front-matter block from the body.
// Returns a zero Bibliography and the unchanged text when no block is present
// or the block does not parse.
func SplitFrontMatter(text string) (models.Bibliography, string) {
	var bib models.Bibliography

	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return bib, text
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "---" {
			continue
		}
		block := strings.Join(lines[1:i], "\n")
		body := strings.Join(lines[i+1:], "\n")
		if err := yaml.Unmarshal([]byte(block), &bib); err != nil {
			return models.Bibliography{}, text
		}
		return bib, body
	}
	return bib, text
}

// BuildFrontMatter renders the bibliographic record as a YAML preamble
// (including the --- markers) ready to prepend to a document body.
func BuildFrontMatter(bib models.Bibliography) string {
	if len(bib.Authors) > maxAuthors {
		bib.Authors = bib.Authors[:maxAuthors]
	}
	out, err := yaml.Marshal(&bib)
	if err != nil {
		return "---\n---\n\n"
	}
	return "---\n" + string(out) + "---\n\n"
}

// MergeBib fills the empty fields of dst from src. Front-matter values win
// over looked-up ones, so a hand-corrected file is never overwritten.
func MergeBib(dst *models.Bibliography, src *models.Bibliography) {
	if src == nil {
		return
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if dst.CitationKey == "" {
		dst.CitationKey = src.CitationKey
	}
	if dst.Topic == "" {
		dst.Topic = src.Topic
	}
	if dst.Journal == "" {
		dst.Journal = src.Journal
	}
	if dst.Volume == "" {
		dst.Volume = src.Volume
	}
	if dst.Issue == "" {
		dst.Issue = src.Issue
	}
	if dst.Pages == "" {
		dst.Pages = src.Pages
	}
	if dst.Issued == "" {
		dst.Issued = src.Issued
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
}
