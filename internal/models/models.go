package models

import (
	"time"
)

// Bibliography holds the structured citation fields of a paper, built from
// CSL-JSON (Crossref) or from the YAML front matter of a converted file.
type Bibliography struct {
	Title       string   `yaml:"title,omitempty" json:"title,omitempty"`
	Authors     []string `yaml:"authors,omitempty" json:"authors,omitempty"`
	DOI         string   `yaml:"doi,omitempty" json:"doi,omitempty"`
	CitationKey string   `yaml:"citation_key,omitempty" json:"citation_key,omitempty"`
	Topic       string   `yaml:"topic,omitempty" json:"topic,omitempty"`
	Journal     string   `yaml:"journal,omitempty" json:"journal,omitempty"`
	Volume      string   `yaml:"volume,omitempty" json:"volume,omitempty"`
	Issue       string   `yaml:"issue,omitempty" json:"issue,omitempty"`
	Pages       string   `yaml:"pages,omitempty" json:"pages,omitempty"`
	Issued      string   `yaml:"issued,omitempty" json:"issued,omitempty"` // ISO date
	URL         string   `yaml:"url,omitempty" json:"url,omitempty"`
}

// Paper represents one source document after normalization.
//
// CitationKey: stable key derived from first author + year + short title.
// DOI:         real DOI when present, else a synthetic "doc:<hash>" id.
// Body:        normalized text (front matter and references removed).
// References:  the stripped reference section, kept for citation extraction.
type Paper struct {
	CitationKey string       `json:"citation_key"`
	DOI         string       `json:"doi"`
	Topic       string       `json:"topic"`
	Bib         Bibliography `json:"bib"`
	Body        string       `json:"body"`
	References  string       `json:"references,omitempty"`
	SourcePath  string       `json:"source_path"`
}

// Chunk is one retrieval unit cut from a paper body.
// A chunk is never mutated after insertion; Hash is recomputed
// whenever Text changes before that point.
type Chunk struct {
	Section    string    `db:"section" json:"section"`         // heading path, " / " joined
	ChunkIndex int       `db:"chunk_index" json:"chunk_index"` // zero-based, per paper
	Text       string    `db:"text" json:"text"`
	Hash       string    `db:"hash" json:"hash"`
	ImageRefs  []string  `db:"image_refs" json:"image_refs,omitempty"`
	Vector     []float32 `db:"vector" json:"-"` // set after embedding
}

// IndexRecord is the one-row-per-paper proof of indexing in papers_meta.
// Its presence (by DOI or citation key) is what makes re-runs skip a paper.
type IndexRecord struct {
	PaperID     string    `db:"paper_id" json:"paper_id"`
	DOI         string    `db:"doi" json:"doi"`
	CitationKey string    `db:"citation_key" json:"citation_key"`
	Topic       string    `db:"topic" json:"topic"`
	Title       string    `db:"title" json:"title"`
	Journal     string    `db:"journal" json:"journal"`
	Issued      string    `db:"issued" json:"issued"`
	URL         string    `db:"url" json:"url"`
	SourcePath  string    `db:"source_path" json:"source_path"`
	Location    string    `db:"location" json:"location"` // routed "<schema>.<table>"
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
