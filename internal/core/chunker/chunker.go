// Package chunker splits normalized markdown into ordered, size-bounded
// retrieval units aligned to heading and paragraph boundaries.
package chunker

import (
	"regexp"
	"strings"

	"github.com/gusmmm/docrag/internal/core/identity"
	"github.com/gusmmm/docrag/internal/models"
)

// DefaultMaxTextLen keeps chunks inside the fixed-width text column of the
// chunk store.
const DefaultMaxTextLen = 7000

var (
	headingRE = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
	imageRE   = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)
)

// Chunker walks a document top-down keeping an explicit heading stack.
// A chunk boundary is emitted on every heading and whenever accumulated
// paragraph text exceeds maxTextLen.
type Chunker struct {
	maxTextLen int
}

func New(maxTextLen int) *Chunker {
	if maxTextLen <= 0 {
		maxTextLen = DefaultMaxTextLen
	}
	return &Chunker{maxTextLen: maxTextLen}
}

// Chunk produces the ordered chunk sequence for a paper body. An empty body
// yields zero chunks. Every chunk carries the heading path active at its
// start, its content hash and the image references of its source paragraph.
func (c *Chunker) Chunk(body string) []models.Chunk {
	lines := strings.Split(body, "\n")

	var (
		sectionStack []string
		blockLines   []string
		chunks       []models.Chunk
		chunkIdx     int
	)

	section := func() string { return strings.Join(sectionStack, " / ") }

	processBlock := func(blines []string, sectionTitle string) {
		for _, para := range splitParagraphs(blines) {
			text := strings.TrimSpace(strings.Join(para, "\n"))
			if text == "" {
				continue
			}
			imgs := imageRefs(text)
			for _, part := range smartSplit(text, c.maxTextLen) {
				chunks = append(chunks, models.Chunk{
					Section:    sectionTitle,
					ChunkIndex: chunkIdx,
					Text:       part,
					Hash:       identity.HashText(part),
					ImageRefs:  imgs,
				})
				chunkIdx++
			}
		}
	}

	for _, ln := range lines {
		m := headingRE.FindStringSubmatch(ln)
		if m == nil {
			blockLines = append(blockLines, ln)
			continue
		}
		if len(blockLines) > 0 {
			processBlock(blockLines, section())
			blockLines = nil
		}
		level := len(m[1])
		for len(sectionStack) >= level {
			sectionStack = sectionStack[:len(sectionStack)-1]
		}
		sectionStack = append(sectionStack, strings.TrimSpace(m[2]))
	}
	if len(blockLines) > 0 {
		processBlock(blockLines, section())
	}
	return chunks
}

// splitParagraphs groups non-blank lines into paragraphs.
func splitParagraphs(lines []string) [][]string {
	var paras [][]string
	var buf []string
	flush := func() {
		for _, s := range buf {
			if strings.TrimSpace(s) != "" {
				paras = append(paras, buf)
				break
			}
		}
		buf = nil
	}
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			flush()
		} else {
			buf = append(buf, ln)
		}
	}
	flush()
	return paras
}

// imageRefs collects markdown image targets in document order.
func imageRefs(text string) []string {
	var refs []string
	for _, m := range imageRE.FindAllStringSubmatch(text, -1) {
		refs = append(refs, m[1])
	}
	return refs
}

// smartSplit bounds a paragraph to maxLen bytes: first at sentence
// boundaries, then at whitespace, finally by fixed width. Boundaries never
// land inside an image reference marker.
func smartSplit(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	var cur string
	for _, s := range splitSentences(text) {
		switch {
		case cur == "":
			cur = s
		case len(cur)+1+len(s) <= maxLen:
			cur = cur + " " + s
		default:
			parts = append(parts, cur)
			cur = s
		}
	}
	if cur != "" {
		parts = append(parts, cur)
	}

	var out []string
	for _, p := range parts {
		if len(p) <= maxLen {
			out = append(out, p)
			continue
		}
		out = append(out, hardSplit(p, maxLen)...)
	}
	return out
}

// splitSentences cuts after terminal punctuation followed by whitespace,
// skipping any position inside an image marker.
func splitSentences(text string) []string {
	spans := imageRE.FindAllStringIndex(text, -1)
	inImage := func(pos int) bool {
		for _, sp := range spans {
			if pos > sp[0] && pos < sp[1] {
				return true
			}
		}
		return false
	}

	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		ch := text[i]
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		next := text[i+1]
		if next != ' ' && next != '\t' && next != '\n' {
			continue
		}
		if inImage(i + 1) {
			continue
		}
		sent := strings.TrimSpace(text[start : i+1])
		if sent != "" {
			out = append(out, sent)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// hardSplit bounds a single oversized sentence, preferring whitespace cuts
// and moving any cut that would land inside an image marker to the marker's
// start.
func hardSplit(p string, maxLen int) []string {
	spans := imageRE.FindAllStringIndex(p, -1)

	var out []string
	for len(p) > maxLen {
		cut := maxLen
		if i := strings.LastIndexAny(p[:cut], " \t\n"); i > 0 {
			cut = i
		}
		for _, sp := range spans {
			if cut > sp[0] && cut < sp[1] {
				cut = sp[0]
				break
			}
		}
		if cut <= 0 {
			cut = maxLen // marker starts at 0 and is itself oversized
		}
		part := strings.TrimSpace(p[:cut])
		if part != "" {
			out = append(out, part)
		}
		p = strings.TrimSpace(p[cut:])
		spans = imageRE.FindAllStringIndex(p, -1)
	}
	if p != "" {
		out = append(out, p)
	}
	return out
}
