// Package crossref fetches CSL-JSON bibliographic records for DOIs.
// Primary source is the Crossref REST API; doi.org content negotiation is
// the fallback.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gusmmm/docrag/internal/core/identity"
	"github.com/gusmmm/docrag/internal/models"
)

const cslContentType = "application/vnd.citationstyles.csl+json"

// csl is the subset of a CSL-JSON record the indexer uses.
type csl struct {
	Title          anyString `json:"title"`
	DOI            string    `json:"DOI"`
	ContainerTitle anyString `json:"container-title"`
	Volume         string    `json:"volume"`
	Issue          string    `json:"issue"`
	Page           string    `json:"page"`
	URL            string    `json:"URL"`
	Issued         cslDate   `json:"issued"`
	Author         []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
}

// anyString accepts both "title": "x" and "title": ["x"], which Crossref
// mixes across records.
type anyString string

func (s *anyString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		var arr []string
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		if len(arr) > 0 {
			*s = anyString(arr[0])
		}
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	*s = anyString(str)
	return nil
}

type cslDate struct {
	DateParts [][]int `json:"date-parts"`
}

// iso renders the issued date as an ISO date, defaulting month/day to 1.
func (d cslDate) iso() string {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return ""
	}
	p := d.DateParts[0]
	y, m, day := p[0], 1, 1
	if len(p) > 1 {
		m = p[1]
	}
	if len(p) > 2 {
		day = p[2]
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, day)
}

// Client resolves DOIs against Crossref with polite-pool etiquette.
type Client struct {
	http    *http.Client
	mailto  string
	apiBase string
	doiBase string
}

func NewClient(mailto string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 20 * time.Second},
		mailto:  mailto,
		apiBase: "https://api.crossref.org",
		doiBase: "https://doi.org",
	}
}

// Lookup fetches the bibliographic record for a DOI. Tries Crossref first
// and falls back to doi.org content negotiation.
func (c *Client) Lookup(ctx context.Context, doi string) (*models.Bibliography, error) {
	norm := identity.NormalizeDOI(doi)
	if !strings.Contains(norm, "/") {
		return nil, fmt.Errorf("invalid DOI format: %q", doi)
	}

	rec, err := c.fromCrossref(ctx, norm)
	if err == nil {
		return rec, nil
	}
	rec, fbErr := c.fromDoiOrg(ctx, norm)
	if fbErr != nil {
		return nil, fmt.Errorf("crossref: %v; doi.org fallback: %w", err, fbErr)
	}
	return rec, nil
}

func (c *Client) fromCrossref(ctx context.Context, doi string) (*models.Bibliography, error) {
	u := c.apiBase + "/works/" + url.PathEscape(doi)
	var wrapper struct {
		Message csl `json:"message"`
	}
	if err := c.getJSON(ctx, u, "", &wrapper); err != nil {
		return nil, err
	}
	return toBibliography(&wrapper.Message), nil
}

func (c *Client) fromDoiOrg(ctx context.Context, doi string) (*models.Bibliography, error) {
	u := c.doiBase + "/" + url.PathEscape(doi)
	var rec csl
	if err := c.getJSON(ctx, u, cslContentType, &rec); err != nil {
		return nil, err
	}
	return toBibliography(&rec), nil
}

func (c *Client) getJSON(ctx context.Context, u, accept string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "docrag/0.1 (mailto:"+c.mailto+")")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.mailto != "" {
		req.Header.Set("mailto", c.mailto)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toBibliography(r *csl) *models.Bibliography {
	var authors []string
	for _, a := range r.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			authors = append(authors, name)
		}
	}

	var family, year string
	if len(r.Author) > 0 {
		family = r.Author[0].Family
	}
	issued := r.Issued.iso()
	year = identity.YearFromISO(issued)

	return &models.Bibliography{
		Title:       string(r.Title),
		Authors:     authors,
		DOI:         identity.NormalizeDOI(r.DOI),
		CitationKey: identity.CitationKey(family, year, string(r.Title)),
		Journal:     string(r.ContainerTitle),
		Volume:      r.Volume,
		Issue:       r.Issue,
		Pages:       r.Page,
		Issued:      issued,
		URL:         r.URL,
	}
}
