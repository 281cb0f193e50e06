package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDOI(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "10.1001/jama.2025.1234", "10.1001/jama.2025.1234"},
		{"doi.org url", "https://doi.org/10.1001/jama.2025.1234", "10.1001/jama.2025.1234"},
		{"dx.doi.org url", "http://dx.doi.org/10.1056/NEJMoa2025", "10.1056/NEJMoa2025"},
		{"trailing punctuation", "10.1001/jama.2025.1234.", "10.1001/jama.2025.1234"},
		{"wrapped", " <10.1001/jama.2025.1234>, ", "<10.1001/jama.2025.1234"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDOI(tc.in))
		})
	}
}

func TestFindDOI(t *testing.T) {
	text := "Published online. doi: 10.1001/jamainternmed.2024.0123. Accessed 2025."
	assert.Equal(t, "10.1001/jamainternmed.2024.0123", FindDOI(text))
	assert.Equal(t, "", FindDOI("no identifier here"))
}

func TestFindDOIInBody(t *testing.T) {
	head := "# Report\n\nPublished online. doi: 10.1001/jamainternmed.2024.0123.\n"
	assert.Equal(t, "10.1001/jamainternmed.2024.0123", FindDOIInBody(head))

	filler := ""
	for len(filler) < doiScanLimit {
		filler += "Plain sentence without identifiers. "
	}
	deep := filler + " As shown previously (doi: 10.1001/jama.2020.999)."
	assert.Equal(t, "", FindDOIInBody(deep), "a DOI cited past the scan limit must not win")
}

func TestIsRealDOI(t *testing.T) {
	assert.True(t, IsRealDOI("10.1001/jama.2025.1234"))
	assert.False(t, IsRealDOI("doc:abcdef0123456789"))
	assert.False(t, IsRealDOI(""))
}

func TestSyntheticDOI(t *testing.T) {
	a := SyntheticDOI("some body text")
	b := SyntheticDOI("some body text")
	c := SyntheticDOI("other body text")

	require.Len(t, a, len("doc:")+16)
	assert.Equal(t, a, b, "synthetic id must be stable across runs")
	assert.NotEqual(t, a, c)
}

func TestHashText(t *testing.T) {
	h := HashText("chunk text")
	require.Len(t, h, 64)
	assert.Equal(t, h, HashText("chunk text"))
	assert.NotEqual(t, h, HashText("chunk text "))
}

func TestCitationKey(t *testing.T) {
	cases := []struct {
		name   string
		family string
		year   string
		title  string
		want   string
	}{
		{
			"full record",
			"Gaudry", "2025", "Renal Replacement Therapy",
			"gaudry2025renalreplacementtherapy",
		},
		{
			"stopwords removed and capped",
			"Summers", "2025", "The Effect of a Treatment on Outcomes in the ICU",
			"summers2025effecttreatmentoutcomesi",
		},
		{
			"missing pieces",
			"", "", "",
			"anon0000art",
		},
		{
			"accented family collapses",
			"Müller", "2024", "Sepsis",
			"mller2024sepsis",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CitationKey(tc.family, tc.year, tc.title))
		})
	}
}

func TestShortTitleCap(t *testing.T) {
	long := "Extracorporeal Membrane Oxygenation Outcomes Registry Analysis"
	s := ShortTitle(long, 24)
	assert.LessOrEqual(t, len(s), 24)
}

func TestFamilyName(t *testing.T) {
	assert.Equal(t, "Gaudry", FamilyName("Stéphane Gaudry"))
	assert.Equal(t, "Gaudry", FamilyName("Gaudry"))
	assert.Equal(t, "", FamilyName("  "))
}

func TestYearFromISO(t *testing.T) {
	assert.Equal(t, "2025", YearFromISO("2025-03-01"))
	assert.Equal(t, "2025", YearFromISO("2025"))
	assert.Equal(t, "", YearFromISO("25"))
}
