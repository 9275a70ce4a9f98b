package speciesinfo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractRegion(t *testing.T) {
	tests := []struct {
		name    string
		extract string
		want    string
	}{
		{"empty", "", "Unknown"},
		{"no match", "The robin is a songbird.", "Widespread"},
		{"found in", "The robin is found in North America. It sings.", "North America"},
		{"case insensitive", "It is Native To eastern Asia and Japan.", "eastern Asia and Japan"},
		{"distributed throughout", "The species is distributed throughout Europe.", "Europe"},
		{"occurs across", "It occurs across the Sahel.", "the Sahel"},
		{"breeds in", "It breeds in Siberia and winters in Africa.", "Siberia and winters in Africa"},
		{"pattern order wins over position", "It breeds in Canada. It is found in Mexico.", "Mexico"},
		{"no terminating period", "Common and found in gardens", "gardens"},
		{"sentence period is not captured", "This bird is found in the temperate forests of Europe.", "the temperate forests of Europe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractRegion(tt.extract))
		})
	}
}

func TestExtractRegionTruncatesLongMatch(t *testing.T) {
	long := "found in " + strings.Repeat("a", 200) + "."
	got := ExtractRegion(long)
	assert.Len(t, got, 150)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("a", 147)+"...", got)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "short", Describe("  short \n"))

	exact := strings.Repeat("b", 300)
	assert.Equal(t, exact, Describe(exact), "300 characters are kept")

	long := strings.Repeat("c", 301)
	got := Describe(long)
	assert.Equal(t, strings.Repeat("c", 297)+"...", got)
}

func TestTruncateCountsCharacters(t *testing.T) {
	s := strings.Repeat("ä", 10)
	assert.Equal(t, s, truncate(s, 10))
	assert.Equal(t, "ääää...", truncate(s, 7))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "plain", plainText("plain"))
	assert.Equal(t, "Bird & tree", plainText("<b>Bird</b> &amp; tree"))
}
