package detection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, data string) Detection {
	t.Helper()
	raw, err := ParseResults([]byte(data))
	require.NoError(t, err)
	require.Len(t, raw, 1)
	return normalizeOne(raw[0])
}

func TestNormalize_SpeciesNameFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		json string
		want string
	}{
		{"common name", `[{"common_name":"American Robin","label":"Turdus_migratorius","confidence":0.9}]`, "American Robin"},
		{"label fallback", `[{"label":"Blue Jay","confidence":0.9}]`, "Blue Jay"},
		{"blank common name falls back to label", `[{"common_name":"  ","label":"Blue Jay","confidence":0.9}]`, "Blue Jay"},
		{"nothing usable", `[{"confidence":0.9}]`, UnknownSpecies},
		{"non-string name", `[{"common_name":42,"confidence":0.9}]`, UnknownSpecies},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mustParse(t, tt.json).SpeciesName)
		})
	}
}

func TestNormalize_ClampsValues(t *testing.T) {
	t.Parallel()

	d := mustParse(t, `[{"common_name":"Robin","start_time":5,"end_time":2,"confidence":1.7}]`)
	assert.InDelta(t, 5.0, d.StartTime, 1e-9)
	assert.InDelta(t, 5.0, d.EndTime, 1e-9, "end must not precede start")
	assert.InDelta(t, 1.0, d.Confidence, 1e-9)

	d = mustParse(t, `[{"common_name":"Robin","start_time":-3,"end_time":-1,"confidence":-0.2}]`)
	assert.InDelta(t, 0.0, d.StartTime, 1e-9)
	assert.InDelta(t, 0.0, d.EndTime, 1e-9)
	assert.InDelta(t, 0.0, d.Confidence, 1e-9)
}

func TestNormalize_NonFiniteValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		json       string
		start, end float64
		confidence float64
	}{
		{"NaN confidence", `[{"common_name":"Wren","confidence":"NaN"}]`, 0, 0, 0},
		{"Inf confidence", `[{"common_name":"Wren","confidence":"+Inf"}]`, 0, 0, 0},
		{"Inf end time", `[{"common_name":"Jay","start_time":2,"end_time":"Inf","confidence":0.9}]`, 2, 2, 0.9},
		{"NaN start time", `[{"common_name":"Jay","start_time":"nan","end_time":3,"confidence":0.9}]`, 0, 3, 0.9},
		{"huge offsets", `[{"common_name":"Jay","start_time":"1e300","end_time":1e300,"confidence":0.9}]`, MaxOffsetSeconds, MaxOffsetSeconds, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := mustParse(t, tt.json)
			assert.InDelta(t, tt.start, d.StartTime, 1e-9)
			assert.InDelta(t, tt.end, d.EndTime, 1e-9)
			assert.InDelta(t, tt.confidence, d.Confidence, 1e-9)
		})
	}
}

func TestNormalize_NaNConfidenceIsBelowThreshold(t *testing.T) {
	t.Parallel()

	raw, err := ParseResults([]byte(`[
		{"common_name":"Wren","confidence":"NaN"},
		{"common_name":"Jay","start_time":"1e300","end_time":"Inf","confidence":0.8}
	]`))
	require.NoError(t, err)

	got := Normalize(raw, 0.7)
	require.Len(t, got, 1)
	assert.Equal(t, "Jay", got[0].SpeciesName)
	assert.InDelta(t, float64(MaxOffsetSeconds), got[0].StartTime, 1e-9)

	recorded := time.Date(2024, 5, 4, 6, 0, 0, 0, time.UTC)
	ts := recorded.Add(time.Duration(got[0].StartTime * float64(time.Second)))
	assert.Equal(t, recorded.Add(24*time.Hour), ts)
}

func TestNormalize_NumericStrings(t *testing.T) {
	t.Parallel()

	d := mustParse(t, `[{"common_name":"Robin","start_time":"1.5","end_time":" 4.5 ","confidence":"0.8"}]`)
	assert.InDelta(t, 1.5, d.StartTime, 1e-9)
	assert.InDelta(t, 4.5, d.EndTime, 1e-9)
	assert.InDelta(t, 0.8, d.Confidence, 1e-9)
	assert.Equal(t, 3*time.Second, d.Duration())
}

func TestNormalize_DropsBelowThreshold(t *testing.T) {
	t.Parallel()

	raw, err := ParseResults([]byte(`[
		{"common_name":"Robin","confidence":0.91},
		{"common_name":"Sparrow","confidence":0.69},
		{"common_name":"Jay","confidence":0.7}
	]`))
	require.NoError(t, err)

	got := Normalize(raw, 0.7)
	require.Len(t, got, 2)
	assert.Equal(t, "Robin", got[0].SpeciesName)
	assert.Equal(t, "Jay", got[1].SpeciesName)
}

func TestNormalize_UnicodeNamesAreNFC(t *testing.T) {
	t.Parallel()

	d := mustParse(t, `[{"common_name":"Pa\u0301jaro","confidence":0.9}]`)
	assert.Equal(t, "P\u00e1jaro", d.SpeciesName)
}

func TestParseResults(t *testing.T) {
	t.Parallel()

	t.Run("detections object", func(t *testing.T) {
		t.Parallel()
		raw, err := ParseResults([]byte(`{"detections":[{"label":"Robin"},{"label":"Jay"}]}`))
		require.NoError(t, err)
		assert.Len(t, raw, 2)
	})

	t.Run("skips non-object entries", func(t *testing.T) {
		t.Parallel()
		raw, err := ParseResults([]byte(`[{"label":"Robin"}, 3, "x", null, {"label":"Jay"}]`))
		require.NoError(t, err)
		assert.Len(t, raw, 2)
	})

	t.Run("empty array", func(t *testing.T) {
		t.Parallel()
		raw, err := ParseResults([]byte(`[]`))
		require.NoError(t, err)
		assert.Empty(t, raw)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		_, err := ParseResults([]byte(`not json`))
		require.Error(t, err)
	})

	t.Run("object without detections", func(t *testing.T) {
		t.Parallel()
		_, err := ParseResults([]byte(`{"results":[]}`))
		require.Error(t, err)
	})

	t.Run("scalar", func(t *testing.T) {
		t.Parallel()
		_, err := ParseResults([]byte(`42`))
		require.Error(t, err)
	})
}

func TestBirdNETWeek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		date string
		want int
	}{
		{"2024-01-01", 1},
		{"2024-01-07", 1},
		{"2024-01-08", 2},
		{"2024-01-22", 4},
		{"2024-01-31", 4},
		{"2024-06-15", 23},
		{"2024-12-31", 48},
	}
	for _, tt := range tests {
		d, err := time.Parse(time.DateOnly, tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, BirdNETWeek(d), tt.date)
	}
}
