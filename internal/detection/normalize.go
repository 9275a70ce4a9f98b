package detection

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"golang.org/x/text/unicode/norm"
)

// UnknownSpecies labels detections that carry no usable name.
const UnknownSpecies = "Unknown Bird"

// MaxOffsetSeconds bounds detection offsets so that recording start plus
// offset stays representable as a time.Duration.
const MaxOffsetSeconds = 24 * 60 * 60

// Normalize converts raw engine objects into Detections, preserving order.
// Entries below minConfidence are dropped.
func Normalize(raw []*jason.Object, minConfidence float64) []Detection {
	out := make([]Detection, 0, len(raw))
	for _, obj := range raw {
		if obj == nil {
			continue
		}
		d := normalizeOne(obj)
		if d.Confidence < minConfidence {
			continue
		}
		out = append(out, d)
	}
	return out
}

func normalizeOne(obj *jason.Object) Detection {
	start := clampOffset(numberField(obj, "start_time"))
	end := clampOffset(numberField(obj, "end_time"))
	if end < start {
		end = start
	}
	confidence := min(max(numberField(obj, "confidence"), 0), 1)

	scientific, _ := obj.GetString("scientific_name")
	return Detection{
		StartTime:      start,
		EndTime:        end,
		SpeciesName:    speciesName(obj),
		ScientificName: cleanName(scientific),
		Confidence:     confidence,
	}
}

// speciesName prefers common_name, then label, then UnknownSpecies.
func speciesName(obj *jason.Object) string {
	for _, key := range []string{"common_name", "label"} {
		if s, err := obj.GetString(key); err == nil {
			if name := cleanName(s); name != "" {
				return name
			}
		}
	}
	return UnknownSpecies
}

func cleanName(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func clampOffset(seconds float64) float64 {
	return min(max(seconds, 0), MaxOffsetSeconds)
}

// numberField reads a float that may also arrive as a numeric string.
// Missing, malformed and non-finite values read as 0.
func numberField(obj *jason.Object, key string) float64 {
	f, err := obj.GetFloat64(key)
	if err != nil {
		s, serr := obj.GetString(key)
		if serr != nil {
			return 0
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseResults decodes classifier output: either a JSON array of objects or
// an object with a "detections" array. Non-object entries are skipped.
func ParseResults(data []byte) ([]*jason.Object, error) {
	value, err := jason.NewValueFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("invalid classifier output: %w", err)
	}

	var items []*jason.Value
	if arr, err := value.Array(); err == nil {
		items = arr
	} else if obj, err := value.Object(); err == nil {
		arr, err := obj.GetValueArray("detections")
		if err != nil {
			return nil, fmt.Errorf("classifier output has no detections array: %w", err)
		}
		items = arr
	} else {
		return nil, fmt.Errorf("classifier output is neither an array nor an object")
	}

	out := make([]*jason.Object, 0, len(items))
	for _, item := range items {
		if obj, err := item.Object(); err == nil {
			out = append(out, obj)
		}
	}
	return out, nil
}

// BirdNETWeek maps a date onto the 48-week year used by BirdNET range
// models: four weeks per month.
func BirdNETWeek(t time.Time) int {
	weekInMonth := min((t.Day()-1)/7+1, 4)
	return (int(t.Month())-1)*4 + weekInMonth
}
