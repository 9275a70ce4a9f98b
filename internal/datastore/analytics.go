package datastore

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"
)

// Summary holds overall detection statistics.
type Summary struct {
	TotalDetections int64         `json:"total_detections"`
	UniqueSpecies   int64         `json:"unique_species"`
	AvgConfidence   float64       `json:"avg_confidence"` // percent, one decimal
	MostRecent      RecentSummary `json:"most_recent"`
}

// RecentSummary identifies the newest detection. Both fields are nil on an
// empty store.
type RecentSummary struct {
	Timestamp *time.Time `json:"timestamp"`
	Species   *string    `json:"species"`
}

type SpeciesCount struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type HourlyCount struct {
	Hour  string `json:"hour"` // "HH:00"
	Count int64  `json:"count"`
}

type ConfidenceBucket struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// TrendPeriod selects the bucket size for Trends.
type TrendPeriod string

const (
	PeriodHour  TrendPeriod = "hour"
	PeriodDay   TrendPeriod = "day"
	PeriodWeek  TrendPeriod = "week"
	PeriodMonth TrendPeriod = "month"
)

// ParseTrendPeriod maps a query value onto a period, defaulting to day.
func ParseTrendPeriod(s string) TrendPeriod {
	switch p := TrendPeriod(s); p {
	case PeriodHour, PeriodWeek, PeriodMonth:
		return p
	default:
		return PeriodDay
	}
}

// TrendPoint is one bucket of a trend series with per-species counts.
type TrendPoint struct {
	Date    string           `json:"date"`
	Count   int64            `json:"count"`
	Species map[string]int64 `json:"species"`
}

// detectionPoint is the projection used by the time based aggregations.
type detectionPoint struct {
	Species    string
	Confidence float64
	Timestamp  time.Time
}

func (ds *DataStore) points(ctx context.Context, since time.Time) ([]detectionPoint, error) {
	query := ds.DB.WithContext(ctx).Model(&Detection{}).Select("species", "confidence", "timestamp")
	if !since.IsZero() {
		query = query.Where("timestamp >= ?", since)
	}
	var pts []detectionPoint
	if err := query.Order("timestamp").Find(&pts).Error; err != nil {
		return nil, dbError(err, "load_detection_points")
	}
	return pts, nil
}

func percent(v float64) float64 {
	return math.Round(v*1000) / 10
}

// Summary returns totals, the average confidence and the newest detection.
func (ds *DataStore) Summary(ctx context.Context) (*Summary, error) {
	db := ds.DB.WithContext(ctx)
	var agg struct {
		Total         int64
		UniqueSpecies int64
		AvgConf       *float64
	}
	err := db.Model(&Detection{}).
		Select("COUNT(*) AS total, COUNT(DISTINCT species) AS unique_species, AVG(confidence) AS avg_conf").
		Scan(&agg).Error
	if err != nil {
		return nil, dbError(err, "summary")
	}

	out := &Summary{TotalDetections: agg.Total, UniqueSpecies: agg.UniqueSpecies}
	if agg.AvgConf != nil {
		out.AvgConfidence = percent(*agg.AvgConf)
	}

	var latest []Detection
	if err := db.Order("timestamp DESC").Order("id DESC").Limit(1).Find(&latest).Error; err != nil {
		return nil, dbError(err, "summary_latest")
	}
	if len(latest) == 1 {
		out.MostRecent = RecentSummary{Timestamp: &latest[0].Timestamp, Species: &latest[0].Species}
	}
	return out, nil
}

// SpeciesDistribution counts detections per species, most frequent first.
// A limit <= 0 returns every species.
func (ds *DataStore) SpeciesDistribution(ctx context.Context, limit int) ([]SpeciesCount, error) {
	query := ds.DB.WithContext(ctx).Model(&Detection{}).
		Select("species AS name, COUNT(*) AS value").
		Group("species").
		Order("value DESC").Order("name")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var out []SpeciesCount
	if err := query.Scan(&out).Error; err != nil {
		return nil, dbError(err, "species_distribution")
	}
	return out, nil
}

// SpeciesSummary aggregates per-species detection statistics and merges
// cached metadata. Species without a metadata row carry nil fields.
func (ds *DataStore) SpeciesSummary(ctx context.Context) ([]SpeciesSummary, error) {
	pts, err := ds.points(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*SpeciesSummary)
	sums := make(map[string]float64)
	for _, p := range pts {
		s, ok := byName[p.Species]
		if !ok {
			s = &SpeciesSummary{Name: p.Species, FirstSeen: p.Timestamp, LastSeen: p.Timestamp}
			byName[p.Species] = s
		}
		s.DetectionCount++
		sums[p.Species] += p.Confidence
		if p.Timestamp.Before(s.FirstSeen) {
			s.FirstSeen = p.Timestamp
		}
		if p.Timestamp.After(s.LastSeen) {
			s.LastSeen = p.Timestamp
		}
	}

	species, err := ds.ListSpecies(ctx)
	if err != nil {
		return nil, err
	}
	for i := range species {
		s, ok := byName[species[i].Name]
		if !ok {
			continue
		}
		sp := species[i]
		s.ScientificName = sp.ScientificName
		s.ImageURL = sp.ImageURL
		s.Description = sp.Description
		s.Region = sp.Region
		s.Habitat = sp.Habitat
		s.ConservationStatus = sp.ConservationStatus
	}

	out := make([]SpeciesSummary, 0, len(byName))
	for name, s := range byName {
		s.AvgConfidence = percent(sums[name] / float64(s.DetectionCount))
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b SpeciesSummary) int {
		return cmp.Or(cmp.Compare(b.DetectionCount, a.DetectionCount), cmp.Compare(a.Name, b.Name))
	})
	return out, nil
}

func trendKey(t time.Time, period TrendPeriod) string {
	switch period {
	case PeriodHour:
		return t.Format("2006-01-02 15:00")
	case PeriodWeek:
		offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
		return t.AddDate(0, 0, -offset).Format(time.DateOnly)
	case PeriodMonth:
		return t.Format("2006-01")
	default:
		return t.Format(time.DateOnly)
	}
}

// Trends buckets detections since the given time (zero for all) by period,
// in ascending bucket order.
func (ds *DataStore) Trends(ctx context.Context, period TrendPeriod, since time.Time) ([]TrendPoint, error) {
	pts, err := ds.points(ctx, since)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*TrendPoint)
	var keys []string
	for _, p := range pts {
		key := trendKey(p.Timestamp, period)
		b, ok := buckets[key]
		if !ok {
			b = &TrendPoint{Date: key, Species: make(map[string]int64)}
			buckets[key] = b
			keys = append(keys, key)
		}
		b.Count++
		b.Species[p.Species]++
	}
	slices.Sort(keys)

	out := make([]TrendPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, *buckets[k])
	}
	return out, nil
}

// HourlyActivity counts detections per hour of day. All 24 hours are
// returned, including empty ones.
func (ds *DataStore) HourlyActivity(ctx context.Context) ([]HourlyCount, error) {
	pts, err := ds.points(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	var hours [24]int64
	for _, p := range pts {
		hours[p.Timestamp.Hour()]++
	}
	out := make([]HourlyCount, 24)
	for h := range 24 {
		out[h] = HourlyCount{Hour: fmt.Sprintf("%02d:00", h), Count: hours[h]}
	}
	return out, nil
}

var confidenceRanges = []string{"70-75%", "75-80%", "80-85%", "85-90%", "90-95%", "95-100%"}

// ConfidenceDistribution buckets confidences into 5 point ranges from 70%.
// Values below 75% land in the first bucket.
func (ds *DataStore) ConfidenceDistribution(ctx context.Context) ([]ConfidenceBucket, error) {
	var confidences []float64
	if err := ds.DB.WithContext(ctx).Model(&Detection{}).Pluck("confidence", &confidences).Error; err != nil {
		return nil, dbError(err, "confidence_distribution")
	}

	counts := make([]int64, len(confidenceRanges))
	for _, c := range confidences {
		idx := int((c*100 - 70) / 5)
		idx = max(0, min(idx, len(counts)-1))
		counts[idx]++
	}

	out := make([]ConfidenceBucket, len(confidenceRanges))
	for i, r := range confidenceRanges {
		out[i] = ConfidenceBucket{Range: r, Count: counts[i]}
	}
	return out, nil
}
