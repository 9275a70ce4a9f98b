package pipeline

import (
	"path/filepath"
	"time"

	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/detection"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
)

// buildRecords assembles one record per detection in detection order.
// Units missing from artifacts fall back to their deterministic names.
func buildRecords(uc *UploadContext, dets []detection.Detection, artifacts *Artifacts, resolved map[string]*speciesinfo.Info) []datastore.Detection {
	records := make([]datastore.Detection, len(dets))
	for k, d := range dets {
		imageName := uc.DetectionImageName(k)
		audioName := uc.DetectionAudioName(k)
		if res, ok := artifacts.Detections[k]; ok {
			imageName = baseName(res.ImagePath, imageName)
			audioName = baseName(res.ClipPath, audioName)
		}

		records[k] = datastore.Detection{
			Timestamp:      uc.RecordedAt.Add(time.Duration(d.StartTime * float64(time.Second))),
			Lat:            uc.Lat,
			Lon:            uc.Lon,
			Species:        d.SpeciesName,
			Confidence:     d.Confidence,
			AudioURL:       uc.URL(uc.SessionAudioName()),
			SingleAudioURL: uc.URL(audioName),
			ImageURL:       uc.URL(uc.SessionImageName()),
			SingleImageURL: uc.URL(imageName),
			BirdPhotoURL:   resolved[d.SpeciesName].PhotoURL(),
		}
	}
	return records
}

func baseName(p, fallback string) string {
	if p == "" {
		return fallback
	}
	return filepath.Base(p)
}
