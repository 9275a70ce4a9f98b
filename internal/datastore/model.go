package datastore

import "time"

// Detection is one persisted detection row. Session URLs are shared by all
// rows of one upload; Single* URLs point at per-detection artifacts.
type Detection struct {
	ID             uint      `gorm:"primaryKey" json:"id" csv:"id"`
	Timestamp      time.Time `gorm:"index" json:"timestamp" csv:"timestamp"`
	Lat            *float64  `json:"lat" csv:"lat,omitempty"`
	Lon            *float64  `json:"lon" csv:"lon,omitempty"`
	Species        string    `gorm:"size:255;index" json:"species" csv:"species"`
	Confidence     float64   `json:"confidence" csv:"confidence"`
	AudioURL       string    `gorm:"size:512" json:"audio_url" csv:"audio_url"`
	SingleAudioURL string    `gorm:"size:512" json:"single_audio_url" csv:"single_audio_url"`
	ImageURL       string    `gorm:"size:512" json:"image_url" csv:"image_url"`
	SingleImageURL string    `gorm:"size:512" json:"single_image_url" csv:"single_image_url"`
	BirdPhotoURL   *string   `gorm:"size:1024" json:"bird_photo_url" csv:"bird_photo_url,omitempty"`
}

func (Detection) TableName() string { return "detections" }

// Species is a cached metadata record keyed by common name.
type Species struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	ScientificName     *string   `gorm:"size:255" json:"scientific_name"`
	ImageURL           *string   `gorm:"size:1024" json:"image_url"`
	Description        *string   `gorm:"type:text" json:"description"`
	Region             *string   `gorm:"size:255" json:"region"`
	Habitat            *string   `gorm:"size:255" json:"habitat"`
	ConservationStatus *string   `gorm:"size:64" json:"conservation_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Species) TableName() string { return "species" }

// SpeciesSummary aggregates detections of one species joined with its
// cached metadata.
type SpeciesSummary struct {
	Name               string    `json:"name"`
	DetectionCount     int64     `json:"detection_count"`
	AvgConfidence      float64   `json:"avg_confidence"` // percent, one decimal
	FirstSeen          time.Time `json:"first_seen"`
	LastSeen           time.Time `json:"last_seen"`
	ScientificName     *string   `json:"scientific_name"`
	ImageURL           *string   `json:"image_url"`
	Description        *string   `json:"description"`
	Region             *string   `json:"region"`
	Habitat            *string   `json:"habitat"`
	ConservationStatus *string   `json:"conservation_status"`
}

// ListOptions filters and pages detection listings.
type ListOptions struct {
	Species string
	Limit   int
	Offset  int
}
