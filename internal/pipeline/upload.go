package pipeline

import (
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// RecordedAtLayout is the accepted recording timestamp format.
const RecordedAtLayout = time.DateTime

// UploadContext identifies one upload and owns its artifact names. Every
// name derives from ID, so they are known before anything is rendered.
type UploadContext struct {
	ID         string
	StorageDir string
	URLPrefix  string
	RecordedAt time.Time
	Lat        *float64
	Lon        *float64
}

func newUploadContext(storageDir, urlPrefix string) *UploadContext {
	return &UploadContext{
		ID:         uuid.NewString(),
		StorageDir: storageDir,
		URLPrefix:  urlPrefix,
	}
}

// SessionAudioName is the stored upload, <id>.wav.
func (u *UploadContext) SessionAudioName() string { return u.ID + ".wav" }

// SessionImageName is the annotated full-length spectrogram, <id>.png.
func (u *UploadContext) SessionImageName() string { return u.ID + ".png" }

// DetectionAudioName is the clip of detection k, <id><k>.wav.
func (u *UploadContext) DetectionAudioName(k int) string { return u.ID + strconv.Itoa(k) + ".wav" }

// DetectionImageName is the spectrogram of detection k, <id><k>.png.
func (u *UploadContext) DetectionImageName(k int) string { return u.ID + strconv.Itoa(k) + ".png" }

// Path returns the filesystem location of an artifact name.
func (u *UploadContext) Path(name string) string { return filepath.Join(u.StorageDir, name) }

// URL returns the public URL of an artifact name.
func (u *UploadContext) URL(name string) string { return path.Join(u.URLPrefix, name) }

// ParseRecordedAt parses s with RecordedAtLayout. Unparseable input yields
// now and ok=false.
func ParseRecordedAt(s string, now time.Time) (t time.Time, ok bool) {
	t, err := time.ParseInLocation(RecordedAtLayout, s, time.Local)
	if err != nil {
		return now, false
	}
	return t, true
}
