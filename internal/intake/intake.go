package intake

import (
	"time"

	"github.com/google/uuid"
	"github.com/privylex/privylex/internal/models"
)

// Allowed document types. Files outside this set are dropped without
// an error; the filter is a convenience, not a security boundary.
var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// RawFile is an uploaded blob with its declared content type.
type RawFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Accepts reports whether the declared MIME type is on the allow-list.
func Accepts(mimeType string) bool {
	return allowedMimeTypes[mimeType]
}

// Ingest turns accepted raw files into fresh Documents in the uploaded
// state. Disallowed types are silently skipped. Re-ingesting the same
// bytes yields a new, independent document.
func Ingest(files []RawFile) []models.Document {
	var docs []models.Document
	for _, f := range files {
		if !Accepts(f.MimeType) {
			continue
		}
		docs = append(docs, models.Document{
			ID:         uuid.New(),
			Name:       f.Name,
			SizeBytes:  int64(len(f.Data)),
			MimeType:   f.MimeType,
			UploadedAt: time.Now().UTC(),
			Payload:    f.Data,
			State:      models.StateUploaded,
		})
	}
	return docs
}
