package models

import "time"

type UploadKind string

const (
	UploadKindImage UploadKind = "image"
	UploadKindVideo UploadKind = "video"
	UploadKindAudio UploadKind = "audio"
)

type UploadStatus string

const (
	UploadStatusPending  UploadStatus = "pending"
	UploadStatusUploaded UploadStatus = "uploaded"
)

// Upload is the metadata row of a file placed in object storage. The bytes
// themselves never pass through the service.
type Upload struct {
	ID           string
	OwnerID      string
	OriginalName string
	Kind         UploadKind
	Size         int64
	ContentType  string
	StorageKey   string
	Status       UploadStatus
	CreatedAt    time.Time
}
