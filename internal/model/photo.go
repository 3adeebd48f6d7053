package model

import (
	"encoding/json"
	"time"
)

// Photo is a processed image owned by exactly one issue. Blob and Thumbnail
// are never mutated after construction.
type Photo struct {
	ID        string
	IssueID   string
	MIMEType  string
	Width     int
	Height    int
	CreatedAt time.Time
	Blob      []byte
	Thumbnail []byte
}

// photoJSON is the JSON wire format for Photo in command output. Payloads
// are summarized by size rather than inlined.
type photoJSON struct {
	ID            string `json:"id"`
	IssueID       string `json:"issueId"`
	MIMEType      string `json:"mimeType"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	CreatedAt     string `json:"createdAt"`
	Size          int    `json:"size"`
	ThumbnailSize int    `json:"thumbnailSize"`
}

// MarshalJSON implements custom JSON serialization for Photo.
func (p Photo) MarshalJSON() ([]byte, error) {
	return json.Marshal(photoJSON{
		ID:            p.ID,
		IssueID:       p.IssueID,
		MIMEType:      p.MIMEType,
		Width:         p.Width,
		Height:        p.Height,
		CreatedAt:     FormatTime(p.CreatedAt),
		Size:          len(p.Blob),
		ThumbnailSize: len(p.Thumbnail),
	})
}
