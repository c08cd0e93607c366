package models

import "time"

// UploadedFile records an uploaded boarding-pass image.
type UploadedFile struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId,omitempty"` // Empty for guest uploads
	OriginalName string    `json:"originalName"`
	Filename     string    `json:"filename"` // Name in file storage
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimetype"`
	UploadedAt   time.Time `json:"uploadedAt"`
	Deleted      bool      `json:"-"`
}
