package domain

import "context"

// SourceKind classifies a queued import source.
type SourceKind string

const (
	SourceURL   SourceKind = "url"
	SourceImage SourceKind = "image"
	SourcePDF   SourceKind = "pdf"
)

// FileSource is the binary handle behind an uploaded image/pdf/spreadsheet.
// Reading the content is deferred until detection actually needs it.
type FileSource interface {
	Name() string
	ContentType() string
	Bytes(ctx context.Context) ([]byte, error)
}

// QueueItem is one user-supplied source awaiting detection.
type QueueItem struct {
	ID    string     `json:"id"`
	Kind  SourceKind `json:"kind"`
	Label string     `json:"label"`

	// URL is set for url items; File for image/pdf items.
	URL  string     `json:"url,omitempty"`
	File FileSource `json:"-"`

	// Base64 holds the file content once converted by ToDetectPayload.
	// Retry of a file-origin item requires it to be present.
	Base64   string `json:"-"`
	MIMEType string `json:"mime_type,omitempty"`
}

// Base64Item is one converted file within a detection payload.
type Base64Item struct {
	Base64 string `json:"base64"`
	Type   string `json:"type"`
}

// DetectPayload is the request body assembled from the queue. The URL and
// base64 sub-arrays, and their id arrays, are each in queue-insertion order
// and positionally aligned.
type DetectPayload struct {
	URLs           []string     `json:"urls"`
	Base64Items    []Base64Item `json:"base64_items"`
	URLQueueIDs    []string     `json:"url_queue_ids"`
	Base64QueueIDs []string     `json:"base64_queue_ids"`
}

// Base64Converter turns a file handle into a base64 string. Implementations
// strip any data-URL prefix before returning.
type Base64Converter interface {
	FileToBase64(ctx context.Context, file FileSource) (string, error)
}
