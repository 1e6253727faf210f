// Package inquiry holds the quote request a user builds up in the conversation,
// the parsers for its free-text fields and the composer that renders it for
// operators and contractors.
package inquiry

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/heatbot/internal/routing"
)

// Sketch references an image kept in Telegram's media store. MIME and FileName are set
// when the image came as a file instead of a compressed photo.
type Sketch struct {
	FileID   string
	UniqueID string
	FileName string
	MIME     string
}

// IsDocument reports whether the image was sent as a file.
func (s Sketch) IsDocument() bool { return s.MIME != "" }

var imageExts = map[string]string{
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// Ext is the file extension for a local copy. Compressed photos are always JPEG.
func (s Sketch) Ext() string {
	if ext := strings.ToLower(filepath.Ext(s.FileName)); len(ext) > 1 && len(ext) <= 6 && alnum(ext[1:]) {
		return ext
	}
	if ext, ok := imageExts[s.MIME]; ok {
		return ext
	}
	return ".jpg"
}

func alnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// IsImageMIME reports whether a file's MIME type is acceptable as a sketch.
func IsImageMIME(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/")
}

// Submitter is the Telegram identity of the user.
type Submitter struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// DisplayName joins first and last name.
func (s Submitter) DisplayName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Handle returns the @username or an empty string.
func (s Submitter) Handle() string {
	if s.Username == "" {
		return ""
	}
	return "@" + s.Username
}

// Inquiry is one quote request. Fields are filled in conversation order.
type Inquiry struct {
	ID         uuid.UUID
	Language   string
	Country    routing.Country
	Service    routing.Service
	SubOption  string
	ObjectType string
	Area       float64
	Floors     int
	Sketch     *Sketch
	Phone      string
	Email      string
	Submitter  Submitter
	CreatedAt  time.Time
}

// HasSketch reports whether an image was attached.
func (q *Inquiry) HasSketch() bool {
	return q.Sketch != nil && q.Sketch.FileID != ""
}

// ResetDetails clears everything collected after the route was chosen.
func (q *Inquiry) ResetDetails() {
	q.ID = uuid.Nil
	q.ObjectType = ""
	q.Area = 0
	q.Floors = 0
	q.Sketch = nil
	q.Phone = ""
	q.Email = ""
	q.CreatedAt = time.Time{}
}

// Ref is the short reference shown to users: the first block of the id.
func (q *Inquiry) Ref() string {
	if q.ID == uuid.Nil {
		return ""
	}
	s := q.ID.String()
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}
