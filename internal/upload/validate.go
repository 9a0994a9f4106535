// Package upload checks audio files before they are accepted for enhancement.
// The same rules run on the client before submission and on the server
// before anything is stored.
package upload

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxSize is the largest accepted upload, 50 MiB.
const MaxSize int64 = 50 << 20

var allowedExtensions = map[string]struct{}{
	"mp3":  {},
	"wav":  {},
	"flac": {},
	"ogg":  {},
	"aac":  {},
	"aiff": {},
}

var allowedTypes = map[string]struct{}{
	"audio/mpeg":   {},
	"audio/mp3":    {},
	"audio/wav":    {},
	"audio/wave":   {},
	"audio/x-wav":  {},
	"audio/flac":   {},
	"audio/x-flac": {},
	"audio/ogg":    {},
	"audio/aac":    {},
	"audio/x-aac":  {},
	"audio/aiff":   {},
	"audio/x-aiff": {},
}

// File is what the validator needs to know about a candidate upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
}

type Reason string

const (
	ReasonMissing     Reason = "missing"
	ReasonEmpty       Reason = "empty"
	ReasonExtension   Reason = "extension"
	ReasonContentType Reason = "content_type"
	ReasonTooLarge    Reason = "too_large"
)

// ValidationError is a user-facing rejection.
type ValidationError struct {
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// AllowedExtension reports whether name ends in a supported audio extension.
func AllowedExtension(name string) bool {
	_, ok := allowedExtensions[Extension(name)]
	return ok
}

// AllowedContentType accepts empty and generic binary types, since browsers
// and CLIs often do not know the audio type.
func AllowedContentType(ct string) bool {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	if mediaType == "application/octet-stream" {
		return true
	}
	_, ok := allowedTypes[mediaType]
	return ok
}

// Validate applies the allow-lists and the size limit. maxSize <= 0 means MaxSize.
func Validate(f File, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxSize
	}
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Reason: ReasonMissing, Message: "No file selected"}
	}
	if !AllowedExtension(f.Name) {
		return &ValidationError{
			Reason:  ReasonExtension,
			Message: fmt.Sprintf("File type not supported. Allowed formats: %s", strings.Join(Extensions(), ", ")),
		}
	}
	if !AllowedContentType(f.ContentType) {
		return &ValidationError{
			Reason:  ReasonContentType,
			Message: fmt.Sprintf("File type not supported: %s", f.ContentType),
		}
	}
	if f.Size <= 0 {
		return &ValidationError{Reason: ReasonEmpty, Message: "File is empty"}
	}
	if f.Size > maxSize {
		return &ValidationError{
			Reason: ReasonTooLarge,
			Message: fmt.Sprintf("File too large (%s). Maximum size is %s.",
				humanize.IBytes(uint64(f.Size)), humanize.IBytes(uint64(maxSize))),
		}
	}
	return nil
}

// Extensions lists the supported extensions in a stable order.
func Extensions() []string {
	return []string{"mp3", "wav", "flac", "ogg", "aac", "aiff"}
}
