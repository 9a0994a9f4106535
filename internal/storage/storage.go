// Package storage keeps original uploads and enhanced output.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
)

var (
	ErrNotFound    = errors.New("storage: artifact not found")
	ErrInvalidName = errors.New("storage: invalid artifact name")
	ErrInvalidKind = errors.New("storage: invalid artifact kind")
)

// Info describes a stored artifact.
type Info struct {
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Store is implemented by FileStore and MinioStore.
type Store interface {
	Put(ctx context.Context, kind entity.ArtifactKind, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, kind entity.ArtifactKind, name string) (io.ReadSeekCloser, Info, error)
	Delete(ctx context.Context, kind entity.ArtifactKind, name string) error
	// Sweep removes artifacts of kind last modified before t.
	Sweep(ctx context.Context, kind entity.ArtifactKind, before time.Time) (int, error)
}

// ValidName accepts only flat file names, no separators or traversal.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

func check(kind entity.ArtifactKind, name string) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	if !ValidName(name) {
		return ErrInvalidName
	}
	return nil
}

// ContentTypeFor guesses an audio MIME type from a file extension.
func ContentTypeFor(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "application/octet-stream"
	}
	switch strings.ToLower(name[i+1:]) {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	case "ogg":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "aiff":
		return "audio/aiff"
	default:
		return "application/octet-stream"
	}
}
