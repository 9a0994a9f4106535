package entity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ArtifactKind separates original uploads from enhanced output.
type ArtifactKind string

const (
	KindUploads   ArtifactKind = "uploads"
	KindProcessed ArtifactKind = "processed"
)

func (k ArtifactKind) Valid() bool {
	return k == KindUploads || k == KindProcessed
}

// Artifact references one stored audio file.
type Artifact struct {
	Kind     ArtifactKind `json:"kind"`
	Filename string       `json:"filename"`
}

func OriginalFilename(id uuid.UUID, ext string) string {
	return fmt.Sprintf("%s_original.%s", id, strings.ToLower(ext))
}

func EnhancedFilename(id uuid.UUID, ext string) string {
	return fmt.Sprintf("%s_enhanced.%s", id, strings.ToLower(ext))
}

// DownloadName is the attachment name offered for an enhanced file.
func DownloadName(filename string) string {
	return "enhanced_" + filename
}
