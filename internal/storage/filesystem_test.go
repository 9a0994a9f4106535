package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	root := t.TempDir()
	s, err := NewFileStore(filepath.Join(root, "uploads"), filepath.Join(root, "processed"))
	require.NoError(t, err)
	return s
}

func TestFileStore_PutOpen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, entity.KindUploads, "a_original.wav", strings.NewReader("RIFF"), 4, "audio/wav"))

	f, info, err := s.Open(ctx, entity.KindUploads, "a_original.wav")
	require.NoError(t, err)
	defer f.Close()

	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(body))
	assert.EqualValues(t, 4, info.Size)
	assert.Equal(t, "audio/wav", info.ContentType)

	_, _, err = s.Open(ctx, entity.KindProcessed, "a_original.wav")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{"../escape.wav", "sub/dir.wav", `..\x.wav`, "", ".."} {
		err := s.Put(ctx, entity.KindUploads, name, strings.NewReader("x"), 1, "")
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
	_, _, err := s.Open(ctx, entity.ArtifactKind("etc"), "passwd")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestFileStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, entity.KindProcessed, "old_enhanced.wav", strings.NewReader("o"), 1, ""))
	require.NoError(t, s.Put(ctx, entity.KindProcessed, "new_enhanced.wav", strings.NewReader("n"), 1, ""))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(s.Dir(entity.KindProcessed), "old_enhanced.wav"), past, past))

	n, err := s.Sweep(ctx, entity.KindProcessed, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, _, err = s.Open(ctx, entity.KindProcessed, "old_enhanced.wav")
	assert.ErrorIs(t, err, ErrNotFound)
	f, _, err := s.Open(ctx, entity.KindProcessed, "new_enhanced.wav")
	require.NoError(t, err)
	f.Close()
}

func TestFileStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, entity.KindUploads, "x.mp3", strings.NewReader("x"), 1, ""))
	require.NoError(t, s.Delete(ctx, entity.KindUploads, "x.mp3"))
	assert.ErrorIs(t, s.Delete(ctx, entity.KindUploads, "x.mp3"), ErrNotFound)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "audio/mpeg", ContentTypeFor("a.MP3"))
	assert.Equal(t, "audio/aiff", ContentTypeFor("a.aiff"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("noext"))
}
