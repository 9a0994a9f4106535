package infra

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/config"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/enhancer"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/repository/memory"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/storage"
)

func TestOpenBackends_InProcess(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		Storage:    config.Storage{Backend: "filesystem", UploadDir: filepath.Join(root, "u"), ProcessedDir: filepath.Join(root, "p")},
		Repository: config.Repository{Backend: "memory"},
		Queue:      config.Queue{Backend: "memory"},
		Enhancer:   config.Enhancer{Backend: "passthrough"},
		Workers:    1,
	}

	b, err := OpenBackends(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &memory.JobRepository{}, b.Repo)
	assert.IsType(t, &storage.FileStore{}, b.Store)
	assert.IsType(t, enhancer.Passthrough{}, b.Enhancer)
	assert.NotNil(t, b.Queue)
}

func TestNewEnhancer(t *testing.T) {
	e, err := NewEnhancer(config.Enhancer{Backend: "command", Command: "ffmpeg -y -i {input} -af afftdn {output}"})
	require.NoError(t, err)
	assert.IsType(t, &enhancer.Command{}, e)

	e, err = NewEnhancer(config.Enhancer{Backend: "http", URL: "http://model/enhance"})
	require.NoError(t, err)
	assert.IsType(t, &enhancer.HTTPModel{}, e)

	_, err = NewEnhancer(config.Enhancer{Backend: "command", Command: "   "})
	assert.Error(t, err)
}
