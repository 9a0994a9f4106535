// Package enhancer is the boundary to the speech-enhancement model.
package enhancer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
)

// Request describes one enhancement run on local files.
type Request struct {
	InputPath  string
	OutputPath string
	Tier       entity.Tier
	Model      string
	// Progress, when set, receives 0-100 as the model advances.
	Progress func(percent int)
}

func (r Request) report(p int) {
	if r.Progress != nil {
		r.Progress(p)
	}
}

type Enhancer interface {
	Enhance(ctx context.Context, req Request) error
	// OutputExt is the extension of files the enhancer writes, "" for same as input.
	OutputExt() string
}

// Passthrough copies the input. It keeps the pipeline usable without a model.
type Passthrough struct{}

var _ Enhancer = Passthrough{}

func (Passthrough) OutputExt() string { return "" }

func (Passthrough) Enhance(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(req.InputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(req.OutputPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy audio: %w", err)
	}
	req.report(100)
	return out.Close()
}

// writeOutput stores body at path, creating the parent directory.
func writeOutput(path string, body io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, body)
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}
