// Package session drives one user's enhancement workflow: pick a file,
// submit it, follow its progress and present the result.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/client"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/upload"
)

// API is the part of client.Client the controller uses.
type API interface {
	Submit(ctx context.Context, up client.Upload, intensity int) (*client.SubmitResponse, error)
	Status(ctx context.Context, fileID string) (*client.Status, error)
	Result(ctx context.Context, fileID string) (*client.Result, error)
	Cancel(ctx context.Context, fileID string) error
	ArtifactURL(kind, filename string) string
	DownloadURL(filename string) string
}

var _ API = (*client.Client)(nil)

type View string

const (
	ViewIdle         View = "idle"
	ViewFileSelected View = "file_selected"
	ViewProcessing   View = "processing"
	ViewResults      View = "results"
	ViewError        View = "error"
)

type Controls struct {
	Submit   bool
	Download bool
	Clear    bool
}

// File is a locally selected audio file. Open is called once per submission.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type Results struct {
	FileID           string
	OriginalFile     string
	EnhancedFile     string
	OriginalURL      string
	EnhancedURL      string
	DownloadURL      string
	IntensityLevel   string
	ModelUsed        string
	ModelDescription string
}

// State is a snapshot of everything the presenter shows.
type State struct {
	View      View
	File      *File
	Intensity int
	Tier      entity.Tier

	FileID        string
	EstimatedTime time.Duration
	Progress      int
	Stage         string
	Message       string
	Elapsed       time.Duration

	Results  *Results
	Controls Controls
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level
	Message string
}

// Presenter renders state. Methods run with the controller lock held and
// must not call back into the Controller.
type Presenter interface {
	Show(State)
	Notify(Notification)
}

type Option func(*Controller)

func WithPoller(p Poller) Option {
	return func(c *Controller) { c.poller = p }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// Controller owns the single active job of a session. At most one polling
// loop runs at a time; starting a new submission or clearing the file
// stops the previous loop and cancels its job on the server.
type Controller struct {
	api       API
	presenter Presenter
	poller    Poller
	log       zerolog.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	stop   context.CancelFunc
	active string

	wg sync.WaitGroup
}

func NewController(api API, presenter Presenter, opts ...Option) *Controller {
	c := &Controller{
		api:       api,
		presenter: presenter,
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.state = State{View: ViewIdle}
	c.setIntensityLocked(entity.DefaultIntensity)
	c.refreshLocked()
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelectFile validates f locally. A rejected file leaves the state as it
// was and is reported through Notify.
func (c *Controller) SelectFile(f File) error {
	if err := upload.Validate(upload.File{Name: f.Name, ContentType: f.ContentType, Size: f.Size}, upload.MaxSize); err != nil {
		c.mu.Lock()
		c.presenter.Notify(Notification{Level: LevelError, Message: err.Error()})
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.state.File = &f
	c.state.View = ViewFileSelected
	c.refreshLocked()
	return nil
}

func (c *Controller) ClearFile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.state.File = nil
	c.state.View = ViewIdle
	c.refreshLocked()
}

// SetIntensity clamps to 1..10 and updates the descriptive tier.
func (c *Controller) SetIntensity(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setIntensityLocked(i)
	c.refreshLocked()
}

func (c *Controller) setIntensityLocked(i int) {
	c.state.Intensity = entity.ClampIntensity(i)
	c.state.Tier = entity.TierForIntensity(c.state.Intensity)
}

var ErrNoFile = errors.New("no file selected")

// Submit uploads the selected file and starts following the new job in the
// background until the job ends or ctx is done. It returns once the server
// accepted or rejected the upload. A job still being followed is abandoned
// and cancelled on the server first.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state.File == nil {
		c.mu.Unlock()
		return ErrNoFile
	}
	c.resetLocked()
	gen := c.gen
	f := *c.state.File
	intensity := c.state.Intensity
	c.state.View = ViewProcessing
	c.state.Stage = string(entity.StatusUploading)
	c.state.Message = "Uploading audio"
	c.refreshLocked()
	c.mu.Unlock()

	resp, err := c.submit(ctx, f, intensity)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// superseded while uploading
		if err == nil {
			c.cancelRemote(resp.FileID)
		}
		return context.Canceled
	}
	if err != nil {
		c.state.View = ViewError
		c.state.Message = submitMessage(err)
		c.refreshLocked()
		c.presenter.Notify(Notification{Level: LevelError, Message: c.state.Message})
		return err
	}

	c.state.FileID = resp.FileID
	c.state.EstimatedTime = time.Duration(resp.EstimatedTime) * time.Second
	c.state.Stage = resp.Status
	c.state.Message = fmt.Sprintf("Enhancing with %s", resp.ModelUsed)
	c.refreshLocked()

	loopCtx, stop := context.WithCancel(ctx)
	c.stop = stop
	c.active = resp.FileID
	c.wg.Add(1)
	go c.follow(loopCtx, gen, resp.FileID)
	return nil
}

func (c *Controller) submit(ctx context.Context, f File, intensity int) (*client.SubmitResponse, error) {
	if f.Open == nil {
		return nil, ErrNoFile
	}
	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer body.Close()
	return c.api.Submit(ctx, client.Upload{Name: f.Name, ContentType: f.ContentType, Body: body}, intensity)
}

// submitMessage surfaces the server's error text verbatim.
func submitMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func (c *Controller) follow(ctx context.Context, gen uint64, fileID string) {
	defer c.wg.Done()

	res := c.poller.Run(ctx, fileID, c.api.Status, func(u Update) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return
		}
		c.state.Progress = u.Status.Progress
		c.state.Stage = u.Status.Stage
		c.state.Message = u.Status.Message
		c.state.Elapsed = u.Elapsed
		c.refreshLocked()
	})

	log := c.log.With().Str("file_id", fileID).Str("outcome", string(res.Outcome)).Logger()

	switch res.Outcome {
	case OutcomeCancelled:
		log.Debug().Int("polls", res.Polls).Msg("polling stopped")
		return
	case OutcomeComplete:
		c.finish(ctx, gen, fileID, log)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.detachLocked()
	c.state.View = ViewError
	c.state.Message = res.Message
	c.refreshLocked()
	c.presenter.Notify(Notification{Level: LevelError, Message: res.Message})
	log.Warn().Int("polls", res.Polls).Str("message", res.Message).Msg("job failed")
}

// finish fetches the result exactly once. A failed fetch is logged and the
// view stays in processing.
func (c *Controller) finish(ctx context.Context, gen uint64, fileID string, log zerolog.Logger) {
	r, err := c.api.Result(ctx, fileID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.detachLocked()
	if err != nil {
		log.Error().Err(err).Msg("fetch result")
		return
	}

	orig, enh := r.Original(), r.Enhanced()
	c.state.Progress = 100
	c.state.Stage = string(entity.StatusComplete)
	c.state.View = ViewResults
	c.state.Results = &Results{
		FileID:           fileID,
		OriginalFile:     orig.Filename,
		EnhancedFile:     enh.Filename,
		OriginalURL:      c.api.ArtifactURL(string(orig.Kind), orig.Filename),
		EnhancedURL:      c.api.ArtifactURL(string(enh.Kind), enh.Filename),
		DownloadURL:      c.api.DownloadURL(enh.Filename),
		IntensityLevel:   r.IntensityLevel,
		ModelUsed:        r.ModelUsed,
		ModelDescription: r.ModelDescription,
	}
	c.refreshLocked()
	c.presenter.Notify(Notification{Level: LevelSuccess, Message: "Audio enhanced successfully!"})
	log.Info().Str("enhanced_file", r.EnhancedFile).Msg("result ready")
}

// Wait blocks until the current polling loop and any server cancellations
// have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close stops the active loop without cancelling the job on the server.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	c.detachLocked()
	c.mu.Unlock()
	c.wg.Wait()
}

// resetLocked supersedes the active loop and clears job fields.
func (c *Controller) resetLocked() {
	c.gen++
	if c.active != "" {
		c.cancelRemote(c.active)
	}
	c.detachLocked()

	c.state.FileID = ""
	c.state.EstimatedTime = 0
	c.state.Progress = 0
	c.state.Stage = ""
	c.state.Message = ""
	c.state.Elapsed = 0
	c.state.Results = nil
}

// detachLocked releases the active loop's context.
func (c *Controller) detachLocked() {
	if c.stop != nil {
		c.stop()
	}
	c.stop = nil
	c.active = ""
}

func (c *Controller) cancelRemote(fileID string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.api.Cancel(ctx, fileID); err != nil {
			c.log.Debug().Err(err).Str("file_id", fileID).Msg("cancel previous job")
		}
	}()
}

func (c *Controller) refreshLocked() {
	c.state.Controls = controlsFor(c.state.View, c.state.File != nil)
	c.presenter.Show(c.state)
}

func controlsFor(v View, hasFile bool) Controls {
	return Controls{
		Submit:   hasFile && (v == ViewFileSelected || v == ViewResults || v == ViewError),
		Download: v == ViewResults,
		Clear:    hasFile,
	}
}
