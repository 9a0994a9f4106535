// cmd/enhance/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/client"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/session"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/storage"
)

func main() {
	var (
		server    = flag.StringP("server", "s", "http://localhost:5000", "voice enhancer API base URL")
		intensity = flag.IntP("intensity", "i", 5, "noise reduction intensity 1-10")
		out       = flag.StringP("out", "o", "", "where to write the enhanced file (default <name>_enhanced.<ext>)")
		interval  = flag.Duration("interval", session.DefaultInterval, "status poll interval")
		logLevel  = flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <audio file>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).With().Timestamp().Logger()

	if err := run(flag.Arg(0), *server, *intensity, *out, *interval, log); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(path, server string, intensity int, out string, interval time.Duration, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := os.Stat(path)
	if err != nil {
		return err
	}

	api, err := client.New(server)
	if err != nil {
		return err
	}

	c := session.NewController(api, &terminal{w: os.Stderr}, session.WithLogger(log),
		session.WithPoller(session.Poller{Interval: interval}))

	name := filepath.Base(path)
	if err := c.SelectFile(session.File{
		Name:        name,
		ContentType: storage.ContentTypeFor(name),
		Size:        st.Size(),
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}); err != nil {
		return err
	}
	c.SetIntensity(intensity)

	if err := c.Submit(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	if ctx.Err() != nil {
		// clearing cancels the job on the server
		c.ClearFile()
		<-done
		c.Wait()
		return ctx.Err()
	}

	final := c.State()
	switch final.View {
	case session.ViewResults:
	case session.ViewProcessing:
		return fmt.Errorf("job %s finished but its result could not be fetched", final.FileID)
	default:
		return fmt.Errorf("%s", final.Message)
	}

	r := final.Results
	if out == "" {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		out = base + "_enhanced" + filepath.Ext(r.EnhancedFile)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	n, err := api.Download(context.Background(), r.EnhancedFile, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	fmt.Fprintf(os.Stdout, "%s (%s, %s tier, %s)\n", out, humanize.IBytes(uint64(n)), r.IntensityLevel, r.ModelUsed)
	fmt.Fprintf(os.Stdout, "original: %s\nenhanced: %s\n", r.OriginalURL, r.EnhancedURL)
	return nil
}

// terminal renders progress lines, skipping repeats.
type terminal struct {
	w    io.Writer
	last string
}

func (t *terminal) Show(s session.State) {
	var line string
	switch s.View {
	case session.ViewFileSelected:
		line = fmt.Sprintf("selected %s (%s), intensity %d (%s)",
			s.File.Name, humanize.IBytes(uint64(s.File.Size)), s.Intensity, s.Tier)
	case session.ViewProcessing:
		line = fmt.Sprintf("[%3d%%] %-10s %s", s.Progress, s.Stage, s.Message)
		if s.Elapsed > 0 {
			line += fmt.Sprintf(" (%s", s.Elapsed.Truncate(time.Second))
			if s.EstimatedTime > 0 {
				line += fmt.Sprintf(" of ~%s", s.EstimatedTime)
			}
			line += ")"
		}
	default:
		return
	}
	if line == t.last {
		return
	}
	t.last = line
	fmt.Fprintln(t.w, line)
}

func (t *terminal) Notify(n session.Notification) {
	fmt.Fprintf(t.w, "%s: %s\n", n.Level, n.Message)
}
