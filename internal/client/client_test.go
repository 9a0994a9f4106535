package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:5000")
	assert.Error(t, err)
}

func TestSubmit_SendsMultipartForm(t *testing.T) {
	var (
		gotName, gotType, gotIntensity string
		gotBody                        []byte
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/process", r.URL.Path)
		f, hdr, err := r.FormFile("audio")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotBody, _ = io.ReadAll(f)
		gotName = hdr.Filename
		gotType = hdr.Header.Get("Content-Type")
		gotIntensity = r.FormValue("intensity")

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true, "status": "processing", "file_id": "abc", "estimated_time": 21,
			"intensity_level": "medium", "model_used": "MossFormer2_SE_48K",
		})
	}))

	resp, err := c.Submit(context.Background(), Upload{Name: "voice.wav", ContentType: "audio/wav", Body: strings.NewReader("RIFF")}, 5)
	require.NoError(t, err)

	assert.Equal(t, "abc", resp.FileID)
	assert.Equal(t, 21, resp.EstimatedTime)
	assert.Equal(t, "medium", resp.IntensityLevel)
	assert.Equal(t, "voice.wav", gotName)
	assert.Equal(t, "audio/wav", gotType)
	assert.Equal(t, "5", gotIntensity)
	assert.Equal(t, "RIFF", string(gotBody))
}

func TestSubmit_SurfacesServerErrorVerbatim(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write([]byte(`{"error":"File too large. Maximum size is 50MB."}`))
	}))

	_, err := c.Submit(context.Background(), Upload{Name: "a.wav", Body: strings.NewReader("x")}, 5)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.StatusCode)
	assert.Equal(t, "File too large. Maximum size is 50MB.", apiErr.Message)
}

func TestSubmit_PlainTextError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))

	_, err := c.Submit(context.Background(), Upload{Name: "a.wav", Body: strings.NewReader("x")}, 5)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestStatus_AndNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status/known" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"job not found"}`))
			return
		}
		w.Write([]byte(`{"file_id":"known","progress":40,"stage":"processing","message":"Enhancing"}`))
	}))

	st, err := c.Status(context.Background(), "known")
	require.NoError(t, err)
	assert.Equal(t, Status{FileID: "known", Progress: 40, Stage: "processing", Message: "Enhancing"}, *st)

	_, err = c.Status(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestResultAndCancel(t *testing.T) {
	var cancelled string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			cancelled = strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			w.Write([]byte(`{"success":true,"status":"cancelled"}`))
		default:
			w.Write([]byte(`{"success":true,"file_id":"x","original_file":"x_original.wav","enhanced_file":"x_enhanced.wav","model_used":"FRCRN_SE_16K"}`))
		}
	}))

	res, err := c.Result(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "x_original.wav", res.OriginalFile)
	assert.Equal(t, "x_enhanced.wav", res.EnhancedFile)
	assert.Equal(t, entity.Artifact{Kind: entity.KindUploads, Filename: "x_original.wav"}, res.Original())
	assert.Equal(t, entity.Artifact{Kind: entity.KindProcessed, Filename: "x_enhanced.wav"}, res.Enhanced())

	require.NoError(t, c.Cancel(context.Background(), "x"))
	assert.Equal(t, "x", cancelled)
}

func TestURLsAndDownload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/download/x_enhanced.wav" {
			w.Write([]byte("clean"))
			return
		}
		http.NotFound(w, r)
	}))

	assert.True(t, strings.HasSuffix(c.ArtifactURL("uploads", "x_original.wav"), "/api/audio/uploads/x_original.wav"))
	assert.True(t, strings.HasSuffix(c.DownloadURL("x_enhanced.wav"), "/api/download/x_enhanced.wav"))

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "x_enhanced.wav", &buf)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, "clean", buf.String())

	_, err = c.FetchArtifact(context.Background(), "processed", "missing.wav", io.Discard)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
