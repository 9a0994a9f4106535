// Package client talks to the voice enhancer HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
)

var ErrJobNotFound = errors.New("job not found")

// APIError is a non-2xx answer; Message carries the server's "error" text.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type SubmitResponse struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	FileID         string `json:"file_id"`
	EstimatedTime  int    `json:"estimated_time"`
	IntensityLevel string `json:"intensity_level"`
	ModelUsed      string `json:"model_used"`
}

type Status struct {
	FileID   string `json:"file_id"`
	Progress int    `json:"progress"`
	Stage    string `json:"stage"`
	Message  string `json:"message"`
}

type Result struct {
	Success          bool   `json:"success"`
	FileID           string `json:"file_id"`
	OriginalFile     string `json:"original_file"`
	EnhancedFile     string `json:"enhanced_file"`
	IntensityLevel   string `json:"intensity_level"`
	ModelUsed        string `json:"model_used"`
	ModelDescription string `json:"model_description"`
}

// Original references the uploaded file as stored by the server.
func (r Result) Original() entity.Artifact {
	return entity.Artifact{Kind: entity.KindUploads, Filename: r.OriginalFile}
}

// Enhanced references the model output.
func (r Result) Enhanced() entity.Artifact {
	return entity.Artifact{Kind: entity.KindProcessed, Filename: r.EnhancedFile}
}

// Upload is an audio file on its way to the server.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type Client struct {
	base *url.URL
	http *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q needs scheme and host", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 5 * time.Minute}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.base.String() + "/api/" + strings.Join(escaped, "/")
}

// Submit streams the file as multipart form data with the intensity field.
func (c *Client) Submit(ctx context.Context, up Upload, intensity int) (*SubmitResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeForm(mw, up, intensity)
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("process"), pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out SubmitResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.FileID == "" {
		return nil, errors.New("submit: response has no file_id")
	}
	return &out, nil
}

func writeForm(mw *multipart.Writer, up Upload, intensity int) error {
	if err := mw.WriteField("intensity", strconv.Itoa(intensity)); err != nil {
		return err
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, up.Name))
	ct := up.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	hdr.Set("Content-Type", ct)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return err
	}
	return mw.Close()
}

func (c *Client) Status(ctx context.Context, fileID string) (*Status, error) {
	var out Status
	if err := c.get(ctx, c.endpoint("status", fileID), &out); err != nil {
		return nil, jobErr(err)
	}
	return &out, nil
}

func (c *Client) Result(ctx context.Context, fileID string) (*Result, error) {
	var out Result
	if err := c.get(ctx, c.endpoint("result", fileID), &out); err != nil {
		return nil, jobErr(err)
	}
	return &out, nil
}

func (c *Client) Cancel(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("jobs", fileID), nil)
	if err != nil {
		return err
	}
	return jobErr(c.do(req, nil))
}

// ArtifactURL is the playback address of an original ("uploads") or enhanced
// ("processed") file.
func (c *Client) ArtifactURL(kind, filename string) string {
	return c.endpoint("audio", kind, filename)
}

func (c *Client) DownloadURL(filename string) string {
	return c.endpoint("download", filename)
}

// Download copies the enhanced file into w and returns the byte count.
func (c *Client) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	return c.copy(ctx, c.DownloadURL(filename), w)
}

// FetchArtifact copies an original or enhanced file into w.
func (c *Client) FetchArtifact(ctx context.Context, kind, filename string, w io.Writer) (int64, error) {
	return c.copy(ctx, c.ArtifactURL(kind, filename), w)
}

func (c *Client) copy(ctx context.Context, target string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (c *Client) get(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// jobErr marks a 404 from a job endpoint with ErrJobNotFound.
func jobErr(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrJobNotFound, apiErr)
	}
	return err
}
