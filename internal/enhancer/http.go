package enhancer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// HTTPModel posts raw audio to a hosted inference endpoint and expects
// enhanced audio back in the response body.
type HTTPModel struct {
	url    string
	apiKey string
	client *http.Client
}

var _ Enhancer = (*HTTPModel)(nil)

func NewHTTPModel(endpoint, apiKey string, timeout time.Duration) *HTTPModel {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPModel{
		url:    endpoint,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (m *HTTPModel) OutputExt() string { return "wav" }

func (m *HTTPModel) Enhance(ctx context.Context, req Request) error {
	in, err := os.Open(req.InputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return err
	}

	u, err := url.Parse(m.url)
	if err != nil {
		return fmt.Errorf("invalid model url: %w", err)
	}
	q := u.Query()
	q.Set("model", req.Model)
	q.Set("tier", string(req.Tier))
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), in)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.ContentLength = st.Size()
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("Accept", "audio/wav")
	if m.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	req.report(10)
	resp, err := m.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model responded with status %d: %s", resp.StatusCode, errorDetail(resp.Body))
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("model returned json instead of audio: %s", errorDetail(resp.Body))
	}
	req.report(60)

	n, err := writeOutput(req.OutputPath, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read model response: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("model returned no audio")
	}
	req.report(100)
	return nil
}

// errorDetail pulls a short message out of an error body.
func errorDetail(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4<<10))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
