package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/toolkitvision/toolcheck-go/internal/errors"
)

// RemoteBackend posts image bytes to an external detection service and is
// opaque to the caller: it reports no recognizable classes and does not
// retry failed requests, retries belong to the caller.
type RemoteBackend struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewRemoteBackend creates a backend for the detection service at baseURL.
// Every request is bounded by the given timeout.
func NewRemoteBackend(baseURL string, timeout time.Duration) *RemoteBackend {
	return &RemoteBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// remoteResponse is the wire format of the detection service.
type remoteResponse struct {
	Detections []struct {
		ToolID     string  `json:"tool_id"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"detections"`
}

// Detect uploads the image as multipart form data to {base}/detect and
// maps the response 1:1 to Detection records. A non-2xx response or a
// timeout is a backend invocation error.
func (r *RemoteBackend) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("remote detect: cannot read image: %w", err)).
			Component(serviceName).
			Category(errors.CategoryFileIO).
			Context("image_path", imagePath).
			Build()
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, errors.New(err).Component(serviceName).Category(errors.CategoryNetwork).Build()
	}
	if _, err := part.Write(data); err != nil {
		return nil, errors.New(err).Component(serviceName).Category(errors.CategoryNetwork).Build()
	}
	if err := writer.Close(); err != nil {
		return nil, errors.New(err).Component(serviceName).Category(errors.CategoryNetwork).Build()
	}

	detectURL := r.baseURL + "/detect"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, detectURL, &body)
	if err != nil {
		return nil, errors.New(err).Component(serviceName).Category(errors.CategoryNetwork).Build()
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.NetworkError(fmt.Errorf("remote detect request failed: %w", err), detectURL, r.timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Newf("remote detect returned status %d", resp.StatusCode).
			Component(serviceName).
			Category(errors.CategoryNetwork).
			NetworkContext(detectURL, r.timeout).
			Context("status_code", resp.StatusCode).
			Build()
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NetworkError(fmt.Errorf("remote detect: cannot read response: %w", err), detectURL, r.timeout)
	}

	var parsed remoteResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, errors.New(fmt.Errorf("remote detect: invalid response body: %w", err)).
			Component(serviceName).
			Category(errors.CategoryNetwork).
			NetworkContext(detectURL, r.timeout).
			Build()
	}

	detections := make([]Detection, 0, len(parsed.Detections))
	for _, item := range parsed.Detections {
		detections = append(detections, Detection{
			ToolID:     item.ToolID,
			Label:      item.Label,
			Confidence: item.Confidence,
		})
	}
	return detections, nil
}

// Describe implements Backend. The class list is empty because the remote
// service is opaque to this process.
func (r *RemoteBackend) Describe() BackendInfo {
	return BackendInfo{
		Backend:    KindRemote,
		Configured: true,
		Details: map[string]string{
			"base_url": r.baseURL,
			"timeout":  r.timeout.String(),
		},
		Classes: []string{},
	}
}
