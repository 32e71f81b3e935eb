package detection

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolkitvision/toolcheck-go/internal/errors"
)

func TestRemoteDetectSuccess(t *testing.T) {
	backend := NewRemoteBackend("http://detector.local/", 8*time.Second)
	httpmock.ActivateNonDefault(backend.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://detector.local/detect",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseMultipartForm(1<<20))
			_, header, err := req.FormFile("file")
			require.NoError(t, err)
			assert.Equal(t, "tray.jpg", header.Filename)

			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"detections": []map[string]any{
					{"tool_id": "pliers", "label": "Пассатижи универсальные", "confidence": 0.91},
					{"tool_id": nil, "label": "glove", "confidence": 0.43},
				},
			})
		})

	path := writeImageFixture(t, "tray.jpg", 128)
	detections, err := backend.Detect(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, detections, 2)
	assert.Equal(t, Detection{ToolID: "pliers", Label: "Пассатижи универсальные", Confidence: 0.91}, detections[0])
	assert.Empty(t, detections[1].ToolID)
	assert.Equal(t, "glove", detections[1].Label)
}

func TestRemoteDetectServerError(t *testing.T) {
	backend := NewRemoteBackend("http://detector.local", 8*time.Second)
	httpmock.ActivateNonDefault(backend.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://detector.local/detect",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	path := writeImageFixture(t, "tray.jpg", 128)
	_, err := backend.Detect(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.Contains(t, err.Error(), "500")
}

func TestRemoteDetectInvalidBody(t *testing.T) {
	backend := NewRemoteBackend("http://detector.local", 8*time.Second)
	httpmock.ActivateNonDefault(backend.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://detector.local/detect",
		httpmock.NewStringResponder(http.StatusOK, "not json"))

	path := writeImageFixture(t, "tray.jpg", 128)
	_, err := backend.Detect(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestRemoteDescribe(t *testing.T) {
	t.Parallel()

	info := NewRemoteBackend("http://detector.local/", 8*time.Second).Describe()
	assert.Equal(t, KindRemote, info.Backend)
	assert.True(t, info.Configured)
	assert.Equal(t, "http://detector.local", info.Details["base_url"])
	assert.Equal(t, "8s", info.Details["timeout"])
	assert.Empty(t, info.Classes)
}
