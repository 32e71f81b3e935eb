package detection

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolkitvision/toolcheck-go/internal/conf"
)

func resolverSettings(t *testing.T) *conf.Settings {
	t.Helper()
	s := &conf.Settings{}
	s.Detection.RemoteTimeout = 8 * time.Second
	s.Detection.ModelPath = filepath.Join(t.TempDir(), "missing.tflite")
	s.Detection.DatasetPath = filepath.Join(t.TempDir(), "missing.yaml")
	s.Detection.Confidence = 0.25
	s.Detection.ImageSize = 640
	s.Detection.MockLatency = 0
	return s
}

func TestNewBackendPrefersRemote(t *testing.T) {
	t.Parallel()

	settings := resolverSettings(t)
	settings.Detection.RemoteURL = "http://detector.local"

	backend := NewBackend(settings)
	require.IsType(t, &RemoteBackend{}, backend)
	assert.Equal(t, KindRemote, backend.Describe().Backend)
}

func TestNewBackendFallsBackToMock(t *testing.T) {
	t.Parallel()

	// model and dataset paths point to missing files, the local variant
	// must fail and the error must not propagate
	backend := NewBackend(resolverSettings(t))
	require.IsType(t, &MockBackend{}, backend)
	assert.Equal(t, KindMock, backend.Describe().Backend)
}

func TestNewBackendFallsBackOnMalformedDataset(t *testing.T) {
	t.Parallel()

	settings := resolverSettings(t)
	settings.Detection.DatasetPath = writeImageFixture(t, "dataset.yaml", 16) // no names mapping

	backend := NewBackend(settings)
	require.IsType(t, &MockBackend{}, backend)
}

func TestResolveMemoizes(t *testing.T) {
	settings := resolverSettings(t)

	first := Resolve(settings)
	second := Resolve(settings)
	assert.Same(t, first, second)
}
