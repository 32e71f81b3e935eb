// Package detection provides the object detection backend abstraction.
// Three interchangeable variants exist: a deterministic mock, a remote
// HTTP detection service, and a local TFLite model. A resolver picks one
// variant at process start based on configuration and memoizes it.
package detection

import (
	"context"
	"log/slog"
	"sync"

	"github.com/toolkitvision/toolcheck-go/internal/conf"
	"github.com/toolkitvision/toolcheck-go/internal/logging"
)

// Backend kind identifiers reported by Describe.
const (
	KindMock   = "mock"
	KindRemote = "remote"
	KindLocal  = "local-model"
)

// Detection is one object observed by a backend in an image.
// ToolID is empty when the backend detected an object it cannot map to
// the catalog.
type Detection struct {
	ToolID     string  `json:"tool_id,omitempty"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// BackendInfo is a descriptive snapshot of the active backend.
type BackendInfo struct {
	Backend    string            `json:"backend"`
	Configured bool              `json:"configured"`
	Details    map[string]string `json:"details"`
	Classes    []string          `json:"classes"`
}

// Backend is the capability set shared by all detection variants.
// Implementations must be safe for concurrent Detect calls.
type Backend interface {
	// Detect runs inference on the image stored at imagePath.
	Detect(ctx context.Context, imagePath string) ([]Detection, error)
	// Describe returns a snapshot of the backend configuration.
	Describe() BackendInfo
}

const serviceName = "detection"

var logger *slog.Logger

func init() {
	logger = logging.ForService(serviceName)
	if logger == nil {
		logger = slog.Default().With("service", serviceName)
	}
}

// NewBackend selects a detection backend from settings:
//  1. a configured remote service address wins unconditionally,
//  2. otherwise the local model is attempted,
//  3. on any local model failure the mock backend is used and a warning
//     is logged; the configuration error never reaches the caller.
func NewBackend(settings *conf.Settings) Backend {
	if settings.Detection.RemoteURL != "" {
		return NewRemoteBackend(settings.Detection.RemoteURL, settings.Detection.RemoteTimeout)
	}

	local, err := NewLocalBackend(&settings.Detection)
	if err != nil {
		logger.Warn("falling back to mock detection backend",
			"error", err,
			"model_path", settings.Detection.ModelPath,
			"dataset_path", settings.Detection.DatasetPath)
		return NewMockBackend(settings.Detection.MockLatency)
	}
	return local
}

var (
	resolvedBackend Backend
	resolveOnce     sync.Once
)

// Resolve returns the process wide backend instance, creating it on first
// use. The same instance is shared by all callers for the process lifetime.
func Resolve(settings *conf.Settings) Backend {
	resolveOnce.Do(func() {
		resolvedBackend = NewBackend(settings)
		info := resolvedBackend.Describe()
		logger.Info("detection backend resolved",
			"backend", info.Backend,
			"configured", info.Configured)
	})
	return resolvedBackend
}
