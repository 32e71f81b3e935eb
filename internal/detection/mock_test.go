package detection

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolkitvision/toolcheck-go/internal/catalog"
)

func writeImageFixture(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestMockDetectDeterministic(t *testing.T) {
	t.Parallel()

	backend := NewMockBackend(0)
	path := writeImageFixture(t, "handout.jpg", 2048)

	first, err := backend.Detect(context.Background(), path)
	require.NoError(t, err)
	second, err := backend.Detect(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMockDetectSameNameAndSizeInDifferentDirs(t *testing.T) {
	t.Parallel()

	backend := NewMockBackend(0)
	a := writeImageFixture(t, "upload.png", 512)
	b := writeImageFixture(t, "upload.png", 512)

	fromA, err := backend.Detect(context.Background(), a)
	require.NoError(t, err)
	fromB, err := backend.Detect(context.Background(), b)
	require.NoError(t, err)

	// seed depends on base name and byte length only
	assert.Equal(t, fromA, fromB)
}

func TestMockDetectDivergesOnByteLength(t *testing.T) {
	t.Parallel()

	backend := NewMockBackend(0)

	// a handful of size pairs; at least one must differ
	diverged := false
	for _, sizes := range [][2]int{{100, 101}, {200, 300}, {1024, 4096}} {
		a := writeImageFixture(t, "same.jpg", sizes[0])
		b := writeImageFixture(t, "same.jpg", sizes[1])

		fromA, err := backend.Detect(context.Background(), a)
		require.NoError(t, err)
		fromB, err := backend.Detect(context.Background(), b)
		require.NoError(t, err)

		if !assert.ObjectsAreEqual(fromA, fromB) {
			diverged = true
			break
		}
	}
	assert.True(t, diverged, "different byte lengths should change the mock output")
}

func TestMockDetectShape(t *testing.T) {
	t.Parallel()

	backend := NewMockBackend(0)
	path := writeImageFixture(t, "shape.jpg", 999)

	results, err := backend.Detect(context.Background(), path)
	require.NoError(t, err)

	// at least half the catalog, at most the full catalog plus one unknown
	require.GreaterOrEqual(t, len(results), catalog.Size()/2)
	require.LessOrEqual(t, len(results), catalog.Size()+1)

	seen := make(map[string]bool)
	for _, d := range results {
		if d.ToolID == "" {
			assert.Equal(t, "Unknown object", d.Label)
			assert.GreaterOrEqual(t, d.Confidence, 0.4)
			assert.Less(t, d.Confidence, 0.71)
			continue
		}
		assert.True(t, catalog.Contains(d.ToolID))
		assert.False(t, seen[d.ToolID], "tool %s emitted twice", d.ToolID)
		seen[d.ToolID] = true
		assert.GreaterOrEqual(t, d.Confidence, 0.65)
		assert.Less(t, d.Confidence, 0.951)
	}
}

func TestMockDetectMissingFile(t *testing.T) {
	t.Parallel()

	backend := NewMockBackend(0)
	_, err := backend.Detect(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	require.Error(t, err)
}

func TestMockDetectLatencyCancellation(t *testing.T) {
	t.Parallel()

	backend := NewMockBackend(5 * time.Second)
	path := writeImageFixture(t, "slow.jpg", 64)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := backend.Detect(ctx, path)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestMockDescribe(t *testing.T) {
	t.Parallel()

	info := NewMockBackend(50 * time.Millisecond).Describe()
	assert.Equal(t, KindMock, info.Backend)
	assert.False(t, info.Configured)
	assert.Equal(t, "50ms", info.Details["latency"])
	assert.Equal(t, catalog.Names(), info.Classes)
}
