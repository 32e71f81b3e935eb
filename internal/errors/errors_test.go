package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilderDefaults(t *testing.T) {
	t.Parallel()

	err := New(NewStd("boom")).Build()

	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, ComponentUnknown, err.Component)
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.False(t, err.Timestamp.IsZero())
}

func TestErrorBuilderMetadata(t *testing.T) {
	t.Parallel()

	err := Newf("detect failed: %s", "timeout").
		Component("detection").
		Category(CategoryNetwork).
		NetworkContext("http://example.com/detect", 8*time.Second).
		Context("attempt", 1).
		Build()

	assert.Equal(t, "detection", err.Component)
	assert.Equal(t, CategoryNetwork, err.Category)

	ctx := err.GetContext()
	assert.Equal(t, "http://example.com/detect", ctx["url"])
	assert.Equal(t, 8.0, ctx["timeout_seconds"])
	assert.Equal(t, 1, ctx["attempt"])

	// GetContext must return a copy
	ctx["attempt"] = 99
	assert.Equal(t, 1, err.Context["attempt"])
}

func TestUnwrapPreservesChain(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("root cause")
	wrapped := New(fmt.Errorf("outer: %w", sentinel)).Category(CategoryDatabase).Build()

	require.ErrorIs(t, wrapped, sentinel)
}

func TestCategoryHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidation(ValidationError("bad threshold %f", 2.0)))
	assert.True(t, IsNotFound(NotFoundError("session %s", "abc")))
	assert.False(t, IsNotFound(ValidationError("nope")))
	assert.False(t, IsCategory(NewStd("plain"), CategoryValidation))
}

func TestEnhancedErrorIsMatchesCategory(t *testing.T) {
	t.Parallel()

	a := Newf("one").Category(CategoryNetwork).Build()
	b := Newf("two").Category(CategoryNetwork).Build()
	c := Newf("three").Category(CategoryDatabase).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}
