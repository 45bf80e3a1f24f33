package derrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCodeWalksChain(t *testing.T) {
	base := New(CodeNotFound, "evaluation missing")
	wrapped := Wrap(base, CodeInternal, "load evaluation")

	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeConflict))
}

func TestCodeOfOutermostWins(t *testing.T) {
	err := Wrap(New(CodeValidation, "bad scenario"), CodeBadRequest, "reject request")
	assert.Equal(t, CodeBadRequest, CodeOf(err))
}

func TestUntaggedErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
	assert.False(t, HasCode(err, CodeInternal))
}

func TestReasonRoundTrip(t *testing.T) {
	err := NewWithReason(CodeForbidden, "stale_window", "evaluation older than 24 hours")
	assert.Equal(t, "stale_window", ReasonOf(err))
	assert.Equal(t, CodeForbidden, CodeOf(err))
}

func TestWrapNilIsNil(t *testing.T) {
	require.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(fmt.Errorf("pq: connection refused"), CodeInternal, "save evaluation")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "save evaluation")
}
