package coreerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/stretchr/testify/assert"
)

func TestNewAndError(t *testing.T) {
	err := coreerr.New(coreerr.NotFound, "consultant not found")
	assert.Equal(t, "NOT_FOUND: consultant not found", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := coreerr.Wrap(coreerr.Infra, cause, "database operation failed")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewfFormats(t *testing.T) {
	err := coreerr.Newf(coreerr.BadInput, "invalid time %q", "25:00")
	assert.Equal(t, `BAD_INPUT: invalid time "25:00"`, err.Error())
}

func TestAsAndKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", coreerr.New(coreerr.SlotTaken, "slot already booked"))

	ce, ok := coreerr.As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, coreerr.SlotTaken, ce.Kind)
	assert.Equal(t, coreerr.SlotTaken, coreerr.KindOf(wrapped))

	plain := errors.New("unrelated failure")
	_, ok = coreerr.As(plain)
	assert.False(t, ok)
	assert.Equal(t, coreerr.Internal, coreerr.KindOf(plain))
}
