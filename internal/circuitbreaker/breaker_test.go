package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New(Settings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())
	boom := errors.New("boom")

	assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New(Settings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())
	boom := errors.New("boom")

	_ = b.Do(func() error { return boom })
	assert.NoError(t, b.Do(func() error { return nil }))
	_ = b.Do(func() error { return boom })

	assert.Equal(t, gobreaker.StateClosed, b.State())
}
