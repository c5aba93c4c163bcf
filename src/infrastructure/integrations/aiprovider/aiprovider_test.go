package aiprovider_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"

	"docsearch/src/core/aisearch"
	"docsearch/src/infrastructure/integrations/aiprovider"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline reached" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"net timeout", fmt.Errorf("post: %w", timeoutErr{}), true},
		{"connection reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{"broken pipe", fmt.Errorf("write: %w", syscall.EPIPE), true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"message", errors.New("socket hang up"), true},
		{"flagged call error", &aisearch.ProviderCallError{Provider: "openai", Op: "embed", Transient: true, Err: errors.New("x")}, true},
		{"http 400", &aisearch.ProviderCallError{Provider: "openai", Op: "embed", StatusCode: 400, Err: errors.New("bad input")}, false},
		{"http 504 body mentions timeout", &aisearch.ProviderCallError{Provider: "openai", Op: "chat", StatusCode: 504, Err: errors.New("upstream timeout")}, false},
		{"http 500 body mentions socket", fmt.Errorf("embed: %w", &aisearch.ProviderCallError{Provider: "ollama", Op: "embed", StatusCode: 500, Err: errors.New("socket closed by model runner")}), false},
		{"unclassified call error wrapping reset", &aisearch.ProviderCallError{Provider: "openai", Op: "embed", Err: syscall.ECONNRESET}, true},
		{"cancelled", fmt.Errorf("request: %w", context.Canceled), false},
		{"plain", errors.New("model not found"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aiprovider.IsTransient(tt.err))
		})
	}
}

func TestRetryOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("retries a transient failure once", func(t *testing.T) {
		calls := 0
		v, err := aiprovider.RetryOnce(ctx, logr.Discard(), "embed", func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, io.ErrUnexpectedEOF
			}
			return 42, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after the second attempt", func(t *testing.T) {
		calls := 0
		_, err := aiprovider.RetryOnce(ctx, logr.Discard(), "embed", func(context.Context) (int, error) {
			calls++
			return 0, io.ErrUnexpectedEOF
		})
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		_, err := aiprovider.RetryOnce(ctx, logr.Discard(), "embed", func(context.Context) (int, error) {
			calls++
			return 0, errors.New("invalid model")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("does not retry after cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		_, err := aiprovider.RetryOnce(cctx, logr.Discard(), "embed", func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, io.ErrUnexpectedEOF
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestNewLimiter(t *testing.T) {
	unlimited := aiprovider.NewLimiter(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		assert.NoError(t, unlimited.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)

	limited := aiprovider.NewLimiter(1)
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow())
}
