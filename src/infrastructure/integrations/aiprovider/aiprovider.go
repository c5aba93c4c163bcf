// Package aiprovider holds what the embedding and completion drivers share:
// transient error classification, the single retry and request throttling.
package aiprovider

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	"docsearch/src/core/aisearch"
)

var transientMarkers = []string{"timeout", "socket", "connection reset", "fetch failed"}

// IsTransient reports network failures that may succeed on a second attempt.
// Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	// A provider that answered with a status decided for itself.
	var callErr *aisearch.ProviderCallError
	if errors.As(err, &callErr) {
		if callErr.Transient || callErr.StatusCode != 0 {
			return callErr.Transient
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// RetryOnce calls fn and calls it a second time if the first attempt failed
// with a transient error and ctx is still live.
func RetryOnce[T any](ctx context.Context, logger logr.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return v, err
	}

	logger.Info("transient provider error; retrying once", "op", op, "error", err.Error())
	return fn(ctx)
}

// NewLimiter returns a limiter allowing perSecond requests per second with a
// burst of one. A non-positive rate disables throttling.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
