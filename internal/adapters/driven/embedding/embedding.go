// Package embedding holds helpers shared by the HTTP embedding adapters:
// status-code classification, input limits, rate pacing and vector checks.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// Identity renders "provider/model@dimensions".
func Identity(provider, model string, dimensions int) string {
	return fmt.Sprintf("%s/%s@%d", provider, model, dimensions)
}

// NewLimiter returns a limiter allowing rps requests per second.
// Zero or negative rps means unlimited.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until the limiter admits a request.
func Wait(ctx context.Context, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w: %w", domain.ErrEmbedding, domain.ErrTimeout, err)
	}
	return nil
}

// CheckInput rejects texts longer than maxChars characters.
// Zero maxChars disables the check.
func CheckInput(texts []string, maxChars int) error {
	if maxChars <= 0 {
		return nil
	}
	for i, text := range texts {
		if n := utf8.RuneCountInString(text); n > maxChars {
			return fmt.Errorf("%w: %w: input %d has %d characters (limit %d)",
				domain.ErrEmbedding, domain.ErrInputTooLarge, i, n, maxChars)
		}
	}
	return nil
}

// TransportError classifies a failed HTTP round trip.
func TransportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %s: %w", domain.ErrEmbedding, domain.ErrTimeout, provider, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %w", domain.ErrEmbedding, provider, err)
	}
	return fmt.Errorf("%w: %w: %s: %w", domain.ErrEmbedding, domain.ErrTransient, provider, err)
}

// StatusError maps a non-200 response onto domain causes.
func StatusError(provider string, code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	lower := strings.ToLower(msg)

	var cause error
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		cause = domain.ErrAuthInvalid
	case code == http.StatusTooManyRequests && strings.Contains(lower, "quota"):
		cause = domain.ErrQuotaExceeded
	case code == http.StatusTooManyRequests:
		cause = domain.ErrRateLimited
	case code == http.StatusRequestEntityTooLarge,
		code == http.StatusBadRequest && (strings.Contains(lower, "context length") || strings.Contains(lower, "too long")):
		cause = domain.ErrInputTooLarge
	case code == http.StatusNotFound:
		cause = domain.ErrNotFound
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		cause = domain.ErrTimeout
	case code >= http.StatusInternalServerError:
		cause = domain.ErrTransient
	default:
		cause = domain.ErrInvalidInput
	}
	return fmt.Errorf("%w: %w: %s error (status %d): %s", domain.ErrEmbedding, cause, provider, code, msg)
}

// ToFloat32 converts decoded JSON numbers and checks the vector length.
// Zero want skips the length check.
func ToFloat32(values []float64, want int) ([]float32, error) {
	if want > 0 && len(values) != want {
		return nil, fmt.Errorf("%w: %w: got %d dimensions, want %d",
			domain.ErrEmbedding, domain.ErrDimensionMismatch, len(values), want)
	}
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}
