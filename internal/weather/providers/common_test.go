package providers

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	b := BackoffConfig{InitialInterval: 100 * time.Millisecond, MaxInterval: 350 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for attempt, w := range want {
		if got := b.delay(attempt); got != w {
			t.Errorf("attempt %d: got %v, want %v", attempt, got, w)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	if !errors.Is(classify(http.StatusTooManyRequests), errRateLimited) {
		t.Error("429 should be rate limited")
	}
	if !errors.Is(classify(http.StatusBadGateway), errServerError) {
		t.Error("502 should be a server error")
	}
	if !errors.Is(classify(http.StatusUnauthorized), errUnexpected) {
		t.Error("401 should not be retried")
	}
}

func TestAcceptClientError(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusBadRequest:      true,
		http.StatusUnauthorized:    true,
		http.StatusNotFound:        true,
		http.StatusTooManyRequests: false,
		http.StatusBadGateway:      false,
	} {
		if got := acceptClientError(status); got != want {
			t.Errorf("acceptClientError(%d) = %v, want %v", status, got, want)
		}
	}
}
