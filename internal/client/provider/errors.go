package provider

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited matches any APIError carrying HTTP 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrNotFound matches any APIError carrying HTTP 404.
	ErrNotFound = errors.New("not found")
)

type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Status, e.Body)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}
