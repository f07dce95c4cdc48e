package provider

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
)

// APIError is returned by providers when the upstream answered with an error status.
type APIError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s API error %d (%s): %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

var rateLimitCodes = map[int]bool{
	http.StatusTooManyRequests: true,
}

var rateLimitPattern = regexp.MustCompile(`(?i)\b429\b|quota|resource_exhausted|rate.?limit`)

// IsRateLimited reports whether err signals an exhausted quota or rate limit,
// either through a typed APIError or through its message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if rateLimitCodes[apiErr.StatusCode] || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return true
		}
	}
	return rateLimitPattern.MatchString(err.Error())
}
