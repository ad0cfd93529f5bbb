package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRejected classifies 400, 401, 403 and 422 responses: the server
	// refused the credentials or the request built from them.
	ErrRejected = errors.New("request rejected")
	// ErrThrottled classifies 429 responses.
	ErrThrottled = errors.New("auth api throttled")
	// ErrUnavailable classifies transport failures, timeouts, 5xx and any other
	// unexpected status such as a 404 from a misconfigured path.
	ErrUnavailable = errors.New("auth api unavailable")
	// ErrMalformed classifies 2xx responses missing required fields.
	ErrMalformed = errors.New("malformed auth response")
)

// APIError is a non-2xx response from the auth API.
type APIError struct {
	Op     string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: http %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.Status, e.Detail)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		return ErrRejected
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		return ErrUnavailable
	}
}

// IsUnauthorized reports whether err is a 401 from the auth API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// errorBody is the server error shape. detail is either a string or a list of
// validation entries carrying msg.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(eb.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
