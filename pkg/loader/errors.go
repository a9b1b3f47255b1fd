package loader

import (
	"fmt"
	"net/http"
)

// LoadError reports a failed fetch or parse. Status holds the HTTP status
// code, or 0 for transport and parse failures.
type LoadError struct {
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("failed to load %s: HTTP %d: %s", e.URL, e.Status, msg)
	}
	return fmt.Sprintf("failed to load %s: %s", e.URL, msg)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func httpError(url string, resp *http.Response) *LoadError {
	return &LoadError{
		URL:     url,
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}
}

func transportError(url string, err error) *LoadError {
	return &LoadError{URL: url, Message: err.Error(), Err: err}
}

func parseError(url string, format Format, err error) *LoadError {
	return &LoadError{
		URL:     url,
		Message: fmt.Sprintf("failed to parse %s: %v", format, err),
		Err:     err,
	}
}
