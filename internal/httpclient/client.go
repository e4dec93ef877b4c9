package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const UserAgent = "rslauncher/1.0"

// Options configures the shared HTTP client.
type Options struct {
	Timeout       time.Duration
	RetryCount    int
	RetryWait     time.Duration
	RetryMaxWait  time.Duration
	ConnectionMax int
}

func DefaultOptions() Options {
	return Options{
		Timeout:       30 * time.Second,
		RetryCount:    3,
		RetryWait:     time.Second,
		RetryMaxWait:  10 * time.Second,
		ConnectionMax: 16,
	}
}

// New returns a resty client that retries transient failures. Large downloads should
// disable the client timeout per request by streaming the body.
func New(opts Options) *resty.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = opts.ConnectionMax

	return resty.New().
		SetTransport(transport).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		SetHeader("User-Agent", UserAgent)
}

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// CheckResponse turns a non-2xx response into a StatusError.
func CheckResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return &StatusError{URL: resp.Request.URL, Status: resp.StatusCode()}
}
