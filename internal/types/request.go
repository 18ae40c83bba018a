package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// District identifies the region the results page is switched to.
type District struct {
	// Code is the identifier passed to the page's selection routine (e.g. "LAVALLEJA").
	Code string

	// Name is the display name passed alongside the code (e.g. "Lavalleja").
	Name string
}

// Request describes one page load: where to go, what to wait for, and which
// in-page selection to trigger.
type Request struct {
	// URL is the results page to load.
	URL *url.URL

	// District is passed to the page's selection routine.
	District District

	// SelectFunc is the name of the global JS function that switches the
	// page to a district. Empty means no selection is triggered.
	SelectFunc string

	// WaitSelector must match an element before the selection is triggered.
	WaitSelector string

	// Headers are custom HTTP headers to send with the request.
	Headers http.Header

	// Timeout overrides the navigation timeout for this request.
	Timeout time.Duration

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewRequest creates a new Request for a results page.
func NewRequest(rawURL string, district District) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w %q: missing scheme or host", ErrInvalidURL, rawURL)
	}

	return &Request{
		URL:       u,
		District:  district,
		Headers:   make(http.Header),
		CreatedAt: time.Now(),
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// SelectScript returns the JS function expression that triggers the
// district selection, suitable for evaluation with the code and name as
// arguments.
func (r *Request) SelectScript() string {
	if r.SelectFunc == "" {
		return ""
	}
	return fmt.Sprintf("(code, name) => %s(code, name)", r.SelectFunc)
}
