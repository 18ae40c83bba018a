package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is a rendered results page captured by a fetcher.
type Page struct {
	// StatusCode is the HTTP status code, or 200 for browser captures.
	StatusCode int

	// Headers are the response HTTP headers (empty for browser captures).
	Headers http.Header

	// Body is the rendered HTML.
	Body []byte

	// Request is a reference to the original request.
	Request *Request

	// FinalURL is the URL after any redirects.
	FinalURL string

	// Doc is a parsed goquery document (lazily loaded).
	Doc *goquery.Document

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// CapturedAt is when the page content was captured.
	CapturedAt time.Time
}

// NewPage creates a Page from captured HTML.
func NewPage(req *Request, statusCode int, body []byte, finalURL string, duration time.Duration) *Page {
	return &Page{
		StatusCode:    statusCode,
		Headers:       make(http.Header),
		Body:          body,
		Request:       req,
		FinalURL:      finalURL,
		FetchDuration: duration,
		CapturedAt:    time.Now(),
	}
}

// Document returns a parsed goquery document, lazily initializing it.
func (p *Page) Document() (*goquery.Document, error) {
	if p.Doc != nil {
		return p.Doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, err
	}
	p.Doc = doc
	return doc, nil
}

// URL returns the best known URL for the page.
func (p *Page) URL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	if p.Request != nil {
		return p.Request.URLString()
	}
	return ""
}

// District returns the district code the page was switched to.
func (p *Page) District() string {
	if p.Request == nil {
		return ""
	}
	return p.Request.District.Code
}

// IsSuccess returns true if the response status is 2xx.
func (p *Page) IsSuccess() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}
