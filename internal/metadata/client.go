// Package metadata looks up bibliographic metadata for a DOI in the Crossref
// REST API. Lookup failures never escape this package: they are logged and
// turned into a Missing or Failed outcome, so a registry outage cannot halt
// a batch.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/sethgrid/pester"
	"github.com/sirupsen/logrus"

	"github.com/santhosh0000000/crossref-API/internal/fetch"
	"github.com/santhosh0000000/crossref-API/internal/models"
)

// ErrMalformed marks a works response that cannot be decoded.
var ErrMalformed = errors.New("metadata: malformed response")

// Doer abstracts https://pkg.go.dev/net/http#Client.Do.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client fetches works from the Crossref API
type Client struct {
	doer      Doer
	baseURL   string
	mailto    string
	userAgent string
	logger    logrus.FieldLogger
}

// Option configures a Client
type Option func(*Client)

// WithDoer sets the HTTP client
func WithDoer(d Doer) Option {
	return func(c *Client) {
		c.doer = d
	}
}

// WithMailto adds a contact address to every request, as suggested by the
// Crossref API etiquette.
func WithMailto(email string) Option {
	return func(c *Client) {
		c.mailto = email
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewRetryingDoer returns a pester client making up to attempts tries per
// request, retrying transport errors, 5xx and 429 responses. Each failed
// attempt is logged at error level with the DOI taken from the request URL
// under baseURL.
func NewRetryingDoer(baseURL string, timeout time.Duration, attempts int, logger logrus.FieldLogger) *pester.Client {
	client := pester.New()
	client.Timeout = timeout
	client.MaxRetries = attempts
	client.Backoff = pester.ExponentialBackoff
	client.SetRetryOnHTTP429(true)
	client.LogHook = func(e pester.ErrEntry) {
		entry := logger.WithFields(logrus.Fields{
			"doi":     doiFromURL(baseURL, e.URL),
			"url":     e.URL,
			"attempt": e.Attempt,
		})
		if e.Err != nil {
			entry = entry.WithError(e.Err)
		}
		entry.Error("An error occurred while fetching publication details")
	}
	return client
}

// NewClient creates a metadata client for the works endpoint at baseURL,
// e.g. https://api.crossref.org/works.
func NewClient(baseURL string, logger logrus.FieldLogger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = NewRetryingDoer(c.baseURL, 30*time.Second, 3, logger)
	}
	return c
}

// worksResponse is the Crossref envelope; the work itself is decoded
// field by field from Message.
type worksResponse struct {
	Status      string          `json:"status"`
	MessageType string          `json:"message-type"`
	Message     json.RawMessage `json:"message"`
}

// Metadata returns the publication metadata of doi. A non-200 status or a
// message that is not an object is Missing; transport and decode errors are
// Failed. Both are logged at error level.
func (c *Client) Metadata(ctx context.Context, doi string) models.Outcome[models.PublicationMetadata] {
	log := c.logger.WithFields(logrus.Fields{"doi": doi, "op": "metadata"})

	body, status, err := c.get(ctx, doi)
	if err != nil {
		log.Errorf("An error occurred while fetching publication details for DOI %s: %v", doi, err)
		return models.Failed[models.PublicationMetadata](err)
	}
	if status != http.StatusOK {
		log.WithField("status", status).Errorf("An error occurred while fetching publication details for DOI %s: HTTP %d", doi, status)
		return models.Missing[models.PublicationMetadata]()
	}

	var wr worksResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
		log.Errorf("An error occurred while fetching publication details for DOI %s: %v", doi, err)
		return models.Failed[models.PublicationMetadata](err)
	}

	md, ok := decodeWork(wr.Message)
	if !ok {
		log.Errorf("publication details for DOI %s are not an object", doi)
		return models.Missing[models.PublicationMetadata]()
	}
	return models.Success(md)
}

func (c *Client) get(ctx context.Context, doi string) ([]byte, int, error) {
	link := c.baseURL + "/" + fetch.EscapeDOI(doi)
	if c.mailto != "" {
		vs := url.Values{}
		vs.Add("mailto", c.mailto)
		link = link + "?" + vs.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// doiFromURL recovers the DOI from a works URL built by Client.get
func doiFromURL(baseURL, link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	prefix := strings.TrimRight(baseURL, "/") + "/"
	if b, err := url.Parse(prefix); err == nil {
		prefix = b.EscapedPath()
	}
	doi, err := url.PathUnescape(strings.TrimPrefix(u.EscapedPath(), prefix))
	if err != nil {
		return ""
	}
	return doi
}
