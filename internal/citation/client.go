// Package citation looks up citation counts and citing DOIs in the
// OpenCitations index.
package citation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/sirupsen/logrus"

	"github.com/santhosh0000000/crossref-API/internal/fetch"
	"github.com/santhosh0000000/crossref-API/internal/models"
)

// ErrMalformed marks a response body that does not have the expected shape.
var ErrMalformed = errors.New("citation: malformed response")

// Fetcher is the retrying GET the client is built on
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

// Client queries the citation-count and citations endpoints
type Client struct {
	fetcher  Fetcher
	countURL string
	citesURL string
	logger   logrus.FieldLogger
}

// NewClient creates a citation client. countURL and citationsURL are the
// endpoint prefixes the DOI is appended to.
func NewClient(fetcher Fetcher, countURL, citationsURL string, logger logrus.FieldLogger) *Client {
	return &Client{
		fetcher:  fetcher,
		countURL: strings.TrimRight(countURL, "/"),
		citesURL: strings.TrimRight(citationsURL, "/"),
		logger:   logger,
	}
}

type countEntry struct {
	Count json.RawMessage `json:"count"`
}

type citationEntry struct {
	Cited string `json:"cited"`
}

// Citations runs both lookups for doi
func (c *Client) Citations(ctx context.Context, doi string) models.CitationInfo {
	return models.CitationInfo{
		Count:      c.CitationCount(ctx, doi),
		CitingDOIs: c.CitationDOIs(ctx, doi),
	}
}

// CitationCount returns the citation count of doi as an integer string.
// An empty answer or a non-200 status is Missing; transport and parse
// errors are logged and reported as Failed.
func (c *Client) CitationCount(ctx context.Context, doi string) models.Outcome[string] {
	log := c.logger.WithFields(logrus.Fields{"doi": doi, "op": "citation_count"})

	resp, err := c.fetcher.Fetch(ctx, c.countURL+"/"+fetch.EscapeDOI(doi))
	if err != nil {
		log.Errorf("An error occurred while fetching citation count: %v", err)
		return models.Failed[string](err)
	}
	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Info("citation count not available")
		return models.Missing[string]()
	}

	var entries []countEntry
	if err := json.Unmarshal(resp.Body, &entries); err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
		log.Errorf("An error occurred while fetching citation count: %v", err)
		return models.Failed[string](err)
	}
	if len(entries) == 0 {
		return models.Missing[string]()
	}

	count, err := parseCount(entries[0].Count)
	if err != nil {
		log.Errorf("An error occurred while fetching citation count: %v", err)
		return models.Failed[string](err)
	}
	return models.Success(count)
}

// parseCount accepts the count as a JSON string or number and returns its
// decimal form.
func parseCount(raw json.RawMessage) (string, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", fmt.Errorf("%w: count field absent", ErrMalformed)
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		s = strings.TrimSpace(s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: count %q is not an integer", ErrMalformed, s)
	}
	return strconv.FormatInt(n, 10), nil
}

// CitationDOIs returns the `cited` values of the citations of doi, in
// response order. A non-200 status is logged at info and Missing; transport
// and parse errors are logged and reported as Failed.
func (c *Client) CitationDOIs(ctx context.Context, doi string) models.Outcome[[]string] {
	log := c.logger.WithFields(logrus.Fields{"doi": doi, "op": "citation_dois"})

	resp, err := c.fetcher.Fetch(ctx, c.citesURL+"/"+fetch.EscapeDOI(doi))
	if err != nil {
		log.Errorf("An error occurred while fetching citation DOIs: %v", err)
		return models.Failed[[]string](err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Infof("Failed to fetch citation DOIs. Status code: %d", resp.StatusCode)
		return models.Missing[[]string]()
	}

	var entries []citationEntry
	if err := json.Unmarshal(resp.Body, &entries); err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
		log.Errorf("An error occurred while fetching citation DOIs: %v", err)
		return models.Failed[[]string](err)
	}

	dois := make([]string, 0, len(entries))
	for _, e := range entries {
		dois = append(dois, e.Cited)
	}
	return models.Success(dois)
}
