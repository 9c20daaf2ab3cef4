package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santhosh0000000/crossref-API/internal/fetch"
	"github.com/santhosh0000000/crossref-API/internal/models"
)

const workJSON = `{
  "status": "ok",
  "message-type": "work",
  "message-version": "1.0.0",
  "message": {
    "DOI": "10.4108/eai.1-2-2020.123",
    "type": "journal-article",
    "container-title": ["EAI Endorsed Transactions on Energy Web"],
    "title": ["Smart grids revisited"],
    "volume": "7",
    "page": "e5",
    "publisher": "European Alliance for Innovation n.o.",
    "published-online": {"date-parts": [[2020, 5, 1]]},
    "author": [
      {"given": "Ada", "family": "Lovelace", "sequence": "first"},
      {"family": "Babbage", "sequence": "additional"}
    ]
  }
}`

type errDoer struct{}

func (errDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestClient_Metadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works/10.4108/eai.1-2-2020.123", r.URL.Path)
		assert.Equal(t, "ops@example.org", r.URL.Query().Get("mailto"))
		assert.Equal(t, "crossref-enrich/test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(workJSON))
	}))
	defer server.Close()

	logger, hook := test.NewNullLogger()
	c := NewClient(server.URL+"/works/", logger,
		WithDoer(server.Client()),
		WithMailto("ops@example.org"),
		WithUserAgent("crossref-enrich/test"))

	got := c.Metadata(context.Background(), "10.4108/eai.1-2-2020.123")
	require.True(t, got.OK())
	md := got.Value

	assert.Equal(t, models.Some("journal-article"), md.Type)
	assert.Equal(t, models.Some([]string{"EAI Endorsed Transactions on Energy Web"}), md.ContainerTitle)
	assert.Equal(t, models.Some([]string{"Smart grids revisited"}), md.Title)
	assert.Equal(t, models.Some("7"), md.Volume)
	assert.Equal(t, models.Some("e5"), md.FirstPage)
	assert.Equal(t, models.Some("European Alliance for Innovation n.o."), md.Publisher)
	assert.Equal(t, models.Some(models.DateParts{{models.Some("2020"), models.Some("5"), models.Some("1")}}), md.PublishedOnline)
	assert.Equal(t, models.Some([]models.Author{
		{Given: models.Some("Ada"), Family: models.Some("Lovelace")},
		{Given: models.None[string](), Family: models.Some("Babbage")},
	}), md.Authors)
	assert.Empty(t, hook.AllEntries())
}

func TestClient_Metadata_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Resource not found."))
	}))
	defer server.Close()

	logger, hook := test.NewNullLogger()
	c := NewClient(server.URL, logger, WithDoer(server.Client()))

	got := c.Metadata(context.Background(), "10.1/none")
	assert.Equal(t, models.StatusMissing, got.Status)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "10.1/none", entry.Data["doi"])
}

func TestClient_Metadata_TransportError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	c := NewClient("http://crossref.invalid/works", logger, WithDoer(errDoer{}))

	got := c.Metadata(context.Background(), "10.1/x")
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Error(t, got.Err)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestClient_Metadata_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status models.Status
	}{
		{"not json", `<html>rate limited</html>`, models.StatusFailed},
		{"message is a list", `{"status":"ok","message":[1,2]}`, models.StatusMissing},
		{"message is a string", `{"status":"ok","message":"gone"}`, models.StatusMissing},
		{"no message", `{"status":"ok"}`, models.StatusMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			logger, hook := test.NewNullLogger()
			c := NewClient(server.URL, logger, WithDoer(server.Client()))
			got := c.Metadata(context.Background(), "10.1/x")
			assert.Equal(t, tt.status, got.Status)
			if tt.status == models.StatusFailed {
				assert.ErrorIs(t, got.Err, ErrMalformed)
			}
			assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
		})
	}
}

func TestNewRetryingDoer_RetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(workJSON))
	}))
	defer server.Close()

	logger, hook := test.NewNullLogger()
	doer := NewRetryingDoer(server.URL, 5*time.Second, 3, logger)
	doer.Backoff = func(int) time.Duration { return 0 }
	c := NewClient(server.URL, logger, WithDoer(doer))

	got := c.Metadata(context.Background(), "10.4108/eai.1-2-2020.123")
	assert.True(t, got.OK())
	assert.Equal(t, 2, calls)

	require.NotEmpty(t, hook.AllEntries())
	retry := hook.AllEntries()[0]
	assert.Equal(t, logrus.ErrorLevel, retry.Level)
	assert.Equal(t, "10.4108/eai.1-2-2020.123", retry.Data["doi"])
	assert.Equal(t, 1, retry.Data["attempt"])
}

func TestClient_MetadataEscapesDOI(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(workJSON))
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	c := NewClient(server.URL+"/works", logger, WithDoer(server.Client()))
	got := c.Metadata(context.Background(), "10.1000/abc#1?x=2")

	assert.True(t, got.OK())
	assert.Equal(t, "/works/10.1000/abc#1?x=2", path)
}

func TestDOIFromURL(t *testing.T) {
	base := "https://api.crossref.org/works"
	assert.Equal(t, "10.1000/abc#1?x=2",
		doiFromURL(base, base+"/"+fetch.EscapeDOI("10.1000/abc#1?x=2")+"?mailto=a%40b.org"))
	assert.Equal(t, "10.1/x", doiFromURL(base+"/", base+"/10.1/x"))
	assert.Equal(t, "", doiFromURL(base, "://bad"))
}
