package speciesinfo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"

	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/httpclient"
	"github.com/tphakala/birdnet-ingest/internal/logger"
)

const (
	wikiProviderName = "wikipedia"
	birdSuffix       = " (bird)"
	maxResponseSize  = 2 << 20
)

// WikipediaSource looks species up through the MediaWiki query API.
type WikipediaSource struct {
	client   *httpclient.Client
	endpoint string
	logger   logger.Logger
}

// NewWikipediaSource creates a source querying endpoint, normally
// https://en.wikipedia.org/w/api.php. Timeout and User-Agent come from the
// client configuration.
func NewWikipediaSource(client *httpclient.Client, endpoint string) *WikipediaSource {
	return &WikipediaSource{
		client:   client,
		endpoint: endpoint,
		logger:   GetLogger().Module(wikiProviderName),
	}
}

// Lookup queries the article for name, retrying once with a " (bird)"
// disambiguation suffix when the first title is missing or empty. A
// transport or parse failure aborts without the retry.
func (w *WikipediaSource) Lookup(ctx context.Context, name string) (*Info, error) {
	reqID := uuid.NewString()
	log := w.logger.With(logger.String("request_id", reqID), logger.String("species", name))

	term := strings.TrimSpace(strings.ReplaceAll(name, "'", ""))
	for _, title := range []string{term, term + birdSuffix} {
		info, err := w.query(ctx, reqID, title)
		if err != nil {
			log.Warn("wikipedia lookup failed", logger.String("title", title), logger.Error(err))
			return nil, err
		}
		if info != nil {
			info.Name = name
			log.Debug("wikipedia lookup succeeded", logger.String("title", title))
			return info, nil
		}
	}

	log.Info("no wikipedia article found")
	return nil, ErrSpeciesNotFound
}

func queryParams(title string) url.Values {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("titles", title)
	params.Set("prop", "pageimages|extracts|info")
	params.Set("pithumbsize", "500")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("exsentences", "5")
	params.Set("redirects", "1")
	return params
}

// query returns nil info when no usable page exists for title.
func (w *WikipediaSource) query(ctx context.Context, reqID, title string) (*Info, error) {
	start := time.Now()
	fullURL := w.endpoint + "?" + queryParams(title).Encode()

	resp, err := w.client.Get(ctx, fullURL)
	if err != nil {
		return nil, w.wrap(err, errors.CategoryNetwork, reqID, title, "wikipedia_request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, w.wrap(fmt.Errorf("unexpected status %d", resp.StatusCode),
			errors.CategoryHTTP, reqID, title, "wikipedia_status")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, w.wrap(err, errors.CategoryNetwork, reqID, title, "wikipedia_read")
	}

	doc, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, w.wrap(err, errors.CategoryImageFetch, reqID, title, "wikipedia_parse")
	}

	w.logger.Trace("wikipedia response received",
		logger.String("request_id", reqID),
		logger.String("title", title),
		logger.Int("bytes", len(body)),
		logger.Duration("duration", time.Since(start)))

	return firstUsablePage(doc), nil
}

// firstUsablePage walks query.pages in page id order and returns the first
// existing page carrying a thumbnail or an extract.
func firstUsablePage(doc *jason.Object) *Info {
	pages, err := doc.GetObject("query", "pages")
	if err != nil {
		return nil
	}
	pageMap := pages.Map()
	ids := make([]string, 0, len(pageMap))
	for id := range pageMap {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if id == "-1" {
			continue
		}
		page, err := pageMap[id].Object()
		if err != nil {
			continue
		}
		if _, missing := page.Map()["missing"]; missing {
			continue
		}

		imageURL, _ := page.GetString("thumbnail", "source")
		extract, _ := page.GetString("extract")
		extract = plainText(extract)
		description := Describe(extract)
		if imageURL == "" && description == "" {
			continue
		}

		region := ExtractRegion(extract)
		info := &Info{Description: &description, Region: &region}
		if imageURL != "" {
			info.ImageURL = &imageURL
		}
		return info
	}
	return nil
}

func (w *WikipediaSource) wrap(err error, category errors.ErrorCategory, reqID, title, operation string) error {
	return errors.New(err).
		Component("speciesinfo").
		Category(category).
		Context("provider", wikiProviderName).
		Context("request_id", reqID).
		Context("title", title).
		Context("operation", operation).
		Build()
}
