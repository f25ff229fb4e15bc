package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/model"
	"github.com/fleveque/sauce-service/internal/webclient"
)

var iqdbSimilarityRe = regexp.MustCompile(`(\d+(?:\.\d+)?)%\s*similarity`)

// IQDBConfig configures the IQDB source. No API key is needed.
type IQDBConfig struct {
	BaseURL string
}

// IQDB scrapes iqdb.org, which searches several image boards at once and
// prints a percentage similarity for every match.
type IQDB struct {
	endpoint *url.URL
	client   webclient.Client
	timeout  time.Duration
	logger   *zap.Logger
}

// NewIQDB creates the IQDB source.
func NewIQDB(cfg IQDBConfig, deps Deps) (*IQDB, error) {
	deps, err := deps.withDefaults("iqdb")
	if err != nil {
		return nil, err
	}
	endpoint, err := parseEndpoint(cfg.BaseURL, "https://iqdb.org")
	if err != nil {
		return nil, fmt.Errorf("iqdb: %w", err)
	}
	return &IQDB{
		endpoint: endpoint,
		client:   deps.Client,
		timeout:  deps.SearchTimeout,
		logger:   deps.Logger,
	}, nil
}

func (q *IQDB) Name() string { return "iqdb" }

// Check implements Source.
func (q *IQDB) Check(ctx context.Context, rawURL string) (*model.Output, error) {
	if err := ensureImage(ctx, q.client, rawURL); err != nil {
		return nil, err
	}

	resp, err := q.client.Get(ctx, &webclient.Request{
		URL:     q.endpoint.JoinPath("/").String(),
		Query:   url.Values{"url": {rawURL}},
		Timeout: q.timeout,
	})
	if err != nil {
		return nil, transportError("iqdb search", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, decodeError("iqdb html", err)
	}

	items, err := parseIQDBItems(doc)
	if err != nil {
		return nil, err
	}

	q.logger.Debug("iqdb search complete",
		zap.String("url", rawURL),
		zap.Int("items", len(items)),
	)

	return model.NewOutput(rawURL, normalizeItems(q.endpoint, items)), nil
}

// parseIQDBItems reads the result tables under #pages. The table headed
// "Your image" echoes the query and is skipped, as is any table without a
// linked thumbnail. IQDB answers errors with a page that has no #pages at
// all, which is reported as ErrDecode.
func parseIQDBItems(doc *goquery.Document) ([]model.Item, error) {
	pages := doc.Find("#pages")
	if pages.Length() == 0 {
		msg := strings.TrimSpace(doc.Find(".err").First().Text())
		if msg == "" {
			msg = "no #pages element"
		}
		return nil, decodeError("iqdb html", errors.New(msg))
	}

	var items []model.Item
	pages.ChildrenFiltered("div").Each(func(_ int, div *goquery.Selection) {
		header := strings.ToLower(div.Find("th").First().Text())
		if strings.Contains(header, "your image") {
			return
		}

		link, ok := div.Find("td.image a").First().Attr("href")
		if !ok || link == "" {
			return
		}

		items = append(items, model.Item{
			Link:       link,
			Similarity: parseIQDBSimilarity(div.Text()),
		})
	})

	return items, nil
}

// parseIQDBSimilarity extracts "95% similarity". IQDB does report
// similarity, so a missing value is "unparsed", not "unknown".
func parseIQDBSimilarity(text string) float64 {
	m := iqdbSimilarityRe.FindStringSubmatch(text)
	if m == nil {
		return model.SimilarityUnparsed
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return model.SimilarityUnparsed
	}
	return v
}
