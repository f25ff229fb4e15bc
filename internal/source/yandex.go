package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/model"
	"github.com/fleveque/sauce-service/internal/webclient"
)

// YandexConfig configures the Yandex source. No API key is needed.
type YandexConfig struct {
	BaseURL string
}

// Yandex scrapes the yandex.com image search results page.
// Yandex reports no similarity, so every item carries model.SimilarityUnknown.
type Yandex struct {
	endpoint *url.URL
	client   webclient.Client
	timeout  time.Duration
	logger   *zap.Logger
}

// NewYandex creates the Yandex source.
func NewYandex(cfg YandexConfig, deps Deps) (*Yandex, error) {
	deps, err := deps.withDefaults("yandex")
	if err != nil {
		return nil, err
	}
	endpoint, err := parseEndpoint(cfg.BaseURL, "https://yandex.com")
	if err != nil {
		return nil, fmt.Errorf("yandex: %w", err)
	}
	return &Yandex{
		endpoint: endpoint,
		client:   deps.Client,
		timeout:  deps.SearchTimeout,
		logger:   deps.Logger,
	}, nil
}

func (y *Yandex) Name() string { return "yandex" }

// Check implements Source.
func (y *Yandex) Check(ctx context.Context, rawURL string) (*model.Output, error) {
	if err := ensureImage(ctx, y.client, rawURL); err != nil {
		return nil, err
	}

	resp, err := y.client.Get(ctx, &webclient.Request{
		URL: y.endpoint.JoinPath("images", "search").String(),
		Query: url.Values{
			"url": {rawURL},
			"rpt": {"imageview"},
		},
		Timeout: y.timeout,
	})
	if err != nil {
		return nil, transportError("yandex search", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, decodeError("yandex html", err)
	}

	items := parseYandexItems(doc)

	y.logger.Debug("yandex search complete",
		zap.String("url", rawURL),
		zap.Int("items", len(items)),
	)

	return model.NewOutput(rawURL, normalizeItems(y.endpoint, items)), nil
}

// parseYandexItems reads the "sites with this image" block. Each direct <li>
// of .CbirSites-Items contributes the href of the <a> directly under its
// first .CbirSites-ItemInfo; entries without that structure are skipped.
// A page without the block simply has no matches.
func parseYandexItems(doc *goquery.Document) []model.Item {
	var items []model.Item

	doc.Find(".CbirSites-Items").ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		link, ok := li.Find(".CbirSites-ItemInfo").First().ChildrenFiltered("a").Attr("href")
		if !ok || link == "" {
			return
		}
		items = append(items, model.Item{
			Link:       link,
			Similarity: model.SimilarityUnknown,
		})
	})

	return items
}
