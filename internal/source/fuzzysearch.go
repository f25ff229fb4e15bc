package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/model"
	"github.com/fleveque/sauce-service/internal/webclient"
)

// hashBits is the size of the perceptual hashes FuzzySearch compares.
const hashBits = 64

// FuzzySearchConfig configures the FuzzySearch source.
type FuzzySearchConfig struct {
	APIKey  string
	BaseURL string
}

// FuzzySearch queries the fuzzysearch.net perceptual-hash database. Matches
// come with a Hamming distance between hashes instead of a percentage.
type FuzzySearch struct {
	apiKey   string
	endpoint *url.URL
	client   webclient.Client
	timeout  time.Duration
	logger   *zap.Logger
}

// NewFuzzySearch creates the FuzzySearch source. A missing API key is only
// reported by Check.
func NewFuzzySearch(cfg FuzzySearchConfig, deps Deps) (*FuzzySearch, error) {
	deps, err := deps.withDefaults("fuzzysearch")
	if err != nil {
		return nil, err
	}
	endpoint, err := parseEndpoint(cfg.BaseURL, "https://api.fuzzysearch.net")
	if err != nil {
		return nil, fmt.Errorf("fuzzysearch: %w", err)
	}
	return &FuzzySearch{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		endpoint: endpoint,
		client:   deps.Client,
		timeout:  deps.SearchTimeout,
		logger:   deps.Logger,
	}, nil
}

func (f *FuzzySearch) Name() string { return "fuzzysearch" }

type fuzzysearchMatch struct {
	Site     string `json:"site"`
	URL      string `json:"url"`
	Distance *int   `json:"distance"`
}

// Check implements Source.
func (f *FuzzySearch) Check(ctx context.Context, rawURL string) (*model.Output, error) {
	if f.apiKey == "" {
		return nil, missingConfiguration("fuzzysearch", "an API key")
	}

	if err := ensureImage(ctx, f.client, rawURL); err != nil {
		return nil, err
	}

	resp, err := f.client.Get(ctx, &webclient.Request{
		URL:   f.endpoint.JoinPath("url").String(),
		Query: url.Values{"url": {rawURL}},
		Headers: http.Header{
			"X-Api-Key": {f.apiKey},
			"Accept":    {"application/json"},
		},
		Timeout: f.timeout,
	})
	if err != nil {
		return nil, transportError("fuzzysearch search", err)
	}

	items, err := parseFuzzySearchItems(resp.Body)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fuzzysearch search complete",
		zap.String("url", rawURL),
		zap.Int("items", len(items)),
	)

	return model.NewOutput(rawURL, normalizeItems(f.endpoint, items)), nil
}

func parseFuzzySearchItems(body []byte) ([]model.Item, error) {
	var matches []fuzzysearchMatch
	if err := json.Unmarshal(body, &matches); err != nil {
		return nil, decodeError("fuzzysearch response", err)
	}

	items := make([]model.Item, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(m.URL) == "" {
			continue
		}
		items = append(items, model.Item{
			Link:       m.URL,
			Similarity: distanceToSimilarity(m.Distance),
		})
	}
	return items, nil
}

// distanceToSimilarity converts a hash distance to a percentage. A nil
// distance means the database could not compare the hashes.
func distanceToSimilarity(distance *int) float64 {
	if distance == nil {
		return model.SimilarityUnparsed
	}
	d := *distance
	if d < 0 {
		d = 0
	}
	if d > hashBits {
		d = hashBits
	}
	return 100 * float64(hashBits-d) / hashBits
}
