package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/model"
	"github.com/fleveque/sauce-service/internal/webclient"
)

// saucenaoTemplate is filled with the base URL, the URL-encoded image URL and the API key.
const saucenaoTemplate = "{{.base_url}}/search.php?url={{.url}}&api_key={{.api_key}}"

// saucenaoParams pin the response format and result count. They are policy,
// not user configuration: JSON output, test mode, all databases, 16 results.
const saucenaoParams = "&db=999&output_type=2&testmode=1&numres=16"

// SauceNaoConfig configures the SauceNAO source.
type SauceNaoConfig struct {
	// APIKey may be empty at construction; Check then fails with
	// ErrMissingConfiguration.
	APIKey  string
	BaseURL string
}

// SauceNao queries the saucenao.com JSON API. It requires an API key.
type SauceNao struct {
	apiKey   string
	endpoint *url.URL
	tmpl     *template.Template
	client   webclient.Client
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSauceNao creates the SauceNAO source. A missing API key is not an error here.
func NewSauceNao(cfg SauceNaoConfig, deps Deps) (*SauceNao, error) {
	deps, err := deps.withDefaults("saucenao")
	if err != nil {
		return nil, err
	}
	endpoint, err := parseEndpoint(cfg.BaseURL, "https://saucenao.com")
	if err != nil {
		return nil, fmt.Errorf("saucenao: %w", err)
	}
	tmpl, err := template.New("saucenao").Option("missingkey=error").Parse(saucenaoTemplate)
	if err != nil {
		return nil, fmt.Errorf("saucenao: %w", templatingError(err))
	}

	return &SauceNao{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		endpoint: endpoint,
		tmpl:     tmpl,
		client:   deps.Client,
		timeout:  deps.SearchTimeout,
		logger:   deps.Logger,
	}, nil
}

func (s *SauceNao) Name() string { return "saucenao" }

type saucenaoResponse struct {
	Header  saucenaoResponseHeader `json:"header"`
	Results []saucenaoResult       `json:"results"`
}

type saucenaoResponseHeader struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type saucenaoResult struct {
	Header struct {
		// Similarity is a numeric string such as "92.4".
		Similarity string `json:"similarity"`
	} `json:"header"`
	Data struct {
		// ExtURLs is null for entries without external links.
		ExtURLs []string `json:"ext_urls"`
	} `json:"data"`
}

// Check implements Source. The API key is checked before any network I/O.
func (s *SauceNao) Check(ctx context.Context, rawURL string) (*model.Output, error) {
	searchURL, err := s.buildURL(rawURL)
	if err != nil {
		return nil, err
	}

	if err := ensureImage(ctx, s.client, rawURL); err != nil {
		return nil, err
	}

	resp, err := s.client.Get(ctx, &webclient.Request{
		URL:     searchURL,
		Headers: http.Header{"Accept": {"application/json"}},
		Timeout: s.timeout,
	})
	if err != nil {
		return nil, transportError("saucenao search", err)
	}

	items, err := parseSauceNaoItems(resp.Body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("saucenao search complete",
		zap.String("url", rawURL),
		zap.Int("items", len(items)),
	)

	return model.NewOutput(rawURL, normalizeItems(s.endpoint, items)), nil
}

// buildURL fills the request template. It fails with ErrMissingConfiguration
// when no API key is set.
func (s *SauceNao) buildURL(rawURL string) (string, error) {
	if s.apiKey == "" {
		return "", missingConfiguration("saucenao", "an API key")
	}

	u, err := renderTemplate(s.tmpl, map[string]string{
		"base_url": s.endpoint.String(),
		"url":      url.QueryEscape(rawURL),
		"api_key":  url.QueryEscape(s.apiKey),
	})
	if err != nil {
		return "", err
	}
	return u + saucenaoParams, nil
}

func renderTemplate(tmpl *template.Template, vars map[string]string) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", templatingError(err)
	}
	return b.String(), nil
}

// parseSauceNaoItems maps the API response to items. Entries without an
// external URL are skipped; an unparseable similarity fails the whole call.
func parseSauceNaoItems(body []byte) ([]model.Item, error) {
	var payload saucenaoResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, decodeError("saucenao response", err)
	}

	if payload.Header.Status != 0 {
		return nil, transportError("saucenao",
			fmt.Errorf("status %d: %s", payload.Header.Status, payload.Header.Message))
	}

	items := make([]model.Item, 0, len(payload.Results))
	for _, res := range payload.Results {
		if len(res.Data.ExtURLs) == 0 {
			continue
		}

		similarity, err := strconv.ParseFloat(strings.TrimSpace(res.Header.Similarity), 64)
		if err != nil {
			return nil, decodeError("saucenao similarity", err)
		}

		items = append(items, model.Item{
			Link:       res.Data.ExtURLs[0],
			Similarity: similarity,
		})
	}
	return items, nil
}
