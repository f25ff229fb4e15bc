// Package source adapts third-party reverse image search services to one contract.
// Each source (SauceNAO, Yandex, IQDB, FuzzySearch) turns an image URL into a
// normalized model.Output, however different its upstream protocol is.
//
// A source is built once with its own config and then used for any number of
// Check calls. Check holds no per-call state on the source, so one value can
// serve concurrent calls.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/model"
	"github.com/fleveque/sauce-service/internal/webclient"
)

// DefaultSearchTimeout bounds the search request when Deps leaves it unset.
const DefaultSearchTimeout = 10 * time.Second

// Source is the interface every reverse image search provider implements.
type Source interface {
	// Name returns the registry name, e.g. "saucenao".
	Name() string

	// Check searches for images similar to rawURL. It first verifies that
	// rawURL points to an image, and issues no search request otherwise.
	// The returned Output always carries rawURL unchanged.
	Check(ctx context.Context, rawURL string) (*model.Output, error)
}

// Deps are the collaborators shared by all sources.
type Deps struct {
	Client        webclient.Client
	Logger        *zap.Logger
	SearchTimeout time.Duration
}

func (d Deps) withDefaults(name string) (Deps, error) {
	if d.Client == nil {
		return d, fmt.Errorf("%s: nil web client", name)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	d.Logger = d.Logger.With(zap.String("source", name))
	if d.SearchTimeout <= 0 {
		d.SearchTimeout = DefaultSearchTimeout
	}
	return d, nil
}

// parseEndpoint validates a configured base URL, falling back to def.
func parseEndpoint(raw, def string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = def
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", raw)
	}
	return u, nil
}

// ensureImage is the precondition every Check runs first: a HEAD of rawURL
// whose Content-Type must mention "image". A missing header counts as not
// an image.
func ensureImage(ctx context.Context, client webclient.Client, rawURL string) error {
	resp, err := client.Head(ctx, rawURL, nil)
	if err != nil {
		return transportError("checking content type", err)
	}

	contentType := strings.ToLower(resp.ContentType())
	if contentType == "" || !strings.Contains(contentType, "image") {
		return fmt.Errorf("%w: content-type %q", ErrLinkIsNotImage, contentType)
	}
	return nil
}

// normalizeLink turns protocol-relative links into https links and resolves
// relative links against base. Absolute links are returned unchanged.
func normalizeLink(base *url.URL, link string) string {
	link = strings.TrimSpace(link)
	if strings.HasPrefix(link, "//") {
		return "https:" + link
	}

	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() || base == nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

func normalizeItems(base *url.URL, items []model.Item) []model.Item {
	for i := range items {
		items[i].Link = normalizeLink(base, items[i].Link)
	}
	return items
}
