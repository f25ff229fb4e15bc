package source

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/fleveque/sauce-service/internal/config"
)

// Factory builds one source from the application config.
type Factory func(cfg config.SourcesConfig, deps Deps) (Source, error)

var factories = map[string]Factory{
	"saucenao": func(cfg config.SourcesConfig, deps Deps) (Source, error) {
		s, err := NewSauceNao(SauceNaoConfig{APIKey: cfg.SauceNao.APIKey, BaseURL: cfg.SauceNao.BaseURL}, deps)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	"yandex": func(cfg config.SourcesConfig, deps Deps) (Source, error) {
		s, err := NewYandex(YandexConfig{BaseURL: cfg.Yandex.BaseURL}, deps)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	"iqdb": func(cfg config.SourcesConfig, deps Deps) (Source, error) {
		s, err := NewIQDB(IQDBConfig{BaseURL: cfg.IQDB.BaseURL}, deps)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	"fuzzysearch": func(cfg config.SourcesConfig, deps Deps) (Source, error) {
		s, err := NewFuzzySearch(FuzzySearchConfig{APIKey: cfg.FuzzySearch.APIKey, BaseURL: cfg.FuzzySearch.BaseURL}, deps)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
}

// unscored lists the sources whose items carry model.SimilarityUnknown
// instead of a score.
var unscored = map[string]bool{
	"yandex": true,
}

// ReportsSimilarity reports whether the named source scores its matches.
// For sources that do not, a similarity of 100 is a placeholder.
func ReportsSimilarity(name string) bool {
	return !unscored[strings.ToLower(strings.TrimSpace(name))]
}

// Names returns every known source name, sorted.
func Names() []string {
	names := lo.Keys(factories)
	sort.Strings(names)
	return names
}

// New builds the named source. Names are case-insensitive.
func New(name string, cfg config.SourcesConfig, deps Deps) (Source, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	factory, ok := factories[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownSource, name, strings.Join(Names(), ", "))
	}
	return factory(cfg, deps)
}

// NewAll builds every named source in order, skipping duplicates.
// It stops at the first source that fails to build.
func NewAll(names []string, cfg config.SourcesConfig, deps Deps) ([]Source, error) {
	names = lo.Uniq(lo.Map(names, func(n string, _ int) string {
		return strings.ToLower(strings.TrimSpace(n))
	}))

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		src, err := New(name, cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("building source %s: %w", name, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
