// Package service runs reverse image searches across the configured sources.
//
// A search fans out one goroutine per source. Sources never see each other's
// results: a failing or slow source only affects its own entry in the report.
// Every check is written to the audit log and the metrics recorder when they
// are configured; failures to record are logged and never fail the search.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/metrics"
	"github.com/fleveque/sauce-service/internal/model"
	"github.com/fleveque/sauce-service/internal/source"
	"github.com/fleveque/sauce-service/internal/storage"
)

var (
	// ErrUnknownSource is returned when a requested source is not configured.
	ErrUnknownSource = errors.New("source not configured")
	// ErrNoSources is returned when the service has nothing to search with.
	ErrNoSources = errors.New("no sources configured")
	// ErrEmptyURL is returned for a blank image URL.
	ErrEmptyURL = errors.New("image url is required")
)

// SearchService fans a URL out to the configured sources.
type SearchService struct {
	sources map[string]source.Source
	order   []string
	repo    storage.SearchRepository // nil disables the audit log
	metrics *metrics.Recorder        // nil disables metrics
	logger  *zap.Logger
	newID   func() string
}

// NewSearchService creates the service. repo and rec may be nil.
// Sources keep the order given; a repeated name keeps its first source.
func NewSearchService(
	sources []source.Source,
	repo storage.SearchRepository,
	rec *metrics.Recorder,
	logger *zap.Logger,
) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &SearchService{
		sources: make(map[string]source.Source, len(sources)),
		repo:    repo,
		metrics: rec,
		logger:  logger,
		newID:   uuid.NewString,
	}
	for _, src := range sources {
		if _, dup := s.sources[src.Name()]; dup {
			continue
		}
		s.sources[src.Name()] = src
		s.order = append(s.order, src.Name())
	}
	return s
}

// Sources returns the configured source names in search order.
func (s *SearchService) Sources() []string {
	return append([]string(nil), s.order...)
}

// Search checks rawURL against the named sources, or every configured source
// when names is empty. Results come back in the order the names were given.
// The only errors are for invalid input; source failures are reported per
// source inside the report.
func (s *SearchService) Search(ctx context.Context, rawURL string, names []string) (*model.SearchReport, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, ErrEmptyURL
	}

	selected, err := s.selectSources(names)
	if err != nil {
		return nil, err
	}

	requestID := s.newID()
	results := make([]model.SourceResult, len(selected))

	var wg sync.WaitGroup
	for i, src := range selected {
		wg.Add(1)
		go func(i int, src source.Source) {
			defer wg.Done()
			results[i] = s.run(ctx, requestID, src, rawURL)
		}(i, src)
	}
	wg.Wait()

	succeeded := lo.CountBy(results, func(r model.SourceResult) bool { return r.OK() })
	s.logger.Info("search complete",
		zap.String("request_id", requestID),
		zap.String("url", rawURL),
		zap.Int("sources", len(results)),
		zap.Int("succeeded", succeeded),
	)

	return &model.SearchReport{RequestID: requestID, URL: rawURL, Results: results}, nil
}

// Check runs a single source. Unlike Search, the source's error is returned.
func (s *SearchService) Check(ctx context.Context, name, rawURL string) (*model.Output, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, ErrEmptyURL
	}
	selected, err := s.selectSources([]string{name})
	if err != nil {
		return nil, err
	}

	src := selected[0]
	start := time.Now()
	out, err := src.Check(ctx, rawURL)
	s.record(ctx, s.newID(), src.Name(), rawURL, out, err, time.Since(start))
	return out, err
}

func (s *SearchService) selectSources(names []string) ([]source.Source, error) {
	if len(s.order) == 0 {
		return nil, ErrNoSources
	}

	names = lo.Uniq(lo.FilterMap(names, func(n string, _ int) (string, bool) {
		n = strings.ToLower(strings.TrimSpace(n))
		return n, n != ""
	}))
	if len(names) == 0 {
		names = s.order
	}

	selected := make([]source.Source, 0, len(names))
	for _, name := range names {
		src, ok := s.sources[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (configured: %s)", ErrUnknownSource, name, strings.Join(s.order, ", "))
		}
		selected = append(selected, src)
	}
	return selected, nil
}

func (s *SearchService) run(ctx context.Context, requestID string, src source.Source, rawURL string) model.SourceResult {
	start := time.Now()
	out, err := src.Check(ctx, rawURL)
	elapsed := time.Since(start)

	result := model.SourceResult{
		Source:     src.Name(),
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
		result.ErrorKind = source.KindOf(err)
		s.logger.Warn("source check failed",
			zap.String("request_id", requestID),
			zap.String("source", src.Name()),
			zap.String("kind", result.ErrorKind),
			zap.Error(err),
		)
	} else {
		result.Output = out
	}

	s.record(ctx, requestID, src.Name(), rawURL, out, err, elapsed)
	return result
}

// record writes the audit row and metrics for one check.
func (s *SearchService) record(ctx context.Context, requestID, name, rawURL string, out *model.Output, checkErr error, elapsed time.Duration) {
	kind := source.KindOf(checkErr)

	if s.metrics != nil {
		s.metrics.ObserveCheck(name, kind, elapsed)
	}

	if s.repo == nil {
		return
	}

	rec := &model.SearchRecord{
		RequestID:  requestID,
		Source:     name,
		URL:        rawURL,
		Success:    checkErr == nil,
		DurationMs: elapsed.Milliseconds(),
	}
	if out != nil {
		rec.ItemCount = len(out.Items)
	}
	if kind != "" {
		rec.ErrorKind = &kind
	}

	// The caller may already be gone; the row is still worth keeping.
	if err := s.repo.Create(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error("failed to record search",
			zap.String("request_id", requestID),
			zap.String("source", name),
			zap.Error(err),
		)
	}
}
