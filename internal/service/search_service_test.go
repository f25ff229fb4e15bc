package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/metrics"
	"github.com/fleveque/sauce-service/internal/model"
	"github.com/fleveque/sauce-service/internal/source"
)

const imageURL = "https://example.com/cat.png"

// fakeSource returns a canned result after an optional delay.
type fakeSource struct {
	name  string
	items []model.Item
	err   error
	delay time.Duration
	wait  *sync.WaitGroup // if set, Check blocks until every source has started
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Check(ctx context.Context, rawURL string) (*model.Output, error) {
	if f.wait != nil {
		f.wait.Done()
		done := make(chan struct{})
		go func() { f.wait.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			return nil, errors.New("sources did not run concurrently")
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return model.NewOutput(rawURL, f.items), nil
}

// memoryRepo is an in-memory storage.SearchRepository.
type memoryRepo struct {
	mu      sync.Mutex
	records []model.SearchRecord
	err     error
}

func (m *memoryRepo) Create(_ context.Context, rec *model.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *rec)
	return nil
}

func (m *memoryRepo) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.records)), nil
}

func (m *memoryRepo) StatsBySource(context.Context) ([]model.SourceStats, error) {
	return nil, nil
}

func (m *memoryRepo) ListByURL(context.Context, string, int) ([]model.SearchRecord, error) {
	return nil, nil
}

func (m *memoryRepo) bySource() map[string]model.SearchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.SearchRecord, len(m.records))
	for _, r := range m.records {
		out[r.Source] = r
	}
	return out
}

func TestSearch_PreservesOrderAndIsolatesFailures(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewSearchService([]source.Source{
		&fakeSource{name: "saucenao", items: []model.Item{{Link: "https://a", Similarity: 90}}, delay: 30 * time.Millisecond},
		&fakeSource{name: "yandex", err: fmt.Errorf("%w: boom", source.ErrTransport)},
		&fakeSource{name: "iqdb"},
	}, repo, metrics.NewRecorder(), zap.NewNop())

	report, err := svc.Search(context.Background(), imageURL, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if report.URL != imageURL || report.RequestID == "" {
		t.Errorf("unexpected report header %#v", report)
	}
	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}

	sauce, yandex, iqdb := report.Results[0], report.Results[1], report.Results[2]
	if sauce.Source != "saucenao" || yandex.Source != "yandex" || iqdb.Source != "iqdb" {
		t.Fatalf("results out of order: %s, %s, %s", sauce.Source, yandex.Source, iqdb.Source)
	}
	if !sauce.OK() || len(sauce.Output.Items) != 1 {
		t.Errorf("expected saucenao success with 1 item, got %#v", sauce)
	}
	if yandex.OK() || yandex.ErrorKind != source.KindTransport || yandex.Error == "" {
		t.Errorf("expected yandex transport failure, got %#v", yandex)
	}
	if !iqdb.OK() || len(iqdb.Output.Items) != 0 {
		t.Errorf("expected iqdb success with no items, got %#v", iqdb)
	}

	records := repo.bySource()
	if len(records) != 3 {
		t.Fatalf("expected 3 audit records, got %d", len(records))
	}
	for _, r := range records {
		if r.RequestID != report.RequestID {
			t.Errorf("record %s: expected request id %s, got %s", r.Source, report.RequestID, r.RequestID)
		}
	}
	if r := records["saucenao"]; !r.Success || r.ItemCount != 1 || r.ErrorKind != nil {
		t.Errorf("unexpected saucenao record %#v", r)
	}
	if r := records["yandex"]; r.Success || r.ErrorKind == nil || *r.ErrorKind != source.KindTransport {
		t.Errorf("unexpected yandex record %#v", r)
	}
}

func TestSearch_RunsSourcesConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(3)

	svc := NewSearchService([]source.Source{
		&fakeSource{name: "a", wait: &started},
		&fakeSource{name: "b", wait: &started},
		&fakeSource{name: "c", wait: &started},
	}, nil, nil, nil)

	report, err := svc.Search(context.Background(), imageURL, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range report.Results {
		if !r.OK() {
			t.Errorf("%s: %s", r.Source, r.Error)
		}
	}
}

func TestSearch_SelectsNamedSources(t *testing.T) {
	svc := NewSearchService([]source.Source{
		&fakeSource{name: "saucenao"},
		&fakeSource{name: "yandex"},
		&fakeSource{name: "iqdb"},
	}, nil, nil, nil)

	report, err := svc.Search(context.Background(), imageURL, []string{"IQDB", "saucenao", "iqdb", " "})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Source != "iqdb" || report.Results[1].Source != "saucenao" {
		t.Errorf("unexpected sources %s, %s", report.Results[0].Source, report.Results[1].Source)
	}
}

func TestSearch_InvalidInput(t *testing.T) {
	svc := NewSearchService([]source.Source{&fakeSource{name: "yandex"}}, nil, nil, nil)

	if _, err := svc.Search(context.Background(), "  ", nil); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("expected ErrEmptyURL, got %v", err)
	}
	if _, err := svc.Search(context.Background(), imageURL, []string{"tineye"}); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}

	empty := NewSearchService(nil, nil, nil, nil)
	if _, err := empty.Search(context.Background(), imageURL, nil); !errors.Is(err, ErrNoSources) {
		t.Errorf("expected ErrNoSources, got %v", err)
	}
}

func TestSearch_RecordFailureDoesNotFailSearch(t *testing.T) {
	repo := &memoryRepo{err: errors.New("disk full")}
	svc := NewSearchService([]source.Source{&fakeSource{name: "yandex"}}, repo, nil, nil)

	report, err := svc.Search(context.Background(), imageURL, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !report.Results[0].OK() {
		t.Errorf("expected success, got %#v", report.Results[0])
	}
}

func TestCheck_ReturnsSourceError(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewSearchService([]source.Source{
		&fakeSource{name: "saucenao", err: fmt.Errorf("%w: api key", source.ErrMissingConfiguration)},
	}, repo, nil, nil)

	_, err := svc.Check(context.Background(), "SauceNAO", imageURL)
	if !errors.Is(err, source.ErrMissingConfiguration) {
		t.Fatalf("expected ErrMissingConfiguration, got %v", err)
	}

	r, ok := repo.bySource()["saucenao"]
	if !ok {
		t.Fatal("expected the check to be recorded")
	}
	if r.ErrorKind == nil || *r.ErrorKind != source.KindMissingConfiguration {
		t.Errorf("unexpected record %#v", r)
	}
}

func TestSources_KeepsOrderAndDropsDuplicates(t *testing.T) {
	svc := NewSearchService([]source.Source{
		&fakeSource{name: "yandex"},
		&fakeSource{name: "iqdb"},
		&fakeSource{name: "yandex"},
	}, nil, nil, nil)

	got := svc.Sources()
	if len(got) != 2 || got[0] != "yandex" || got[1] != "iqdb" {
		t.Errorf("unexpected sources %v", got)
	}
}
