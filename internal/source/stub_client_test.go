package source

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/webclient"
)

// stubClient is an in-memory webclient.Client. HEAD answers with a fixed
// content type and GET with a fixed body; every call is recorded so tests can
// assert which endpoints were hit.
type stubClient struct {
	mu sync.Mutex

	contentType string
	headErr     error
	body        string
	getErr      error

	heads []string
	gets  []*webclient.Request
}

func newStub(contentType, body string) *stubClient {
	return &stubClient{contentType: contentType, body: body}
}

func (s *stubClient) Head(_ context.Context, rawURL string, _ http.Header) (*webclient.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heads = append(s.heads, rawURL)
	if s.headErr != nil {
		return nil, s.headErr
	}
	h := http.Header{}
	if s.contentType != "" {
		h.Set("Content-Type", s.contentType)
	}
	return &webclient.Response{StatusCode: http.StatusOK, Headers: h}, nil
}

func (s *stubClient) Get(_ context.Context, req *webclient.Request) (*webclient.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, req)
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &webclient.Response{
		StatusCode: http.StatusOK,
		Headers:    http.Header{},
		Body:       []byte(s.body),
	}, nil
}

func (s *stubClient) calls() (heads, gets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heads), len(s.gets)
}

func testDeps(client webclient.Client) Deps {
	return Deps{Client: client, Logger: zap.NewNop()}
}

// mustSource builds a source for tests, failing immediately on error.
func mustSource(t *testing.T, build func() (Source, error)) Source {
	t.Helper()
	src, err := build()
	if err != nil {
		t.Fatalf("building source: %v", err)
	}
	return src
}
