package source

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/fleveque/sauce-service/internal/model"
)

const yandexFixture = `<html><body>
<ul class="CbirSites-Items">
  <li class="CbirSites-Item">
    <div class="CbirSites-ItemInfo">
      <a href="//example.com/x">Example</a>
    </div>
  </li>
  <li class="CbirSites-Item">
    <div class="CbirSites-ItemInfo"><span>no link here</span></div>
  </li>
</ul>
</body></html>`

func TestYandex_SkipsChildrenWithoutAnchor(t *testing.T) {
	client := newStub("image/jpeg", yandexFixture)
	y, err := NewYandex(YandexConfig{}, testDeps(client))
	if err != nil {
		t.Fatalf("NewYandex: %v", err)
	}

	out, err := y.Check(context.Background(), imageURL)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if len(out.Items) != 1 {
		t.Fatalf("expected 1 item, got %d: %#v", len(out.Items), out.Items)
	}
	if out.Items[0].Link != "https://example.com/x" {
		t.Errorf("expected https://example.com/x, got %q", out.Items[0].Link)
	}
	if out.Items[0].Similarity != model.SimilarityUnknown {
		t.Errorf("expected similarity %v, got %v", model.SimilarityUnknown, out.Items[0].Similarity)
	}
}

func TestYandex_RequestShape(t *testing.T) {
	client := newStub("image/png", "<html></html>")
	y, err := NewYandex(YandexConfig{BaseURL: "https://yandex.example/"}, testDeps(client))
	if err != nil {
		t.Fatalf("NewYandex: %v", err)
	}

	if _, err := y.Check(context.Background(), imageURL); err != nil {
		t.Fatalf("Check: %v", err)
	}

	if len(client.heads) != 1 || client.heads[0] != imageURL {
		t.Errorf("expected one HEAD of %s, got %v", imageURL, client.heads)
	}
	if len(client.gets) != 1 {
		t.Fatalf("expected 1 search request, got %d", len(client.gets))
	}
	req := client.gets[0]
	if req.URL != "https://yandex.example/images/search" {
		t.Errorf("unexpected search url %q", req.URL)
	}
	if req.Query.Get("url") != imageURL || req.Query.Get("rpt") != "imageview" {
		t.Errorf("unexpected query %v", req.Query)
	}
}

func TestParseYandexItems(t *testing.T) {
	html := `<div class="CbirSites-Items">
  <li><div class="CbirSites-ItemInfo"><a href="https://abs.example/1">a</a></div></li>
  <li><div class="CbirSites-ItemInfo"><div><a href="https://nested.example/ignored">deep</a></div></div></li>
  <li>
    <div class="CbirSites-ItemInfo"><a href="/relative/2">first</a></div>
    <div class="CbirSites-ItemInfo"><a href="https://second.example/ignored">second</a></div>
  </li>
  <li><div class="CbirSites-ItemInfo"><a>no href</a></div></li>
</div>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}

	items := parseYandexItems(doc)

	want := []string{"https://abs.example/1", "/relative/2"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d: %#v", len(want), len(items), items)
	}
	for i, link := range want {
		if items[i].Link != link {
			t.Errorf("item %d: expected %q, got %q", i, link, items[i].Link)
		}
	}
}

func TestParseYandexItems_NoContainer(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><p>nothing</p></body></html>`))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	if items := parseYandexItems(doc); len(items) != 0 {
		t.Errorf("expected no items, got %#v", items)
	}
}
