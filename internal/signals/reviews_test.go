package signals

import (
	"testing"
)

var reviewSource = SourceConfig{
	ID:   "google-reviews",
	Kind: "reviews",
	Selectors: SelectorConfig{
		Container: "div.review-item",
		Author:    "span.author-name",
		Text:      "span.review-text",
		Rating:    "span.rating",
		Date:      "span.review-date",
	},
}

const reviewHTML = `
<html><body>
  <div class="review-item">
    <span class="author-name">Carla M.</span>
    <span class="rating" aria-label="4,5 estrellas">★★★★</span>
    <span class="review-text">Rica comida pero <b>esperamos 25 minutos</b> por la mesa.</span>
    <span class="review-date">2026-07-15</span>
  </div>
  <div class="review-item">
    <span class="author-name">Jorge</span>
    <span class="rating">5</span>
    <span class="review-text">   Excelente   atención
    del personal.  </span>
  </div>
  <div class="review-item">
    <span class="author-name">Bot</span>
    <span class="review-text"></span>
  </div>
</body></html>`

func TestParseReviews_ExtractsAndSanitizes(t *testing.T) {
	reviews, err := ParseReviews([]byte(reviewHTML), reviewSource)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews (empty one dropped), got %d", len(reviews))
	}

	first := reviews[0]
	if first.Author != "Carla M." {
		t.Fatalf("unexpected author: %q", first.Author)
	}
	if first.Text != "Rica comida pero esperamos 25 minutos por la mesa." {
		t.Fatalf("markup not stripped: %q", first.Text)
	}
	if first.Rating != 4.5 {
		t.Fatalf("expected rating 4.5 from aria-label, got %v", first.Rating)
	}
	if first.Date != "2026-07-15" {
		t.Fatalf("unexpected date: %q", first.Date)
	}

	second := reviews[1]
	if second.Text != "Excelente atención del personal." {
		t.Fatalf("whitespace not collapsed: %q", second.Text)
	}
	if second.Rating != 5 {
		t.Fatalf("expected rating 5 from element text, got %v", second.Rating)
	}
}

func TestParseRating(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"4,5 estrellas", 4.5},
		{"Rated 4.0 of 5 bubbles", 4.0},
		{"5", 5},
		{"sin calificación", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := parseRating(c.raw); got != c.want {
			t.Fatalf("parseRating(%q): expected %v, got %v", c.raw, c.want, got)
		}
	}
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.Sources) == 0 {
		t.Fatal("expected at least one configured source")
	}

	src, ok := reg.FindSource("google-reviews")
	if !ok {
		t.Fatal("google-reviews source missing from registry")
	}
	if src.Kind != "reviews" {
		t.Fatalf("unexpected kind: %q", src.Kind)
	}
	if src.Selectors.Container == "" || src.Selectors.Text == "" {
		t.Fatal("review source must define container and text selectors")
	}

	if _, ok := reg.FindSource("nope"); ok {
		t.Fatal("unknown source id must not resolve")
	}
}

func TestParseMenuText(t *testing.T) {
	text := `CARTA PRINCIPAL
Lomo Saltado ..... S/ 28.50
Ceviche Clásico $ 24,90
Ají de gallina
Causa Limeña 18
`
	items := parseMenuText(text)
	if len(items) != 3 {
		t.Fatalf("expected 3 priced items, got %d (%v)", len(items), items)
	}
	if items[0].Name != "Lomo Saltado" || items[0].Price != 28.5 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Price != 24.9 {
		t.Fatalf("expected 24.90, got %v", items[1].Price)
	}
	if items[2].Name != "Causa Limeña" || items[2].Price != 18 {
		t.Fatalf("unexpected third item: %+v", items[2])
	}
}
