package signals

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/vistaceo/vistaceo-server/internal/models"
)

var reviewSanitizer = bluemonday.StrictPolicy()

var ratingPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)

// Review is one extracted review before it becomes a signal record.
type Review struct {
	Author string
	Text   string
	Rating float64
	Date   string
}

// ParseReviews extracts reviews from a listing page using the source's
// selectors. Reviews with no usable text are dropped; everything else is
// sanitized and whitespace-collapsed.
func ParseReviews(html []byte, src SourceConfig) ([]Review, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse review html: %w", err)
	}

	var reviews []Review
	doc.Find(src.Selectors.Container).Each(func(i int, sel *goquery.Selection) {
		text := cleanText(sel.Find(src.Selectors.Text).Text())
		if text == "" {
			return
		}

		review := Review{Text: text}
		if src.Selectors.Author != "" {
			review.Author = cleanText(sel.Find(src.Selectors.Author).Text())
		}
		if src.Selectors.Date != "" {
			review.Date = cleanText(sel.Find(src.Selectors.Date).Text())
		}
		if src.Selectors.Rating != "" {
			ratingSel := sel.Find(src.Selectors.Rating)
			raw := ratingSel.AttrOr("aria-label", "")
			if raw == "" {
				raw = ratingSel.Text()
			}
			review.Rating = parseRating(raw)
		}

		reviews = append(reviews, review)
	})

	return reviews, nil
}

// IngestReviews fetches every seed page of a source and converts its reviews
// into signal records for one business. Page failures are logged and
// skipped; partial results are better than none.
func IngestReviews(ctx context.Context, fetcher Fetcher, src SourceConfig, businessID uuid.UUID) ([]models.Signal, error) {
	if src.Kind != "reviews" {
		return nil, fmt.Errorf("source %s is not a review source", src.ID)
	}

	now := time.Now().UTC()
	var out []models.Signal
	for _, seed := range src.Seeds {
		body, err := fetcher.Fetch(ctx, src, seed)
		if err != nil {
			log.Printf("signals: fetch %s failed: %v", seed, err)
			continue
		}

		reviews, err := ParseReviews(body, src)
		if err != nil {
			log.Printf("signals: parse %s failed: %v", seed, err)
			continue
		}

		for _, review := range reviews {
			out = append(out, models.Signal{
				ID:         uuid.New(),
				BusinessID: businessID,
				SourceID:   src.ID,
				Kind:       "review",
				Text:       review.Text,
				Rating:     review.Rating,
				OccurredAt: parseReviewDate(review.Date, now),
				CreatedAt:  now,
			})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no reviews extracted for source %s", src.ID)
	}
	return out, nil
}

// cleanText strips markup and collapses whitespace.
func cleanText(s string) string {
	s = reviewSanitizer.Sanitize(s)
	return strings.Join(strings.Fields(s), " ")
}

// parseRating pulls the first numeric value out of strings like
// "4,5 estrellas" or "Rated 4.0 of 5 bubbles".
func parseRating(raw string) float64 {
	match := ratingPattern.FindString(raw)
	if match == "" {
		return 0
	}
	match = strings.ReplaceAll(match, ",", ".")
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value
}

var reviewDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2 de January de 2006",
}

// parseReviewDate is best effort; unknown formats fall back to now so the
// signal still lands with a usable timestamp.
func parseReviewDate(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	for _, format := range reviewDateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback
}
