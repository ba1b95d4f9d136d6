package signals

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vistaceo/vistaceo-server/internal/models"
	rpdf "rsc.io/pdf"
)

// menuPricePattern matches "Lomo saltado S/ 28.50", "Ceviche clásico $12",
// "Tiradito 24,90" — an item name followed by an optional currency marker
// and a price at the end of the line.
var menuPricePattern = regexp.MustCompile(`(?m)^\s*([A-ZÁÉÍÓÚÑ][\wÁÉÍÓÚÑáéíóúñ' ,-]{2,60}?)\s*[.…]*\s*(?:S/\.?|\$|€|USD|PEN)?\s*(\d{1,4}(?:[.,]\d{2})?)\s*$`)

// MenuItem is one dish extracted from a menu PDF.
type MenuItem struct {
	Name  string
	Price float64
}

func extractPDFText(content []byte) (text string, err error) {
	// rsc.io/pdf panics on malformed files; recover instead of taking the
	// process down on a bad upload.
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		for _, fragment := range page.Content().Text {
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// ExtractMenuItems pulls priced dishes out of a menu PDF.
func ExtractMenuItems(content []byte) ([]MenuItem, error) {
	text, err := extractPDFText(content)
	if err != nil {
		return nil, err
	}
	return parseMenuText(text), nil
}

func parseMenuText(text string) []MenuItem {
	var items []MenuItem
	for _, match := range menuPricePattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimRight(strings.TrimSpace(match[1]), " .,")
		if name == "" {
			continue
		}
		price, err := strconv.ParseFloat(strings.ReplaceAll(match[2], ",", "."), 64)
		if err != nil || price <= 0 {
			continue
		}
		items = append(items, MenuItem{Name: name, Price: price})
	}
	return items
}

// MenuItemsToSignals converts extracted dishes into producto signals for the
// radar detector.
func MenuItemsToSignals(items []MenuItem, businessID uuid.UUID) []models.Signal {
	now := time.Now().UTC()
	out := make([]models.Signal, 0, len(items))
	for _, item := range items {
		out = append(out, models.Signal{
			ID:         uuid.New(),
			BusinessID: businessID,
			SourceID:   "menu-pdf",
			Kind:       "menu_item",
			Text:       fmt.Sprintf("%s - %.2f", item.Name, item.Price),
			OccurredAt: now,
			CreatedAt:  now,
		})
	}
	return out
}
