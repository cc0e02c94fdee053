package opponent

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractHTML parses a rendered page snapshot and runs Extract over it.
func ExtractHTML(html string, m Markup) (ExtractionResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("failed to parse page html: %w", err)
	}
	return Extract(doc, m), nil
}

// Extract reads the player name and every opponent link from doc. Links without
// an id or a name are skipped; a repeated id keeps its first occurrence.
// It only reads the document.
func Extract(doc *goquery.Document, m Markup) ExtractionResult {
	res := ExtractionResult{
		PlayerName: strings.TrimSpace(doc.Find(m.PlayerName).First().Text()),
		Opponents:  []Opponent{},
	}

	seen := make(map[string]struct{})
	doc.Find(m.OpponentLink).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		id := idFromHref(href)
		name := strings.TrimSpace(link.Find(m.OpponentName).First().Text())
		if id == "" || name == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		res.Opponents = append(res.Opponents, Opponent{ID: id, Name: name})
	})
	return res
}

// idFromHref reads the "id" query parameter of an opponent link ("/?id=123"),
// falling back to the text between the first and second "=".
func idFromHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil {
		if id := strings.TrimSpace(u.Query().Get("id")); id != "" {
			return id
		}
	}
	parts := strings.Split(href, "=")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
