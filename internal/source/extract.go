// Package source implements the per-shape source adapters behind the
// engine.Adapter contract: static markup, headless-rendered pages, paginated
// JSON APIs, and syndication feeds.
package source

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// Listing titles shorter than this are navigation chrome, not solicitations.
const minTitleLength = 10

var skipLinkText = []string{"click here", "read more", "learn more", "view all"}

// extractCandidates walks the source's item selector over parsed markup and
// maps each matched element into a raw candidate. Items without a usable
// title are skipped here; everything else is left to the normalizer.
func extractCandidates(doc *goquery.Document, src engine.SourceConfig, pageURL string) []engine.RawCandidate {
	base, _ := url.Parse(pageURL)
	sel := src.Selectors

	var out []engine.RawCandidate
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		title := fieldText(item, sel.Title)
		if title == "" {
			title = strings.TrimSpace(item.Find("a").First().Text())
		}
		if len(title) < minTitleLength || isNavigationText(title) {
			return
		}

		link := fieldAttr(item, sel.Link, "href")
		if link == "" {
			link, _ = item.Find("a").First().Attr("href")
		}

		agency := fieldText(item, sel.Agency)
		if agency == "" {
			agency = src.Agency
		}

		candidate := engine.RawCandidate{
			SourceID:           src.ID,
			Title:              title,
			Body:               fieldText(item, sel.Body),
			Agency:             agency,
			SolicitationNumber: fieldText(item, sel.Number),
			PostedDateRaw:      fieldText(item, sel.PostedDate),
			DueDateRaw:         fieldText(item, sel.DueDate),
			URL:                resolveURL(base, link, pageURL),
		}

		if sel.Attachment != "" {
			item.Find(sel.Attachment).Each(func(_ int, a *goquery.Selection) {
				if href, ok := a.Attr("href"); ok {
					candidate.Attachments = append(candidate.Attachments, resolveURL(base, href, pageURL))
				}
			})
		}

		out = append(out, candidate)
	})
	return out
}

func fieldText(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(item.Find(selector).First().Text())
}

func fieldAttr(item *goquery.Selection, selector, attr string) string {
	if selector == "" {
		return ""
	}
	v, _ := item.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

func resolveURL(base *url.URL, href, fallback string) string {
	if href == "" {
		return fallback
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return fallback
	}
	return base.ResolveReference(ref).String()
}

func isNavigationText(title string) bool {
	lower := strings.ToLower(title)
	for _, skip := range skipLinkText {
		if strings.Contains(lower, skip) {
			return true
		}
	}
	return false
}
