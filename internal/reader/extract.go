package reader

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// minContentChars is the smallest text length a candidate container
// must carry to count as article content.
const minContentChars = 250

// removedSelectors is boilerplate stripped before scoring candidates.
var removedSelectors = []string{
	"script", "style", "noscript", "iframe",
	"nav", "aside", "footer", "form", "header",
}

// candidateSelectors are tried in order before falling back to density
// scoring. Sites that mark up an article container win immediately.
var candidateSelectors = []string{
	"article",
	"main",
	"[role=main]",
	"#content",
	".post-content",
	".article-body",
}

func extract(doc *goquery.Document, target string) (*Article, error) {
	for _, selector := range removedSelectors {
		doc.Find(selector).Remove()
	}

	content := pickContent(doc)
	if content == "" {
		return nil, ErrUnreadable
	}

	return &Article{
		Title:    pickTitle(doc),
		Byline:   pickByline(doc),
		Content:  content,
		Excerpt:  pickExcerpt(doc),
		SiteName: pickSiteName(doc, target),
	}, nil
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if value, ok := doc.Find(selector).First().Attr("content"); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func pickTitle(doc *goquery.Document) string {
	if title := metaContent(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func pickByline(doc *goquery.Document) string {
	if byline := metaContent(doc, `meta[name="author"]`, `meta[property="article:author"]`); byline != "" {
		return byline
	}
	return strings.TrimSpace(doc.Find(`[rel="author"]`).First().Text())
}

func pickExcerpt(doc *goquery.Document) string {
	return metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`)
}

func pickSiteName(doc *goquery.Document, target string) string {
	if name := metaContent(doc, `meta[property="og:site_name"]`); name != "" {
		return name
	}
	if parsed, err := url.Parse(target); err == nil {
		return strings.TrimPrefix(parsed.Hostname(), "www.")
	}
	return ""
}

// pickContent returns the HTML of the best article container: the
// first explicit candidate with enough text, otherwise the element
// holding the largest share of paragraph text.
func pickContent(doc *goquery.Document) string {
	for _, selector := range candidateSelectors {
		selection := doc.Find(selector).First()
		if selection.Length() == 0 {
			continue
		}
		if textLength(selection) >= minContentChars {
			if html, err := goquery.OuterHtml(selection); err == nil {
				return html
			}
		}
	}

	// Density fallback: score each paragraph's parent by accumulated
	// paragraph text and take the heaviest one.
	best := struct {
		selection *goquery.Selection
		score     int
	}{}
	scores := map[*goquery.Selection]int{}
	parents := []*goquery.Selection{}

	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		parent := p.Parent()
		node := parent.Get(0)
		var existing *goquery.Selection
		for _, seen := range parents {
			if seen.Get(0) == node {
				existing = seen
				break
			}
		}
		if existing == nil {
			existing = parent
			parents = append(parents, parent)
		}
		scores[existing] += len(strings.TrimSpace(p.Text()))
	})
	for _, parent := range parents {
		if scores[parent] > best.score {
			best.selection = parent
			best.score = scores[parent]
		}
	}

	if best.selection == nil || best.score < minContentChars {
		return ""
	}
	html, err := goquery.OuterHtml(best.selection)
	if err != nil {
		return ""
	}
	return html
}

func textLength(selection *goquery.Selection) int {
	return len(strings.TrimSpace(selection.Text()))
}
