// Package cleaner strips scripts, boilerplate containers, hidden elements,
// and chrome from parsed HTML, then serializes the remaining visible text.
package cleaner

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// junkTags are removed wholesale: non-content embeds, media, form
// controls, and structural chrome.
var junkTags = []string{
	"script", "style", "noscript", "template", "iframe", "frame", "frameset",
	"object", "embed", "canvas", "svg", "video", "audio", "picture", "source",
	"figure", "figcaption", "form", "button", "input", "select", "textarea",
	"label", "nav", "header", "footer", "aside", "menu", "dialog",
}

// landmarkRoles are ARIA roles that denote non-main content.
var landmarkRoles = []string{
	"banner", "navigation", "complementary", "contentinfo",
	"search", "dialog", "alert", "alertdialog",
}

// boilerplateSubstrings flag chrome-like containers by id/class, matched
// case-insensitively.
var boilerplateSubstrings = []string{
	"cookie", "consent", "gdpr", "subscribe", "signup", "newsletter",
	"modal", "overlay", "paywall", "meter", "gate", "promo", "breadcrumb",
	"share", "social", "toolbar", "footer", "header", "nav", "sidebar",
}

var newlineRuns = regexp.MustCompile(`\n{3,}`)

// Cleaner removes non-content nodes from HTML documents. The zero value
// is usable; New exists for symmetry with the other pipeline components.
type Cleaner struct{}

// New creates a Cleaner.
func New() *Cleaner {
	return &Cleaner{}
}

// Clean parses rawHTML, prunes the body subtree in place, and returns the
// visible text with newline block separators. Re-running Clean on its own
// output (re-parsed as tag-free text) yields the same text.
func (c *Cleaner) Clean(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	// Each step removes matched nodes before the next one runs.
	removeComments(body)
	body.Find(strings.Join(junkTags, ", ")).Remove()
	removeLandmarks(body)
	removeHidden(body)
	removeBoilerplate(body)

	return CollapseNewlines(visibleText(body)), nil
}

// removeComments drops comment nodes from the subtree.
func removeComments(sel *goquery.Selection) {
	for _, root := range sel.Nodes {
		var comments []*html.Node
		var walk func(n *html.Node)
		walk = func(n *html.Node) {
			if n.Type == html.CommentNode {
				comments = append(comments, n)
				return
			}
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				walk(child)
			}
		}
		walk(root)
		for _, n := range comments {
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
		}
	}
}

// removeLandmarks drops elements carrying non-main ARIA landmark roles.
func removeLandmarks(sel *goquery.Selection) {
	var parts []string
	for _, role := range landmarkRoles {
		parts = append(parts, "[role="+role+"]")
	}
	sel.Find(strings.Join(parts, ",")).Remove()
}

// removeHidden drops elements that are explicitly hidden: a hidden
// attribute, or inline display:none / visibility:hidden (with or without
// a space after the colon).
func removeHidden(sel *goquery.Selection) {
	sel.Find("[hidden]").Remove()
	sel.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			s.Remove()
		}
	})
}

// removeBoilerplate drops elements whose id or class contains a known
// chrome substring.
func removeBoilerplate(sel *goquery.Selection) {
	sel.Find("[id], [class]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		class, _ := s.Attr("class")
		haystack := strings.ToLower(id + " " + class)
		for _, sub := range boilerplateSubstrings {
			if strings.Contains(haystack, sub) {
				s.Remove()
				return
			}
		}
	})
}

// visibleText serializes the remaining text nodes, one block per line.
func visibleText(sel *goquery.Selection) string {
	var parts []string
	for _, root := range sel.Nodes {
		var walk func(n *html.Node)
		walk = func(n *html.Node) {
			if n.Type == html.TextNode {
				if text := strings.TrimSpace(n.Data); text != "" {
					parts = append(parts, text)
				}
				return
			}
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				walk(child)
			}
		}
		walk(root)
	}
	return strings.Join(parts, "\n")
}

// CollapseNewlines reduces runs of 3+ consecutive newlines to exactly 2
// and trims the result. Applying it twice produces the same string as
// applying it once.
func CollapseNewlines(text string) string {
	return strings.TrimSpace(newlineRuns.ReplaceAllString(text, "\n\n"))
}
