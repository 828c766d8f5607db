// File: internal/sanitize/sanitize.go

// Package sanitize reduces raw HTML to a clean, plain-text rendering that is
// safe to hand to a language model. It strips script-like subtrees, comment
// nodes, visually hidden elements, suspicious attributes, and invisible
// Unicode code points before converting the remaining tree to a lightweight
// markdown-style text form.
package sanitize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// TruncationMarker is appended whenever output is cut at MaxLength.
const TruncationMarker = "\n\n[... truncated]"

// DefaultStripTags are removed together with their entire subtree.
var DefaultStripTags = []string{
	"script", "style", "noscript", "iframe", "object", "embed", "svg",
	"link", "meta",
}

// hiddenStylePatterns match inline styles that make an element invisible.
var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0(?:[;\s]|$)`),
	regexp.MustCompile(`(?i)font-size\s*:\s*0`),
	regexp.MustCompile(`(?i)width\s*:\s*0`),
	regexp.MustCompile(`(?i)height\s*:\s*0`),
	regexp.MustCompile(`(?i)overflow\s*:\s*hidden`),
	regexp.MustCompile(`(?is)position\s*:\s*absolute.*?left\s*:\s*-\d{4,}`),
}

// hiddenClassFragments are class-name fragments that conventionally hide
// content from sighted users.
var hiddenClassFragments = []string{"hidden", "sr-only", "visually-hidden", "offscreen"}

// suspiciousAttrs are stripped from every element in addition to data-*
// attributes. Stripping happens after hidden-element removal so the hidden
// check still sees aria-hidden.
var suspiciousAttrs = map[string]bool{
	"aria-hidden":      true,
	"data-prompt":      true,
	"data-instruction": true,
}

// invisibleRunes are zero-width and direction-control code points abused to
// smuggle text past human review.
var invisibleRunes = map[rune]bool{
	'\u200b': true, '\u200c': true, '\u200d': true, '\u200e': true, '\u200f': true,
	'\u2060': true, '\u2061': true, '\u2062': true, '\u2063': true, '\u2064': true,
	'\ufeff': true, '\u00ad': true, '\u034f': true, '\u061c': true, '\u180e': true,
	'\u2800': true,
}

var (
	excessNewlines = regexp.MustCompile(`\n{4,}`)
	trailingSpace  = regexp.MustCompile(`[ \t]+\n`)
)

// Options control the individual pipeline stages.
type Options struct {
	// MaxLength caps the output length in runes. Zero means no cap.
	MaxLength int
	// StripTags overrides DefaultStripTags when non-nil.
	StripTags []string
	// StripHidden removes visually hidden elements.
	StripHidden bool
	// StripInvisible removes invisible Unicode code points.
	StripInvisible bool
}

// DefaultOptions returns the production pipeline configuration.
func DefaultOptions() Options {
	return Options{
		MaxLength:      50000,
		StripHidden:    true,
		StripInvisible: true,
	}
}

// Transform converts raw markup to clean text. It is pure and deterministic
// for a given input and option set, and degrades to best-effort text
// extraction on malformed markup rather than failing.
func Transform(raw string, opts Options) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		// html.Parse recovers from almost anything; if it doesn't, fall back
		// to character-level cleanup of the input.
		return finish(raw, opts)
	}

	stripTags := opts.StripTags
	if stripTags == nil {
		stripTags = DefaultStripTags
	}
	if len(stripTags) > 0 {
		doc.Find(strings.Join(stripTags, ", ")).Remove()
	}

	for _, root := range doc.Nodes {
		removeComments(root)
	}

	if opts.StripHidden {
		doc.Find("*").Each(func(_ int, s *goquery.Selection) {
			if isHidden(s) {
				s.Remove()
			}
		})
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		stripSuspiciousAttrs(s)
	})

	var sb strings.Builder
	body := doc.Find("body")
	if len(body.Nodes) > 0 {
		for _, n := range body.Nodes {
			renderChildren(n, &sb)
		}
	} else {
		for _, n := range doc.Nodes {
			renderChildren(n, &sb)
		}
	}

	return finish(sb.String(), opts)
}

// ExtractText returns the bare text content of the markup with stripped tags
// removed and no block structure preserved.
func ExtractText(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return stripInvisible(raw)
	}
	doc.Find(strings.Join(DefaultStripTags, ", ")).Remove()

	fields := strings.Fields(doc.Text())
	return stripInvisible(strings.Join(fields, " "))
}

// finish applies the character-level stages: invisible-rune removal,
// whitespace normalization, and truncation.
func finish(text string, opts Options) string {
	if opts.StripInvisible {
		text = stripInvisible(text)
	}
	text = excessNewlines.ReplaceAllString(text, "\n\n\n")
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = strings.TrimSpace(text)

	if opts.MaxLength > 0 {
		runes := []rune(text)
		if len(runes) > opts.MaxLength {
			text = string(runes[:opts.MaxLength]) + TruncationMarker
		}
	}
	return text
}

func stripInvisible(text string) string {
	return strings.Map(func(r rune) rune {
		if invisibleRunes[r] {
			return -1
		}
		return r
	}, text)
}

// removeComments deletes every comment node under n.
func removeComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			removeComments(c)
		}
		c = next
	}
}

// isHidden reports whether an element is visually hidden via inline style,
// aria-hidden, or a conventional hiding class.
func isHidden(s *goquery.Selection) bool {
	if style, ok := s.Attr("style"); ok {
		for _, p := range hiddenStylePatterns {
			if p.MatchString(style) {
				return true
			}
		}
	}
	if v, ok := s.Attr("aria-hidden"); ok && v == "true" {
		return true
	}
	if classes, ok := s.Attr("class"); ok {
		lower := strings.ToLower(classes)
		for _, fragment := range hiddenClassFragments {
			if strings.Contains(lower, fragment) {
				return true
			}
		}
	}
	return false
}

// stripSuspiciousAttrs drops data-* and known injection-carrier attributes.
func stripSuspiciousAttrs(s *goquery.Selection) {
	for _, n := range s.Nodes {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if strings.HasPrefix(a.Key, "data-") || suspiciousAttrs[a.Key] {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}
}

// headingLevels maps heading tags to their markdown prefix depth.
var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// blockTags end with a paragraph break in the text rendering.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "header": true,
	"footer": true, "main": true, "aside": true, "nav": true, "table": true,
	"blockquote": true, "form": true, "fieldset": true, "pre": true,
}

// renderChildren writes the text form of n's children to sb.
func renderChildren(n *html.Node, sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(c, sb)
	}
}

func renderNode(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		// Collapse indentation but keep newlines so that already-clean text
		// passes through unchanged.
		sb.WriteString(collapseSpaces(n.Data))
	case html.ElementNode:
		tag := n.Data
		if level, ok := headingLevels[tag]; ok {
			text := inlineText(n)
			if text != "" {
				sb.WriteString("\n\n")
				sb.WriteString(strings.Repeat("#", level))
				sb.WriteString(" ")
				sb.WriteString(text)
				sb.WriteString("\n\n")
			}
			return
		}
		switch tag {
		case "br":
			sb.WriteString("\n")
		case "img":
			// Images are dropped.
		case "ul", "ol":
			renderList(n, sb, tag == "ol")
		case "a":
			text := inlineText(n)
			href, hasHref := attr(n, "href")
			switch {
			case text == "":
			case hasHref && href != "":
				sb.WriteString("[" + text + "](" + href + ")")
			default:
				sb.WriteString(text)
			}
		case "tr", "li":
			renderChildren(n, sb)
			sb.WriteString("\n")
		default:
			renderChildren(n, sb)
			if blockTags[tag] {
				sb.WriteString("\n\n")
			}
		}
	}
}

// renderList writes each list item on its own line with a bullet or index.
func renderList(n *html.Node, sb *strings.Builder, ordered bool) {
	sb.WriteString("\n")
	index := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		index++
		text := inlineText(c)
		if text == "" {
			continue
		}
		if ordered {
			sb.WriteString(strconv.Itoa(index) + ". " + text + "\n")
		} else {
			sb.WriteString("- " + text + "\n")
		}
	}
	sb.WriteString("\n")
}

// inlineText flattens the subtree to single-line text, preserving link targets.
func inlineText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			sb.WriteString(node.Data)
		case html.ElementNode:
			if node.Data == "img" {
				return
			}
			if node.Data == "a" {
				if href, ok := attr(node, "href"); ok && href != "" {
					var inner strings.Builder
					for c := node.FirstChild; c != nil; c = c.NextSibling {
						collectText(c, &inner)
					}
					text := strings.Join(strings.Fields(inner.String()), " ")
					if text != "" {
						sb.WriteString("[" + text + "](" + href + ")")
					}
					return
				}
			}
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

var spaceRun = regexp.MustCompile(`[ \t]+`)

func collapseSpaces(s string) string {
	return spaceRun.ReplaceAllString(s, " ")
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
