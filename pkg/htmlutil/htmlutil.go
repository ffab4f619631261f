package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// GetText returns the concatenated text of every text node under node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

func invisible(node *html.Node) bool {
	if node.Type == html.CommentNode {
		return true
	}
	if node.Type != html.ElementNode {
		return false
	}
	switch node.DataAtom {
	case atom.Script, atom.Style, atom.Template, atom.Noscript, atom.Head:
		return true
	}
	return false
}

func collectStrings(node *html.Node, out *[]string) {
	if node == nil || invisible(node) {
		return
	}
	if node.Type == html.TextNode {
		text := strings.TrimSpace(node.Data)
		if text != "" {
			*out = append(*out, text)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectStrings(child, out)
	}
}

// Strings returns the trimmed, non-empty text nodes of a selection in document order,
// skipping the contents of script, style, template, noscript and head elements.
func Strings(sel *goquery.Selection) []string {
	var out []string
	for _, n := range sel.Nodes {
		collectStrings(n, &out)
	}
	return out
}

// Lines renders a selection the way a browser user would read it: one line per text
// node, trimmed, with empty lines dropped.
//
// Text nodes that contain newlines are split so that every returned line is a single
// visual line.
func Lines(sel *goquery.Selection) []string {
	var out []string
	for _, s := range Strings(sel) {
		for _, line := range strings.Split(s, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

// JoinedText joins the trimmed text nodes of a selection with a separator.
func JoinedText(sel *goquery.Selection, sep string) string {
	return strings.Join(Strings(sel), sep)
}

// CompactText returns the text of a selection with every text node trimmed and
// concatenated without a separator.
func CompactText(sel *goquery.Selection) string {
	return JoinedText(sel, "")
}

type Anchor struct {
	Url  *url.URL
	Name string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// GetAnchors returns the normalized name and the resolved url of every anchor in
// sel, anchors with unparsable hrefs are skipped.
func GetAnchors(base *url.URL, sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	sel.Each(func(_ int, a *goquery.Selection) {
		href, exists := a.Attr("href")
		if !exists {
			return
		}
		link, err := url.Parse(href)
		if err != nil {
			return
		}
		if base != nil {
			link = base.ResolveReference(link)
		}

		name := GetText(a.Get(0))
		name = removeNonPrintable(name)
		name = strings.Trim(name, " \t\n")
		name = innerWhitespace.ReplaceAllString(name, " ")

		anchors = append(anchors, Anchor{
			Url:  link,
			Name: name,
		})
	})
	return anchors
}
