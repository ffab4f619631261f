// Package extract contains the heuristics used to pull structured values out of
// loosely structured portal pages. No rule in this package fails on a miss, a miss
// is always an empty value.
package extract

import (
	"bytes"
	"portalbot-backend/pkg/htmlutil"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ContinuationMarker is appended to text that was cut by Truncate.
const ContinuationMarker = "\n...(続きは管理画面で確認してください)"

func ParseDocument(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewBuffer(body))
}

// Lines returns the rendered lines of a whole document.
func Lines(doc *goquery.Document) []string {
	return htmlutil.Lines(doc.Selection)
}

// Text returns the rendered lines of a whole document joined with newlines.
func Text(doc *goquery.Document) string {
	return strings.Join(Lines(doc), "\n")
}

// LabelRule maps a label line (ex. "本日") to the key its value is stored under.
type LabelRule struct {
	Key   string
	Label string
}

// LabelValues looks for lines exactly equal to a rule's label and takes the line
// right after it as the value. Keys whose label never appears are absent from the
// result, a later occurrence of a label overwrites an earlier one.
func LabelValues(lines []string, rules []LabelRule) map[string]string {
	values := map[string]string{}
	for i, line := range lines {
		if i+1 >= len(lines) {
			break
		}
		for _, rule := range rules {
			if line == rule.Label {
				values[rule.Key] = lines[i+1]
				break
			}
		}
	}
	return values
}

// TableRows renders every row of every table in sel as its cell texts (td and th)
// joined with " | ". Rows without cells or whose cells are all empty are dropped.
func TableRows(sel *goquery.Selection) []string {
	rows := []string{}
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td, th")
		if cells.Length() == 0 {
			return
		}
		texts := make([]string, 0, cells.Length())
		empty := true
		cells.Each(func(_ int, cell *goquery.Selection) {
			text := htmlutil.CompactText(cell)
			if text != "" {
				empty = false
			}
			texts = append(texts, text)
		})
		if empty {
			return
		}
		rows = append(rows, strings.Join(texts, " | "))
	})
	return rows
}

// CapList returns at most the first limit elements of list.
func CapList[T any](list []T, limit int) []T {
	if limit < 0 {
		limit = 0
	}
	if len(list) <= limit {
		return list
	}
	return list[:limit]
}

// Head returns at most the first n runes of text.
func Head(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

// Truncate cuts text to limit runes and appends ContinuationMarker, text that fits
// is returned unmodified.
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return Head(text, limit) + ContinuationMarker
}

// CSRFToken returns the value of the footer csrf input or "" if the page has none.
func CSRFToken(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Find("input#csrf_footer").First().AttrOr("value", ""))
}
