package spell

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Suggestion is one phrase flagged by the correction service. An empty
// Output means no replacement was offered; an empty Help means no note.
type Suggestion struct {
	Input  string
	Output string
	Help   string
	// Extra holds rows whose label is not one of the known ones.
	Extra map[string]string
}

const (
	fieldInput  = "input"
	fieldOutput = "output"
	fieldHelp   = "help"

	noReplacement = "대치어 없음"
	noValue       = "없음"
)

var fieldLabels = map[string]string{
	"입력 내용": fieldInput,
	"대치어":   fieldOutput,
	"도움말":   fieldHelp,
}

// Extract parses a correction-service result page and returns the
// suggestions that pass Keep, in document order. A page without correction
// tables yields no suggestions.
func Extract(page string) ([]Suggestion, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse correction page: %w", err)
	}

	var out []Suggestion
	var failure error
	doc.Find(`table[class="tableErrCorrect"]`).EachWithBreak(func(i int, table *goquery.Selection) bool {
		s, err := parseTable(table)
		if err != nil {
			failure = fmt.Errorf("correction table %d: %w", i+1, err)
			return false
		}
		if Keep(s) {
			out = append(out, s)
		}
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return out, nil
}

func parseTable(table *goquery.Selection) (Suggestion, error) {
	fields := make(map[string]string)

	// The HTML parser wraps bare rows in tbody; rows of nested tables are
	// not ours.
	rows := table.ChildrenFiltered("thead, tbody, tfoot").ChildrenFiltered("tr")
	for i := range rows.Nodes {
		cells := rows.Eq(i).ChildrenFiltered("td")
		if cells.Length() < 2 {
			return Suggestion{}, fmt.Errorf("%w: row %d has %d cells", ErrMalformedResponse, i+1, cells.Length())
		}
		key := flattenText(cells.Get(0))
		if key == "" {
			return Suggestion{}, fmt.Errorf("%w: row %d has no label", ErrMalformedResponse, i+1)
		}
		if mapped, ok := fieldLabels[key]; ok {
			key = mapped
		}

		value := cells.Eq(1)
		switch key {
		case fieldInput, fieldOutput:
			v := strings.TrimSpace(leadingText(value.Get(0)))
			if v != "" && (key != fieldOutput || v != noReplacement) {
				fields[key] = v
			}
		default:
			v := flattenText(value.Get(0))
			if v != "" && v != noValue {
				fields[key] = v
			}
		}
	}

	input, ok := fields[fieldInput]
	if !ok {
		return Suggestion{}, fmt.Errorf("%w: no input row", ErrMalformedResponse)
	}
	s := Suggestion{Input: input, Output: fields[fieldOutput], Help: fields[fieldHelp]}
	for k, v := range fields {
		if k == fieldInput || k == fieldOutput || k == fieldHelp {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]string)
		}
		s.Extra[k] = v
	}
	return s, nil
}

// leadingText returns the text of n that precedes its first child element.
func leadingText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil && c.Type == html.TextNode; c = c.NextSibling {
		b.WriteString(c.Data)
	}
	return b.String()
}

// flattenText joins every text node below n, each trimmed, with single
// spaces.
func flattenText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				parts = append(parts, strings.TrimSpace(c.Data))
			case html.ElementNode:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(strings.Join(parts, " "))
}
