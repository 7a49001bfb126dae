// Package htmltable recovers ordered label→value pairs from the nested
// table markup produced by the upstream form mailer.
//
// Each answer lives in a <tr class="questionRow"> whose cells identify
// themselves as the question or value column by class. Rows may nest further
// row elements (chip lists render as tables inside the value cell), so row
// boundaries are depth-counted and only the outermost close ends capture.
package htmltable

import (
	"strings"

	"golang.org/x/net/html"
)

const (
	targetNone = iota
	targetQuestion
	targetValue
)

// Extract walks the markup and returns every captured question mapped to its
// values in document order. Repeated questions accumulate multiple values.
// Rows with an empty question are discarded.
func Extract(markup string) map[string][]string {
	z := html.NewTokenizer(strings.NewReader(markup))

	rows := make(map[string][]string)
	var (
		rowActive bool
		rowDepth  int
		target    int
		question  []string
		value     []string
	)

	reset := func() {
		rowActive = false
		rowDepth = 0
		target = targetNone
		question = nil
		value = nil
	}

	appendText := func(text string) {
		switch target {
		case targetQuestion:
			question = append(question, text)
		case targetValue:
			value = append(value, text)
		}
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			classes := classList(tok)

			switch tok.Data {
			case "tr":
				if hasClass(classes, "questionRow") {
					rowActive = true
					rowDepth = 1
					target = targetNone
					question = nil
					value = nil
					continue
				}
				if rowActive {
					rowDepth++
				}
			case "td":
				// Column identity only applies to cells of the capture row
				// itself; cells of nested chip tables keep the current
				// accumulator open.
				if !rowActive || rowDepth != 1 {
					continue
				}
				if hasClass(classes, "questionColumn") {
					target = targetQuestion
				} else if hasClass(classes, "valueColumn") {
					target = targetValue
				}
			case "br":
				if rowActive {
					appendText("\n")
				}
			case "table":
				// Chip answers are wrapped in nested tables; inject a
				// newline so individual chips stay separable.
				if rowActive && target == targetValue {
					value = append(value, "\n")
				}
			}

		case html.EndTagToken:
			if !rowActive {
				continue
			}
			tok := z.Token()
			switch tok.Data {
			case "td":
				if rowDepth == 1 {
					target = targetNone
				}
			case "tr":
				if rowDepth > 1 && target == targetValue {
					// End of a chip row inside a nested table.
					value = append(value, "\n")
				}
				rowDepth--
				if rowDepth <= 0 {
					q := flatten(question)
					v := flatten(value)
					if q != "" {
						label := strings.Join(strings.Fields(q), " ")
						rows[label] = append(rows[label], v)
					}
					reset()
				}
			case "table":
				if target == targetValue {
					value = append(value, "\n")
				}
			}

		case html.TextToken:
			if rowActive && target != targetNone {
				appendText(strings.ReplaceAll(string(z.Text()), " ", " "))
			}
		}
	}

	return rows
}

func classList(tok html.Token) []string {
	for _, a := range tok.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func hasClass(classes []string, want string) bool {
	for _, c := range classes {
		if c == want {
			return true
		}
	}
	return false
}

// flatten joins accumulated chunks, normalizes line endings, strips each
// line, drops empties, and rejoins with single newlines.
func flatten(chunks []string) string {
	raw := strings.ReplaceAll(strings.Join(chunks, ""), "\r", "\n")
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
