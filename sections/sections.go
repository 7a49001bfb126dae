// Package sections extracts labelled sections from plain-text care notes.
//
// A section starts on a line that begins with a known label (matched
// case-insensitively, with trailing colon/dash/semicolon separators
// swallowed) and runs until the next label or end of input. Text before the
// first label is dropped. Blank lines inside a section survive as single
// paragraph breaks; leading and trailing blanks are trimmed.
package sections

import (
	"regexp"
	"strings"
)

// Parser matches an ordered set of labels against text lines.
type Parser struct {
	labels   []string
	patterns []*regexp.Regexp
}

// NewParser compiles one line-anchor pattern per label. Label order decides
// which label wins when one is a prefix of another, so callers should list
// longer labels first if they overlap.
func NewParser(labels []string) *Parser {
	p := &Parser{labels: labels}
	for _, label := range labels {
		p.patterns = append(p.patterns,
			regexp.MustCompile(`(?i)^`+regexp.QuoteMeta(label)+`[\s:;-]*(.*)$`))
	}
	return p
}

// Labels returns the labels this parser recognises, in declaration order.
func (p *Parser) Labels() []string { return p.labels }

// Parse scans text top to bottom and returns the section body for every
// label that appeared. Labels that never matched are absent from the map,
// as are labels whose section ended up empty.
func (p *Parser) Parse(text string) map[string]string {
	out := make(map[string]string)

	var current string
	var lines []string
	flush := func() {
		if current == "" || len(lines) == 0 {
			return
		}
		if body := joinSection(lines); body != "" {
			out[current] = body
		}
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			// Paragraph break, only meaningful inside an open section.
			if current != "" && len(lines) > 0 {
				lines = append(lines, "")
			}
			continue
		}

		matched, remainder := p.matchLabel(line)
		if matched != "" {
			flush()
			current = matched
			lines = nil
			if remainder != "" {
				lines = append(lines, remainder)
			}
			continue
		}

		if current != "" {
			lines = append(lines, line)
		}
	}
	flush()

	return out
}

func (p *Parser) matchLabel(line string) (label, remainder string) {
	for i, pattern := range p.patterns {
		if m := pattern.FindStringSubmatch(line); m != nil {
			return p.labels[i], strings.TrimSpace(m[1])
		}
	}
	return "", ""
}

// joinSection trims leading/trailing blank lines and collapses runs of
// interior blanks to a single paragraph break.
func joinSection(lines []string) string {
	var kept []string
	for _, line := range lines {
		if line == "" && (len(kept) == 0 || kept[len(kept)-1] == "") {
			continue
		}
		kept = append(kept, line)
	}
	for len(kept) > 0 && kept[len(kept)-1] == "" {
		kept = kept[:len(kept)-1]
	}
	return strings.Join(kept, "\n")
}
