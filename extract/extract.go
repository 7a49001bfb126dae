// Package extract turns parsed care documents into canonical records.
//
// Each template is described entirely by data: a body kind, an ordered table
// of field mappings from verbatim source labels to canonical keys and value
// types, and an optional date-fallback key. Extraction itself is one shared
// algorithm over those tables, so a new template is a new table, not new
// control flow.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/carenotes/htmltable"
	"github.com/hazyhaar/carenotes/mailfile"
	"github.com/hazyhaar/carenotes/normalize"
	"github.com/hazyhaar/carenotes/sections"
)

// ErrMissingBody reports that a document lacks the body representation its
// template requires.
var ErrMissingBody = errors.New("required body missing")

// ValueType is the closed set of canonical value types a field mapping may
// declare.
type ValueType string

const (
	TypeText     ValueType = "text"
	TypeDate     ValueType = "date"
	TypeDateTime ValueType = "datetime"
	TypeTime     ValueType = "time"
	TypeBool     ValueType = "bool"
	TypeInt      ValueType = "int"
	TypeList     ValueType = "list"
	TypeJSONList ValueType = "json_list"
	TypeBullets  ValueType = "bullets"
)

// BodyKind selects which body representation a template parses.
type BodyKind int

const (
	BodyText BodyKind = iota
	BodyHTML
)

// FieldMapping is one declarative extraction rule: the verbatim label as it
// appears in the source document, the canonical key it maps to, and how the
// raw value is typed.
type FieldMapping struct {
	Label string
	Key   string
	Type  ValueType
}

// Result is the outcome of extracting one document. Canonical holds only
// mapped keys whose raw value normalized successfully; Additional holds
// every label the parser found that no mapping consumed.
type Result struct {
	EntityType string
	Canonical  map[string]any
	Additional map[string]string
}

// Extractor binds a template to its entity type, body kind and mapping
// table. Extractors are immutable after construction.
type Extractor struct {
	TemplateID      string
	EntityType      string
	Body            BodyKind
	Mappings        []FieldMapping
	FallbackDateKey string

	parser *sections.Parser
}

// Extract parses the document body, applies the mapping table in declaration
// order, and returns the canonical record plus unmapped leftovers. It fails
// only when the required body representation is absent; individual values
// that refuse to normalize are silently dropped from the canonical map.
func (e *Extractor) Extract(env *mailfile.Envelope) (*Result, error) {
	fields, err := e.parseBody(env)
	if err != nil {
		return nil, err
	}

	pool := newPool(fields)
	canonical := make(map[string]any)

	for _, m := range e.Mappings {
		raw, ok := pool.pop(m.Label)
		if !ok {
			continue
		}
		if v := transform(raw, m.Type); v != nil {
			canonical[m.Key] = v
		}
	}

	if e.FallbackDateKey != "" {
		if _, ok := canonical[e.FallbackDateKey]; !ok && !env.SentAt.IsZero() {
			canonical[e.FallbackDateKey] = env.SentAt.Format("2006-01-02")
		}
	}

	return &Result{
		EntityType: e.EntityType,
		Canonical:  canonical,
		Additional: pool.remaining(),
	}, nil
}

func (e *Extractor) parseBody(env *mailfile.Envelope) (map[string][]string, error) {
	switch e.Body {
	case BodyHTML:
		if env.HTMLBody == "" {
			return nil, fmt.Errorf("%w: template %s needs an HTML body", ErrMissingBody, e.TemplateID)
		}
		return htmltable.Extract(env.HTMLBody), nil
	default:
		if env.TextBody == "" {
			return nil, fmt.Errorf("%w: template %s needs a plain-text body", ErrMissingBody, e.TemplateID)
		}
		parsed := e.parser.Parse(env.TextBody)
		fields := make(map[string][]string, len(parsed))
		for label, value := range parsed {
			fields[label] = []string{value}
		}
		return fields, nil
	}
}

// transform normalizes a raw value per its declared type. A nil return means
// the value is absent and the canonical key must be dropped.
func transform(raw string, t ValueType) any {
	switch t {
	case TypeText:
		if v := collapseText(raw); v != "" {
			return v
		}
	case TypeDate:
		if v, ok := normalize.Date(raw); ok {
			return v
		}
	case TypeDateTime:
		if v, ok := normalize.DateTime(raw); ok {
			return v
		}
	case TypeTime:
		if v, ok := normalize.Time(raw); ok {
			return v
		}
	case TypeBool:
		if v, ok := normalize.Bool(raw); ok {
			return v
		}
	case TypeInt:
		if v, ok := normalize.Int(raw); ok {
			return v
		}
	case TypeList:
		if v := normalize.SplitList(raw); v != nil {
			return v
		}
	case TypeJSONList:
		if v := normalize.JSONList(raw); v != nil {
			return v
		}
		if v := normalize.SplitList(raw); v != nil {
			return v
		}
	case TypeBullets:
		if v := normalize.BulletList(raw); v != nil {
			return v
		}
	}
	return nil
}

// collapseText squeezes whitespace runs within each line but keeps the line
// structure, so multi-paragraph section bodies survive while single-line
// form answers come out fully collapsed.
func collapseText(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = normalize.Whitespace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
