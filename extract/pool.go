package extract

import (
	"fmt"
	"strings"
)

// pool is the mutable working copy of the parsed label→values map. It owns
// its storage (the constructor deep-copies), so popping never touches the
// parser's output and the same parse can feed repeated extractions.
type pool struct {
	values map[string][]string
}

func newPool(fields map[string][]string) *pool {
	copied := make(map[string][]string, len(fields))
	for label, vs := range fields {
		copied[label] = append([]string(nil), vs...)
	}
	return &pool{values: copied}
}

// pop removes and returns the first available value for label, so a repeated
// label feeds a mapping only once, by first occurrence.
func (p *pool) pop(label string) (string, bool) {
	vs := p.values[label]
	if len(vs) == 0 {
		return "", false
	}
	v := strings.TrimSpace(vs[0])
	if len(vs) == 1 {
		delete(p.values, label)
	} else {
		p.values[label] = vs[1:]
	}
	return v, true
}

// remaining flattens everything no mapping consumed. A label left with
// several values gets a " (n)" suffix per occurrence, preserving order.
func (p *pool) remaining() map[string]string {
	additional := make(map[string]string)
	for label, vs := range p.values {
		if len(vs) == 1 {
			additional[label] = vs[0]
			continue
		}
		for i, v := range vs {
			additional[fmt.Sprintf("%s (%d)", label, i+1)] = v
		}
	}
	return additional
}
