package sections

import (
	"reflect"
	"testing"
)

func TestParseBasic(t *testing.T) {
	p := NewParser([]string{"Date", "Written by", "Description of activities"})

	text := "Hi team,\n" +
		"Date: 2024-03-26\n" +
		"Written by - Stacy Moses\n" +
		"Description of activities:\n" +
		"Morning walk to the park.\n" +
		"\n" +
		"Afternoon swim.\n"

	got := p.Parse(text)
	want := map[string]string{
		"Date":                      "2024-03-26",
		"Written by":                "Stacy Moses",
		"Description of activities": "Morning walk to the park.\n\nAfternoon swim.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %#v, want %#v", got, want)
	}
}

func TestParseSeparatorStripped(t *testing.T) {
	p := NewParser([]string{"Kilometres walked today"})
	got := p.Parse("Kilometres walked today:- 4.5")
	if got["Kilometres walked today"] != "4.5" {
		t.Errorf("remainder = %q, want %q", got["Kilometres walked today"], "4.5")
	}
}

func TestParseRepeatedLabelEndsFirstSection(t *testing.T) {
	// Only text up to the next matched label is captured for the first
	// occurrence; the second occurrence opens a fresh section.
	p := NewParser([]string{"Description of mood"})
	text := "Description of mood\n" +
		"Happy all morning.\n" +
		"Description of mood\n" +
		"Tired by evening.\n"
	got := p.Parse(text)
	if got["Description of mood"] != "Tired by evening." {
		t.Errorf("section = %q, want last occurrence only", got["Description of mood"])
	}
}

func TestParseUnmatchedLeadingLinesDropped(t *testing.T) {
	p := NewParser([]string{"Date"})
	got := p.Parse("Forwarded message follows\nSome preamble\nDate: 2024-01-01\n")
	want := map[string]string{"Date": "2024-01-01"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %#v, want %#v", got, want)
	}
}

func TestParseAbsentLabels(t *testing.T) {
	p := NewParser([]string{"Date", "Written by"})
	got := p.Parse("Date: 2024-01-01\n")
	if _, exists := got["Written by"]; exists {
		t.Error("label that never appeared should be absent, not empty")
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	p := NewParser([]string{"Written by"})
	got := p.Parse("WRITTEN BY: Jordan\n")
	if got["Written by"] != "Jordan" {
		t.Errorf("got %#v", got)
	}
}

func TestParseCRLF(t *testing.T) {
	p := NewParser([]string{"Date"})
	got := p.Parse("Date: 2024-01-01\r\nmore\r\n")
	if got["Date"] != "2024-01-01\nmore" {
		t.Errorf("got %q", got["Date"])
	}
}
