// Package template classifies incoming care documents by subject line.
//
// Subjects come from a small, stable set of upstream form templates, so a
// keyword score is deliberately all the machinery there is: the confidence
// of a rule is the fraction of its keyword phrases found in the lowercased
// subject.
package template

import "strings"

// Template ids, shared with the extractor registry and the status table.
const (
	IncidentInvestigation   = "incident_investigation_update"
	IncidentNotification    = "jotform_incident_notification"
	JotformShiftNote        = "jotform_shift_note"
	AutomatedDailyShiftNote = "automated_daily_shift_note"
)

// Rule maps an ordered set of subject keyword phrases to a template id.
type Rule struct {
	TemplateID string
	Keywords   []string
}

// Rules are checked in declaration order; on equal confidence the earlier
// rule wins.
var Rules = []Rule{
	{TemplateID: IncidentInvestigation, Keywords: []string{"incident investigation completed"}},
	{TemplateID: IncidentNotification, Keywords: []string{"incident report notification"}},
	{TemplateID: JotformShiftNote, Keywords: []string{"the hive silc shift notes"}},
	{TemplateID: AutomatedDailyShiftNote, Keywords: []string{"automated daily shift note"}},
}

// Detect returns the best-fitting template id and its confidence in (0, 1].
// When no rule's keywords appear in the subject it returns ("", 0).
func Detect(subject string) (string, float64) {
	lowered := strings.ToLower(subject)

	var best string
	var bestConfidence float64

	for _, rule := range Rules {
		matches := 0
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		confidence := float64(matches) / float64(len(rule.Keywords))
		if confidence > bestConfidence {
			bestConfidence = confidence
			best = rule.TemplateID
		}
	}

	return best, bestConfidence
}
