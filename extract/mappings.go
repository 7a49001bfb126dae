package extract

import (
	"github.com/hazyhaar/carenotes/sections"
	"github.com/hazyhaar/carenotes/template"
)

// Entity types, also the discriminator stored in the status table.
const (
	EntityShiftNote             = "shift_note"
	EntityIncidentReport        = "incident_report"
	EntityIncidentInvestigation = "incident_investigation"
)

// automatedShiftNoteMappings covers the plain-text daily note generated by
// the roster system. Labels double as the section anchors.
var automatedShiftNoteMappings = []FieldMapping{
	{Label: "Date", Key: "note_date", Type: TypeDate},
	{Label: "Written by", Key: "author_name", Type: TypeText},
	{Label: "Description of activities", Key: "activities_summary", Type: TypeText},
	{Label: "Description of mood", Key: "mood_summary", Type: TypeText},
	{Label: "What did the participant drink today", Key: "hydration_intake", Type: TypeText},
	{Label: "Kilometres walked today", Key: "kilometres_walked", Type: TypeText},
	{Label: "What did the participant eat today", Key: "meals_consumed", Type: TypeJSONList},
	{Label: "Did will have a bowel movement?", Key: "bm_occurred", Type: TypeBool},
	{Label: "What rating on the Bristol Stool Chart was it?", Key: "bm_rating", Type: TypeText},
}

// jotformShiftNoteMappings covers the staff-filled HTML shift note form.
// Labels are the verbatim question texts, quirks included.
var jotformShiftNoteMappings = []FieldMapping{
	{Label: "Who is this report about?", Key: "participant_name", Type: TypeText},
	{Label: "Shift date (date your shift ended)", Key: "note_date", Type: TypeDate},
	{Label: "What day of the week is it?", Key: "day_of_week", Type: TypeText},
	{Label: "Which shift are you reporting on?", Key: "shift_window", Type: TypeText},
	{Label: "This report was prepared by", Key: "author_name", Type: TypeText},
	{Label: "Did you provide personal care to Will?", Key: "personal_care_provided", Type: TypeBool},
	{Label: "Did the resident seem well/unwell during the shift?", Key: "resident_wellness", Type: TypeText},
	{Label: "Did Will have a Bowel Movement (BM) during your shift?", Key: "bm_occurred", Type: TypeBool},
	{Label: "Did Will require support to manage his emotions or behaviour?", Key: "emotional_support_required", Type: TypeText},
	{Label: "Did will struggle with transitions inside the house?", Key: "transition_difficulty", Type: TypeText},
	{Label: "Did will struggle to accept/manage a change, or if something was unavailable?", Key: "change_management_difficulty", Type: TypeText},
	{Label: "Select the below shift duties which you completed while on shift", Key: "shift_duties_completed", Type: TypeList},
	{Label: "Was the Will involved in jobs around the house?", Key: "house_jobs_participation", Type: TypeText},
	{Label: "Did any injuries or incidents occur during your shift?", Key: "incidents_occurred", Type: TypeBool},
	{Label: "Were there any near misses on this shift? (When William escalated but you were able to calm him down)", Key: "near_misses", Type: TypeText},
	{Label: "Were any hazards identified during your shift? (e.g a hazard is anything which might have cause an injury)", Key: "hazards_identified", Type: TypeText},
	{Label: "Was there any visitors during this shift?", Key: "visitors_present", Type: TypeText},
	{Label: "Any other issues, concerns or successes you would like to share?", Key: "issues_or_successes", Type: TypeText},
	{Label: "is there anything you need your colleague to follow up on next shift or over the next few days?", Key: "follow_up_requests", Type: TypeText},
	{Label: "Which of the following (if any) did you feel due to your shift?", Key: "staff_emotions", Type: TypeList},
	{Label: "What time did the resident go to bed?", Key: "sleep_start_time", Type: TypeText},
	{Label: "Was the resident's  sleep disturbed to the point that they required staff support to settle them back to bed?", Key: "sleep_disturbance", Type: TypeBool},
}

// incidentMappings covers the incident notification form.
var incidentMappings = []FieldMapping{
	{Label: "Who is this incident report about?", Key: "participant_name", Type: TypeText},
	{Label: "Incident Management Stage", Key: "incident_stage", Type: TypeText},
	{Label: "Date & time you became aware of the incident", Key: "awareness_timestamp", Type: TypeDateTime},
	{Label: "How many staff were present at the time of the incident", Key: "staff_present_count", Type: TypeInt},
	{Label: "Who was, or potentially was impacted by the incident? If there was more than one person with disability impacted by the incident, a separate form must be completed for each participant", Key: "impacted_role", Type: TypeText},
	{Label: "Name of person impacted (This includes residents, staff, family and community members)", Key: "impacted_person_name", Type: TypeText},
	{Label: "What were the circumstances leading up to the incident? (What had the resident been doing? How was the participant's mood? What were the other resident doing? What were staff doing? How many staff were present? What were the likely triggers?)", Key: "pre_incident_context", Type: TypeText},
	{Label: "Describe the incident/ allegation (Please provide all details including names of staff, location of incident (e.g which room in the House or venue), actions by all involved)", Key: "incident_description", Type: TypeText},
	{Label: "Immediate action taken (Provide details of the immediate steps taken)", Key: "immediate_actions", Type: TypeBullets},
	{Label: "Given the behaviour displayed in this incident, what does the behaviour support plan say to do?", Key: "bsp_guidance", Type: TypeText},
	{Label: "Were these strategies effective?", Key: "strategy_effectiveness", Type: TypeText},
	{Label: "Would you like more training on the behaviour support plan directly from the behaviour support clinician and your manager? (If you select yes, an email will be sent to your manager and behaviour support clinician.)", Key: "training_request", Type: TypeBool},
	{Label: "If not, why not?", Key: "training_rationale", Type: TypeText},
	{Label: "What could have been differently? Suggested action that be can be taken to lower the risk of future incidents.", Key: "preventative_actions", Type: TypeText},
	{Label: "Type of incident (Tick all that apply)", Key: "incident_types", Type: TypeList},
	{Label: "Was a restraint used on the resident to manage the incident?", Key: "restraint_used", Type: TypeBool},
	{Label: "Name of PRN/ Chemical restraint", Key: "prn_name", Type: TypeText},
	{Label: "Dosage administered", Key: "prn_dosage", Type: TypeText},
	{Label: "Name of person who administered the PRN", Key: "prn_admin_person", Type: TypeText},
	{Label: "What time was PRN administered", Key: "prn_admin_time", Type: TypeText},
	{Label: "Is this restrictive practice (chemical restraint) authorised?", Key: "prn_authorised", Type: TypeBool},
	{Label: "Was it a one-off emergency use? or is it likely to recur?", Key: "prn_recurrence", Type: TypeText},
	{Label: "Is there a subject of allegation?", Key: "subject_of_allegation", Type: TypeBool},
	{Label: "Was there any Witnesses", Key: "witnesses_present", Type: TypeText},
	{Label: "Name of person completing the form", Key: "reporter_name", Type: TypeText},
	{Label: "Role", Key: "reporter_role", Type: TypeText},
	{Label: "Email", Key: "reporter_email", Type: TypeText},
}

// investigationExtraMappings are the questions the investigation follow-up
// form adds on top of the incident notification. The investigation template
// mapping is the concatenation of the two tables, not an override.
var investigationExtraMappings = []FieldMapping{
	{Label: "NDIS Quality and Safeguard Reporting Status", Key: "ndis_reporting_status", Type: TypeText},
	{Label: "Incident Classification", Key: "incident_classification", Type: TypeText},
	{Label: "Brief Incident Description", Key: "brief_description", Type: TypeText},
	{Label: "Additional information not included in the initial incident report.", Key: "additional_context", Type: TypeText},
	{Label: "PRN: Where did you administer PRN?", Key: "prn_location", Type: TypeText},
	{Label: "Which behaviour did you primarily administer the PRN for?", Key: "prn_primary_behaviour", Type: TypeText},
	{Label: "When did you administer PRN?", Key: "prn_time_period", Type: TypeText},
	{Label: "Afternoon/PM - What time did you administer PRN 1?", Key: "prn_time_window", Type: TypeText},
	{Label: "How long did it take for the resident to return to baseline after taking PRN?", Key: "prn_baseline_duration", Type: TypeText},
	{Label: "Status of the investigation", Key: "investigation_status", Type: TypeText},
	{Label: "What factors System Factors contributed to the incident? (P3)", Key: "system_factor_list", Type: TypeList},
	{Label: "Other", Key: "investigator_confirmation", Type: TypeText},
	{Label: "Name", Key: "investigation_lead_name", Type: TypeText},
}

func concat(tables ...[]FieldMapping) []FieldMapping {
	var out []FieldMapping
	for _, t := range tables {
		out = append(out, t...)
	}
	return out
}

func labelsOf(mappings []FieldMapping) []string {
	labels := make([]string, len(mappings))
	for i, m := range mappings {
		labels[i] = m.Label
	}
	return labels
}

// registry is the closed set of extractors, keyed by template id.
var registry = map[string]*Extractor{
	template.AutomatedDailyShiftNote: {
		TemplateID:      template.AutomatedDailyShiftNote,
		EntityType:      EntityShiftNote,
		Body:            BodyText,
		Mappings:        automatedShiftNoteMappings,
		FallbackDateKey: "note_date",
		parser:          sections.NewParser(labelsOf(automatedShiftNoteMappings)),
	},
	template.JotformShiftNote: {
		TemplateID:      template.JotformShiftNote,
		EntityType:      EntityShiftNote,
		Body:            BodyHTML,
		Mappings:        jotformShiftNoteMappings,
		FallbackDateKey: "note_date",
	},
	template.IncidentNotification: {
		TemplateID: template.IncidentNotification,
		EntityType: EntityIncidentReport,
		Body:       BodyHTML,
		Mappings:   incidentMappings,
	},
	template.IncidentInvestigation: {
		TemplateID: template.IncidentInvestigation,
		EntityType: EntityIncidentInvestigation,
		Body:       BodyHTML,
		Mappings:   concat(incidentMappings, investigationExtraMappings),
	},
}

// ForTemplate looks up the extractor registered for a template id.
func ForTemplate(templateID string) (*Extractor, bool) {
	e, ok := registry[templateID]
	return e, ok
}

// EntityMappings returns, per entity type, the ordered union of every
// canonical key any of its templates can produce. The persistence layer
// derives entity table columns from this, so schema and extractors cannot
// drift apart.
func EntityMappings() map[string][]FieldMapping {
	return map[string][]FieldMapping{
		EntityShiftNote:             dedupeByKey(concat(automatedShiftNoteMappings, jotformShiftNoteMappings)),
		EntityIncidentReport:        dedupeByKey(incidentMappings),
		EntityIncidentInvestigation: dedupeByKey(concat(incidentMappings, investigationExtraMappings)),
	}
}

func dedupeByKey(mappings []FieldMapping) []FieldMapping {
	seen := make(map[string]bool, len(mappings))
	var out []FieldMapping
	for _, m := range mappings {
		if seen[m.Key] {
			continue
		}
		seen[m.Key] = true
		out = append(out, m)
	}
	return out
}
