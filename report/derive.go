package report

import (
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

func firstNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// normalizeHydration lowercases a hydration entry and strips the leading
// separator staff sometimes type after the form label.
func normalizeHydration(raw string) string {
	return strings.TrimLeft(strings.ToLower(raw), ": \t")
}

// hydrationML estimates millilitres from a free-text hydration entry.
// Explicit ml wins; litres, cups, glasses and bottles are converted with
// rough household measures. Entries without a number or a known unit don't
// estimate.
func hydrationML(raw string) (float64, bool) {
	text := normalizeHydration(raw)
	if text == "" {
		return 0, false
	}
	n, ok := firstNumber(text)
	if !ok {
		return 0, false
	}
	switch {
	case strings.Contains(text, "ml"):
		return n, true
	case strings.Contains(text, "litre"), strings.Contains(text, "liter"), strings.Contains(text, " l"):
		return n * 1000, true
	case strings.Contains(text, "cup"), strings.Contains(text, "glass"):
		return n * 250, true
	case strings.Contains(text, "bottle"):
		return n * 600, true
	}
	return 0, false
}

func mentionsWater(raw string) bool {
	return strings.Contains(normalizeHydration(raw), "water")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// hydrationDailySummary groups (note_date, participant_name, hydration_intake)
// rows into per-day, per-participant hydration stats. Input rows arrive
// ordered by the grouping key.
func hydrationDailySummary(_ []string, rows [][]string) ([]string, [][]string) {
	header := []string{
		"note_date", "participant_name", "entries", "hydration_entries",
		"logged_entries", "water_mentions", "avg_hydration_ml",
	}

	var out [][]string
	var curDate, curName string
	var entries []string
	var total, logged, water int
	var mlSum float64
	var mlCount int

	flush := func() {
		if total == 0 {
			return
		}
		avg := ""
		if mlCount > 0 {
			avg = formatFloat(mlSum / float64(mlCount))
		}
		out = append(out, []string{
			curDate, curName, strconv.Itoa(total), strings.Join(entries, "; "),
			strconv.Itoa(logged), strconv.Itoa(water), avg,
		})
		entries, total, logged, water, mlSum, mlCount = nil, 0, 0, 0, 0, 0
	}

	for _, row := range rows {
		date, name, raw := row[0], row[1], row[2]
		if date != curDate || name != curName {
			flush()
			curDate, curName = date, name
		}
		total++
		if normalizeHydration(raw) != "" {
			logged++
			if !contains(entries, raw) {
				entries = append(entries, raw)
			}
		}
		if mentionsWater(raw) {
			water++
		}
		if ml, ok := hydrationML(raw); ok {
			mlSum += ml
			mlCount++
		}
	}
	flush()
	return header, out
}

// shiftHydrationSummary groups (note_date, hydration_intake) rows into
// per-day totals with the millilitre estimate applied.
func shiftHydrationSummary(_ []string, rows [][]string) ([]string, [][]string) {
	header := []string{
		"note_date", "total_notes", "hydration_logged_count", "hydration_missing_count",
		"total_hydration_ml", "avg_hydration_ml", "water_mentions", "hydration_entries",
	}

	var out [][]string
	var curDate string
	var entries []string
	var total, logged, water int
	var mlSum float64
	var mlCount int

	flush := func() {
		if total == 0 {
			return
		}
		avg := ""
		if mlCount > 0 {
			avg = formatFloat(mlSum / float64(mlCount))
		}
		out = append(out, []string{
			curDate, strconv.Itoa(total), strconv.Itoa(logged), strconv.Itoa(total - logged),
			formatFloat(mlSum), avg, strconv.Itoa(water), strings.Join(entries, "; "),
		})
		entries, total, logged, water, mlSum, mlCount = nil, 0, 0, 0, 0, 0
	}

	for _, row := range rows {
		date, raw := row[0], row[1]
		if date != curDate {
			flush()
			curDate = date
		}
		total++
		if text := normalizeHydration(raw); text != "" {
			logged++
			entries = append(entries, text)
		}
		if mentionsWater(raw) {
			water++
		}
		if ml, ok := hydrationML(raw); ok {
			mlSum += ml
			mlCount++
		}
	}
	flush()
	return header, out
}

// baselineDescriptor buckets a free-text return-to-baseline duration.
func baselineDescriptor(raw string) string {
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "did not return"):
		return "not_returned"
	case strings.Contains(lower, "over"):
		return "over"
	case strings.Contains(lower, "within"):
		return "within"
	case strings.Contains(lower, "less"):
		return "less"
	}
	return "reported"
}

// baselineMinutes estimates a minute count from a free-text duration. A bare
// number is taken as minutes already.
func baselineMinutes(raw string) (float64, bool) {
	lower := strings.ToLower(raw)
	n, ok := firstNumber(lower)
	if !ok {
		return 0, false
	}
	switch {
	case strings.Contains(lower, "hour"), strings.Contains(lower, "hr"):
		return n * 60, true
	case strings.Contains(lower, "min"):
		return n, true
	case strings.Contains(lower, "sec"):
		return n / 60, true
	case strings.Contains(lower, "day"):
		return n * 60 * 24, true
	}
	return n, true
}

// referenceBaselineMinutes is the settle-time the deltas are measured
// against.
const referenceBaselineMinutes = 45

// prnBaselineDeltas appends descriptor, minute estimate and delta columns to
// the combined PRN rows; prn_baseline_duration is the last input column.
func prnBaselineDeltas(header []string, rows [][]string) ([]string, [][]string) {
	outHeader := append(append([]string{}, header...),
		"baseline_descriptor", "baseline_minutes_estimate", "delta_vs_45_minutes")

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		duration := row[len(row)-1]
		minutes, estimated := "", ""
		if m, ok := baselineMinutes(duration); ok {
			minutes = formatFloat(m)
			estimated = formatFloat(m - referenceBaselineMinutes)
		}
		out = append(out, append(append([]string{}, row...),
			baselineDescriptor(duration), minutes, estimated))
	}
	return outHeader, out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
