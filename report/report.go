// Package report runs the analytic query set over the extracted entity
// tables and writes the results out as CSV files plus a single xlsx
// workbook with one sheet per query.
package report

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WorkbookName is the xlsx file written next to the per-query CSVs.
const WorkbookName = "care_reports.xlsx"

// Query is one named report over the extraction database. Name doubles as
// the CSV base name and the worksheet title. Post, when set, reshapes the
// scanned rows in Go for computations that don't fit SQLite SQL (numeric
// extraction from free-text values).
type Query struct {
	Name string
	SQL  string
	Post func(header []string, rows [][]string) ([]string, [][]string)
}

// RawExports dumps the entity tables as-is, one report per table.
var RawExports = []Query{
	{Name: "shift_notes", SQL: `SELECT * FROM shift_notes ORDER BY id`},
	{Name: "incident_reports", SQL: `SELECT * FROM incident_reports ORDER BY id`},
	{Name: "incident_investigations", SQL: `SELECT * FROM incident_investigations ORDER BY id`},
}

// Queries is the analytic report set, run in order. All SQL targets SQLite,
// including the json_each calls used to unnest JSON-encoded list columns.
var Queries = []Query{
	{
		Name: "shift_daily_metrics",
		SQL: `
            SELECT
                note_date,
                COUNT(*)                                    AS note_count,
                SUM(COALESCE(bm_occurred, 0))               AS bm_count,
                SUM(COALESCE(incidents_occurred, 0))        AS incident_count,
                SUM(COALESCE(sleep_disturbance, 0))         AS sleep_disturbance_count,
                SUM(CASE WHEN bm_occurred IS NULL THEN 1 ELSE 0 END) AS bm_unreported_count
            FROM shift_notes
            WHERE note_date IS NOT NULL
            GROUP BY note_date
            ORDER BY note_date`,
	},
	{
		Name: "hydration_daily_summary",
		SQL: `
            SELECT
                note_date,
                COALESCE(participant_name, 'Unknown') AS participant_name,
                COALESCE(hydration_intake, '') AS hydration_intake
            FROM shift_notes
            WHERE note_date IS NOT NULL
            ORDER BY note_date, participant_name`,
		Post: hydrationDailySummary,
	},
	{
		Name: "shift_hydration_summary",
		SQL: `
            SELECT
                note_date,
                COALESCE(hydration_intake, '') AS hydration_intake
            FROM shift_notes
            WHERE note_date IS NOT NULL
            ORDER BY note_date`,
		Post: shiftHydrationSummary,
	},
	{
		Name: "shift_sleep_quality",
		SQL: `
            SELECT
                note_date,
                COUNT(*) AS total_notes,
                SUM(CASE WHEN sleep_disturbance = 1 THEN 1 ELSE 0 END) AS disturbance_count,
                SUM(CASE WHEN sleep_disturbance = 0 THEN 1 ELSE 0 END) AS settled_count,
                SUM(CASE WHEN sleep_start_time IS NOT NULL THEN 1 ELSE 0 END) AS recorded_bedtime_count
            FROM shift_notes
            WHERE note_date IS NOT NULL
            GROUP BY note_date
            ORDER BY note_date`,
	},
	{
		Name: "incident_type_counts",
		SQL: `
            SELECT je.value AS incident_type, COUNT(*) AS occurrences
            FROM incident_reports ir, json_each(ir.incident_types) je
            WHERE ir.incident_types IS NOT NULL
            GROUP BY je.value
            ORDER BY occurrences DESC, incident_type`,
	},
	{
		Name: "restraint_usage",
		SQL: `
            SELECT
                awareness_timestamp,
                participant_name,
                prn_name,
                prn_dosage,
                prn_admin_person,
                prn_admin_time,
                COALESCE(prn_authorised, '') AS prn_authorised
            FROM incident_reports
            WHERE restraint_used = 1
            ORDER BY awareness_timestamp`,
	},
	{
		Name: "incident_prn_usage",
		SQL: `
            SELECT 'incident_report' AS source, id, prn_name, prn_admin_time,
                   prn_authorised, prn_recurrence
            FROM incident_reports
            WHERE prn_name IS NOT NULL
            UNION ALL
            SELECT 'incident_investigation' AS source, id, prn_name, prn_admin_time,
                   prn_authorised, prn_recurrence
            FROM incident_investigations
            WHERE prn_name IS NOT NULL`,
	},
	{
		Name: "prn_baseline_deltas",
		SQL: `
            SELECT 'incident_report' AS source, id, participant_name, prn_name,
                   prn_admin_time, prn_authorised, prn_recurrence,
                   prn_time_period, prn_time_window, prn_baseline_duration
            FROM incident_reports
            WHERE prn_name IS NOT NULL OR prn_baseline_duration IS NOT NULL
            UNION ALL
            SELECT 'incident_investigation' AS source, id, participant_name, prn_name,
                   prn_admin_time, prn_authorised, prn_recurrence,
                   prn_time_period, prn_time_window, prn_baseline_duration
            FROM incident_investigations
            WHERE prn_name IS NOT NULL OR prn_baseline_duration IS NOT NULL
            ORDER BY participant_name, prn_admin_time`,
		Post: prnBaselineDeltas,
	},
	{
		Name: "incident_training_requests",
		SQL: `
            SELECT
                DATE(awareness_timestamp) AS awareness_date,
                COUNT(*) AS incident_count,
                SUM(CASE WHEN training_request = 1 THEN 1 ELSE 0 END) AS training_requested_count,
                SUM(CASE WHEN training_request = 1 THEN 1 ELSE 0 END) * 100.0 / COUNT(*) AS training_request_rate
            FROM incident_reports
            WHERE awareness_timestamp IS NOT NULL
              AND DATE(awareness_timestamp) IS NOT NULL
            GROUP BY awareness_date
            ORDER BY awareness_date`,
	},
	{
		Name: "investigation_status_summary",
		SQL: `
            SELECT
                COALESCE(investigation_status, 'unreported') AS investigation_status,
                COUNT(*)                                     AS investigation_count
            FROM incident_investigations
            GROUP BY investigation_status
            ORDER BY investigation_count DESC`,
	},
	{
		Name: "processing_log",
		SQL: `
            SELECT
                pe.raw_message_id,
                rm.subject,
                rm.template_id,
                pe.entity_type,
                pe.status,
                COALESCE(pe.error, '') AS error,
                pe.processed_at
            FROM processed_entities pe
            JOIN raw_messages rm ON rm.id = pe.raw_message_id
            ORDER BY pe.raw_message_id`,
	},
}

// Run executes every query against db and writes <outDir>/<name>.csv per
// query plus the combined workbook. outDir is created when missing.
func Run(db *sql.DB, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("report: mkdir %s: %w", outDir, err)
	}

	wb := excelize.NewFile()
	defer wb.Close()

	all := make([]Query, 0, len(RawExports)+len(Queries))
	all = append(all, RawExports...)
	all = append(all, Queries...)

	for _, q := range all {
		header, rows, err := runQuery(db, q)
		if err != nil {
			return err
		}
		if q.Post != nil {
			header, rows = q.Post(header, rows)
		}
		if err := writeCSV(filepath.Join(outDir, q.Name+".csv"), header, rows); err != nil {
			return err
		}
		if err := addSheet(wb, q.Name, header, rows); err != nil {
			return err
		}
	}

	// Drop the default sheet excelize starts with.
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("report: workbook: %w", err)
	}
	if err := wb.SaveAs(filepath.Join(outDir, WorkbookName)); err != nil {
		return fmt.Errorf("report: save workbook: %w", err)
	}
	return nil
}

func runQuery(db *sql.DB, q Query) ([]string, [][]string, error) {
	rows, err := db.Query(q.SQL)
	if err != nil {
		return nil, nil, fmt.Errorf("report: %s: %w", q.Name, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("report: %s: %w", q.Name, err)
	}

	var out [][]string
	values := make([]any, len(header))
	for i := range values {
		values[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(values...); err != nil {
			return nil, nil, fmt.Errorf("report: %s: %w", q.Name, err)
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = cellString(*v.(*any))
		}
		out = append(out, record)
	}
	return header, out, rows.Err()
}

// cellString renders a scanned value for CSV and worksheet cells. NULL
// becomes the empty string.
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("report: write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return f.Close()
}

func addSheet(wb *excelize.File, name string, header []string, rows [][]string) error {
	// Worksheet names cap at 31 characters.
	sheet := name
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	sheet = strings.ReplaceAll(sheet, "_", " ")

	if _, err := wb.NewSheet(sheet); err != nil {
		return fmt.Errorf("report: sheet %s: %w", name, err)
	}
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := wb.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("report: sheet %s: %w", name, err)
		}
	}
	for r, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("report: sheet %s: %w", name, err)
			}
		}
	}
	return nil
}
