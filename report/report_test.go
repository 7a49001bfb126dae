package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/carenotes/dbopen"
	"github.com/hazyhaar/carenotes/ingest"
	"github.com/hazyhaar/carenotes/pipeline"
)

func seededDB(t *testing.T) *pipeline.Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(ingest.Schema))
	store, err := pipeline.NewStore(db)
	if err != nil {
		t.Fatal(err)
	}

	exec := func(q string, args ...any) {
		t.Helper()
		if _, err := db.Exec(q, args...); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}

	for i := 1; i <= 4; i++ {
		exec(`INSERT INTO raw_messages (id, subject, sha256, template_id) VALUES (?, ?, ?, ?)`,
			i, "seed subject", i, "seed_template")
	}

	exec(`INSERT INTO shift_notes (raw_message_id, note_date, participant_name, author_name, bm_occurred,
            incidents_occurred, sleep_disturbance, hydration_intake, kilometres_walked, meals_consumed)
          VALUES (1, '2024-03-26', 'Will White', 'Stacy Moses', 1, 0, NULL, '2 litres of water', '4.5', '["toast","pasta"]')`)
	exec(`INSERT INTO shift_notes (raw_message_id, note_date, participant_name, author_name, bm_occurred,
            incidents_occurred, sleep_disturbance)
          VALUES (2, '2024-03-26', 'Will White', 'Jordan Reyes', 0, 1, 1)`)
	exec(`INSERT INTO incident_reports (raw_message_id, awareness_timestamp, participant_name,
            incident_types, restraint_used, prn_name, prn_dosage, prn_baseline_duration)
          VALUES (3, '2024-03-26T14:00:00', 'Will White',
            '["Physical aggression","Property damage"]', 1, 'Diazepam', '5mg', '2 hours')`)
	exec(`INSERT INTO incident_investigations (raw_message_id, investigation_status)
          VALUES (4, 'Closed')`)

	exec(`INSERT INTO processed_entities (raw_message_id, entity_type, entity_id, status)
          VALUES (1, 'shift_note', 1, 'success')`)
	exec(`INSERT INTO processed_entities (raw_message_id, status, error)
          VALUES (3, 'error', 'body missing')`)

	return store
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

func TestRun(t *testing.T) {
	store := seededDB(t)
	dir := t.TempDir()

	if err := Run(store.DB(), dir); err != nil {
		t.Fatal(err)
	}

	daily := readCSV(t, filepath.Join(dir, "shift_daily_metrics.csv"))
	if len(daily) != 2 {
		t.Fatalf("shift_daily_metrics rows = %d, want header + 1", len(daily))
	}
	// Two notes on 2024-03-26: one BM, one incident, one sleep disturbance,
	// both notes answered the BM question.
	got := daily[1]
	want := []string{"2024-03-26", "2", "1", "1", "1", "0"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("shift_daily_metrics[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	types := readCSV(t, filepath.Join(dir, "incident_type_counts.csv"))
	if len(types) != 3 {
		t.Fatalf("incident_type_counts rows = %d, want header + 2", len(types))
	}
	seen := map[string]string{}
	for _, row := range types[1:] {
		seen[row[0]] = row[1]
	}
	if seen["Physical aggression"] != "1" || seen["Property damage"] != "1" {
		t.Errorf("incident type counts = %v", seen)
	}

	restraints := readCSV(t, filepath.Join(dir, "restraint_usage.csv"))
	if len(restraints) != 2 || restraints[1][2] != "Diazepam" {
		t.Errorf("restraint_usage = %v", restraints)
	}

	hydration := readCSV(t, filepath.Join(dir, "shift_hydration_summary.csv"))
	if len(hydration) != 2 {
		t.Fatalf("shift_hydration_summary rows = %d, want header + 1", len(hydration))
	}
	// One logged entry of 2 litres across two notes.
	hydrationWant := []string{"2024-03-26", "2", "1", "1", "2000", "2000", "1", "2 litres of water"}
	for i := range hydrationWant {
		if hydration[1][i] != hydrationWant[i] {
			t.Errorf("shift_hydration_summary[%d] = %q, want %q", i, hydration[1][i], hydrationWant[i])
		}
	}

	daily2 := readCSV(t, filepath.Join(dir, "hydration_daily_summary.csv"))
	if len(daily2) != 2 || daily2[1][1] != "Will White" || daily2[1][6] != "2000" {
		t.Errorf("hydration_daily_summary = %v", daily2)
	}

	sleep := readCSV(t, filepath.Join(dir, "shift_sleep_quality.csv"))
	if len(sleep) != 2 {
		t.Fatalf("shift_sleep_quality rows = %d, want header + 1", len(sleep))
	}
	// Two notes: one disturbance, no settled nights recorded, no bedtimes.
	sleepWant := []string{"2024-03-26", "2", "1", "0", "0"}
	for i := range sleepWant {
		if sleep[1][i] != sleepWant[i] {
			t.Errorf("shift_sleep_quality[%d] = %q, want %q", i, sleep[1][i], sleepWant[i])
		}
	}

	prn := readCSV(t, filepath.Join(dir, "incident_prn_usage.csv"))
	if len(prn) != 2 || prn[1][0] != "incident_report" || prn[1][2] != "Diazepam" {
		t.Errorf("incident_prn_usage = %v", prn)
	}

	deltas := readCSV(t, filepath.Join(dir, "prn_baseline_deltas.csv"))
	if len(deltas) != 2 {
		t.Fatalf("prn_baseline_deltas rows = %d, want header + 1", len(deltas))
	}
	last := len(deltas[0])
	if deltas[0][last-3] != "baseline_descriptor" {
		t.Errorf("prn_baseline_deltas header = %v", deltas[0])
	}
	// "2 hours" buckets as reported, estimates 120 minutes, 75 over reference.
	if got := deltas[1][last-3:]; got[0] != "reported" || got[1] != "120" || got[2] != "75" {
		t.Errorf("prn_baseline_deltas derived columns = %v", got)
	}

	training := readCSV(t, filepath.Join(dir, "incident_training_requests.csv"))
	if len(training) != 2 || training[1][0] != "2024-03-26" || training[1][1] != "1" || training[1][2] != "0" {
		t.Errorf("incident_training_requests = %v", training)
	}

	for _, name := range []string{"shift_notes", "incident_reports", "incident_investigations"} {
		dump := readCSV(t, filepath.Join(dir, name+".csv"))
		if len(dump) < 2 {
			t.Errorf("%s export rows = %d, want at least header + 1", name, len(dump))
		}
	}

	invs := readCSV(t, filepath.Join(dir, "investigation_status_summary.csv"))
	if len(invs) != 2 || invs[1][0] != "Closed" || invs[1][1] != "1" {
		t.Errorf("investigation_status_summary = %v", invs)
	}

	log := readCSV(t, filepath.Join(dir, "processing_log.csv"))
	if len(log) != 3 {
		t.Fatalf("processing_log rows = %d, want header + 2", len(log))
	}
	if log[2][4] != "error" || log[2][5] != "body missing" {
		t.Errorf("processing_log error row = %v", log[2])
	}

	wb, err := excelize.OpenFile(filepath.Join(dir, WorkbookName))
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) != len(RawExports)+len(Queries) {
		t.Errorf("workbook sheets = %v, want one per report", sheets)
	}
	rows, err := wb.GetRows("shift daily metrics")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "note_date" {
		t.Errorf("workbook sheet rows = %v", rows)
	}
}

func TestRunEmptyDatabase(t *testing.T) {
	store := seededDB(t)
	// Wipe the seeded data; headers must still be written.
	for _, table := range []string{"processed_entities", "shift_notes", "incident_reports", "incident_investigations", "raw_messages"} {
		if _, err := store.DB().Exec("DELETE FROM " + table); err != nil {
			t.Fatal(err)
		}
	}

	dir := t.TempDir()
	if err := Run(store.DB(), dir); err != nil {
		t.Fatal(err)
	}
	for _, q := range append(append([]Query{}, RawExports...), Queries...) {
		records := readCSV(t, filepath.Join(dir, q.Name+".csv"))
		if len(records) != 1 {
			t.Errorf("%s: rows = %d, want header only", q.Name, len(records))
		}
	}
}
