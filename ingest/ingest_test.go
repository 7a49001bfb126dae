package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/carenotes/dbopen"
	"github.com/hazyhaar/carenotes/template"
)

const shiftNoteEML = `From: noreply@carehive.example.com
To: intake@provider.example.com
Subject: Automated Daily Shift Note for Will White
Date: Tue, 26 Mar 2024 09:30:00 +1100
Message-ID: <note-20240326@carehive.example.com>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Date: 2024-03-26
Written by: Stacy Moses
General Notes: Quiet morning, short walk after lunch.

--b1
Content-Type: application/pdf; name="roster.pdf"
Content-Disposition: attachment; filename="roster.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQKJcfs
--b1--
`

func testPipeline(t *testing.T) (*Pipeline, string, string) {
	t.Helper()
	db := dbopen.OpenMemory(t)
	rawDir := filepath.Join(t.TempDir(), "raw")
	attachDir := filepath.Join(t.TempDir(), "attachments")
	p, err := New(db, rawDir, attachDir)
	if err != nil {
		t.Fatal(err)
	}
	return p, rawDir, attachDir
}

func writeEML(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestFile(t *testing.T) {
	p, rawDir, attachDir := testPipeline(t)
	path := writeEML(t, "note.eml", shiftNoteEML)

	ok, err := p.IngestFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("first ingest should store the message")
	}

	var (
		digest, storedPath, templateID, preview, version string
		confidence                                       float64
	)
	err = p.db.QueryRow(`
        SELECT sha256, stored_path, template_id, body_preview, parser_version, detection_confidence
        FROM raw_messages`).
		Scan(&digest, &storedPath, &templateID, &preview, &version, &confidence)
	if err != nil {
		t.Fatal(err)
	}

	if templateID != template.AutomatedDailyShiftNote {
		t.Errorf("template_id = %q", templateID)
	}
	if confidence <= 0 {
		t.Errorf("detection_confidence = %v", confidence)
	}
	if version != ParserVersion {
		t.Errorf("parser_version = %q", version)
	}
	if !strings.Contains(preview, "Stacy Moses") {
		t.Errorf("preview missing body text: %q", preview)
	}

	if storedPath != filepath.Join(rawDir, digest+".eml") {
		t.Errorf("stored_path = %q", storedPath)
	}
	if _, err := os.Stat(storedPath); err != nil {
		t.Errorf("raw copy not on disk: %v", err)
	}

	var filename, attachPath string
	err = p.db.QueryRow(`SELECT filename, stored_path FROM attachments`).Scan(&filename, &attachPath)
	if err != nil {
		t.Fatal(err)
	}
	if filename != "roster.pdf" {
		t.Errorf("attachment filename = %q", filename)
	}
	if attachPath != filepath.Join(attachDir, digest, "roster.pdf") {
		t.Errorf("attachment path = %q", attachPath)
	}
	if _, err := os.Stat(attachPath); err != nil {
		t.Errorf("attachment not on disk: %v", err)
	}
}

func TestIngestFileDeduplicates(t *testing.T) {
	p, _, _ := testPipeline(t)
	path := writeEML(t, "note.eml", shiftNoteEML)

	if ok, err := p.IngestFile(path); err != nil || !ok {
		t.Fatalf("first ingest = (%v, %v)", ok, err)
	}
	// Same bytes under a different name are still the same message.
	again := writeEML(t, "note-copy.eml", shiftNoteEML)
	if ok, err := p.IngestFile(again); err != nil || ok {
		t.Fatalf("duplicate ingest = (%v, %v), want (false, nil)", ok, err)
	}

	var n int
	if err := p.db.QueryRow(`SELECT COUNT(*) FROM raw_messages`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("raw_messages rows = %d, want 1", n)
	}
}

func TestIngestDir(t *testing.T) {
	p, _, _ := testPipeline(t)
	dir := t.TempDir()

	variant := strings.Replace(shiftNoteEML, "note-20240326", "note-20240327", 1)
	for name, body := range map[string]string{
		"a.eml":    shiftNoteEML,
		"b.eml":    variant,
		"skip.txt": "not a mail file",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := p.IngestDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("stored = %d, want 2", n)
	}

	// Re-running the same directory stores nothing new.
	if n, err := p.IngestDir(dir); err != nil || n != 0 {
		t.Errorf("second pass = (%d, %v), want (0, nil)", n, err)
	}
}
