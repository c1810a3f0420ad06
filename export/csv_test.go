package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/dhcgn/gmail-export/model"
)

func TestWriteMessages(t *testing.T) {
	dir := t.TempDir()
	records := []model.MessageRecord{
		{
			ID:         "m1",
			ThreadID:   "t1",
			Snippet:    "snip",
			LabelIDs:   []string{"INBOX", "IMPORTANT"},
			From:       "alice@example.com",
			Subject:    "hi, with comma",
			ReceivedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			PlainText:  "line one\n\nline two",
		},
		{
			ID:      "m2",
			Subject: "no date",
		},
	}

	if err := WriteMessages(dir, records); err != nil {
		t.Fatalf("WriteMessages() error = %v", err)
	}

	file, err := os.Open(filepath.Join(dir, MessagesFile))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 records", len(rows))
	}
	if rows[0][0] != "email_id" || rows[0][8] != "date_received" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][3] != "INBOX,IMPORTANT" {
		t.Errorf("label_ids = %q", rows[1][3])
	}
	if rows[1][8] != "2024-05-01T12:00:00Z" {
		t.Errorf("date_received = %q", rows[1][8])
	}
	if rows[1][9] != "line one\n\nline two" {
		t.Errorf("plain_text = %q", rows[1][9])
	}
	// Absent timestamp stays an empty cell.
	if rows[2][8] != "" {
		t.Errorf("empty date rendered as %q", rows[2][8])
	}
}

func TestWriteAttachments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	records := []model.AttachmentRecord{
		{MessageID: "m1", Filename: "report.pdf", MimeType: "application/pdf", Size: 3},
	}

	if err := WriteAttachments(dir, records); err != nil {
		t.Fatalf("WriteAttachments() error = %v", err)
	}

	file, err := os.Open(filepath.Join(dir, AttachmentsFile))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1 record", len(rows))
	}
	want := []string{"m1", "report.pdf", "application/pdf", "3"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Errorf("column %d = %q, want %q", i, rows[1][i], cell)
		}
	}
}

func TestMboxWriter_AppendAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.mbox")

	w, err := NewMboxWriter(path)
	if err != nil {
		t.Fatalf("NewMboxWriter() error = %v", err)
	}

	raw := []byte("From: Alice <alice@example.com>\r\nSubject: hi\r\n\r\nbody\r\n")
	received := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := w.Append("Alice <alice@example.com>", received, raw); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Append("", received, raw); err != nil {
		t.Fatalf("Append() with empty sender error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	count := 0
	for {
		if _, err := reader.NextMessage(); err != nil {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("read back %d messages, want 2", count)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "From alice@example.com ") {
		t.Errorf("mbox separator line missing sender: %q", string(data)[:40])
	}
}
