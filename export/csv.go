// Package export persists the built records: CSV reports and an optional
// raw mbox archive.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhcgn/gmail-export/model"
)

const (
	MessagesFile    = "emails.csv"
	AttachmentsFile = "attachments.csv"
)

var messageColumns = []string{
	"email_id", "thread_id", "snippet", "label_ids",
	"from", "to", "cc", "subject", "date_received", "plain_text",
}

var attachmentColumns = []string{"email_id", "filename", "mime_type", "size"}

// WriteMessages writes emails.csv into dir, creating dir if needed.
func WriteMessages(dir string, records []model.MessageRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		date := ""
		if !r.ReceivedAt.IsZero() {
			date = r.ReceivedAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			r.ID,
			r.ThreadID,
			r.Snippet,
			strings.Join(r.LabelIDs, ","),
			r.From,
			r.To,
			r.CC,
			r.Subject,
			date,
			r.PlainText,
		})
	}
	return writeCSV(filepath.Join(dir, MessagesFile), messageColumns, rows)
}

// WriteAttachments writes attachments.csv into dir.
func WriteAttachments(dir string, records []model.AttachmentRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.MessageID,
			r.Filename,
			r.MimeType,
			strconv.FormatInt(r.Size, 10),
		})
	}
	return writeCSV(filepath.Join(dir, AttachmentsFile), attachmentColumns, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
