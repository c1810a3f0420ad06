package builder

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/dhcgn/gmail-export/attachments"
)

type fakeFetcher struct {
	data map[string][]byte
}

func (f *fakeFetcher) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	data, ok := f.data[attachmentID]
	if !ok {
		return nil, fmt.Errorf("attachment %s not found", attachmentID)
	}
	return data, nil
}

func newTestBuilder(t *testing.T, fetcher attachments.Fetcher) (*Builder, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := attachments.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(attachments.NewMaterializer(fetcher, store, logger), logger), dir
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func header(name, value string) *gmail.MessagePartHeader {
	return &gmail.MessagePartHeader{Name: name, Value: value}
}

func TestRecord_HeaderLookupIsCaseInsensitive(t *testing.T) {
	b, _ := newTestBuilder(t, &fakeFetcher{})

	msg := &gmail.Message{
		Id:       "m1",
		ThreadId: "t1",
		Snippet:  "snip",
		LabelIds: []string{"INBOX"},
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				header("FROM", "alice@example.com"),
				header("To", "bob@example.com"),
				header("cC", "carol@example.com"),
				header("SUBJECT", "Quarterly numbers"),
				header("Date", "Mon, 02 Jan 2006 15:04:05 -0700"),
			},
		},
	}

	rec := b.Record(msg)
	if rec.From != "alice@example.com" || rec.To != "bob@example.com" || rec.CC != "carol@example.com" {
		t.Errorf("address fields wrong: %+v", rec)
	}
	if rec.Subject != "Quarterly numbers" {
		t.Errorf("Subject = %q", rec.Subject)
	}
	want := time.Date(2006, 1, 2, 15, 4, 5, 0, time.FixedZone("", -7*3600))
	if !rec.ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", rec.ReceivedAt, want)
	}
}

func TestRecord_DuplicateHeaderLastWins(t *testing.T) {
	b, _ := newTestBuilder(t, &fakeFetcher{})

	msg := &gmail.Message{
		Id: "m1",
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				header("Subject", "first"),
				header("subject", "second"),
			},
		},
	}

	if rec := b.Record(msg); rec.Subject != "second" {
		t.Errorf("Subject = %q, want the last occurrence", rec.Subject)
	}
}

func TestRecord_EmptyOrBadDateYieldsZeroTime(t *testing.T) {
	b, _ := newTestBuilder(t, &fakeFetcher{})

	for _, date := range []string{"", "not a date"} {
		msg := &gmail.Message{
			Id: "m1",
			Payload: &gmail.MessagePart{
				Headers: []*gmail.MessagePartHeader{
					header("Subject", "still exported"),
					header("Date", date),
				},
			},
		}
		rec := b.Record(msg)
		if !rec.ReceivedAt.IsZero() {
			t.Errorf("date %q: ReceivedAt = %v, want zero", date, rec.ReceivedAt)
		}
		if rec.Subject != "still exported" {
			t.Errorf("date %q: record not fully produced", date)
		}
	}
}

func TestRecord_SinglePartBody(t *testing.T) {
	b, _ := newTestBuilder(t, &fakeFetcher{})

	msg := &gmail.Message{
		Id: "m1",
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: b64("just  one   part\n\n\n\nhere")},
		},
	}

	want := "just one part\n\nhere"
	if rec := b.Record(msg); rec.PlainText != want {
		t.Errorf("PlainText = %q, want %q", rec.PlainText, want)
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{data: map[string][]byte{"att-ok": []byte("PDF")}}
	b, dir := newTestBuilder(t, fetcher)

	msg := &gmail.Message{
		Id:       "m1",
		ThreadId: "t1",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				header("Subject", "report attached"),
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("Hello  world\n\n\n\nBye")}},
						{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<b>Hi</b>")}},
					},
				},
				{
					MimeType: "application/pdf",
					Filename: "report.pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-ok", Size: 3},
				},
				{
					MimeType: "image/png",
					Filename: "broken.png",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-missing", Size: 9},
				},
			},
		},
	}

	rec, atts := b.Build(context.Background(), msg)

	if rec.PlainText != "Hello world\n\nBye" {
		t.Errorf("PlainText = %q, want %q", rec.PlainText, "Hello world\n\nBye")
	}

	// One of the two attachments fails; the other still materializes.
	if len(atts) != 1 {
		t.Fatalf("got %d attachment records, want 1", len(atts))
	}
	if atts[0].Filename != "report.pdf" || atts[0].Size != 3 || atts[0].MessageID != "m1" {
		t.Errorf("unexpected attachment record: %+v", atts[0])
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	if err != nil {
		t.Fatalf("saved file: %v", err)
	}
	if string(data) != "PDF" {
		t.Errorf("saved bytes = %q, want %q", data, "PDF")
	}
}

func TestBuild_NilPayload(t *testing.T) {
	b, _ := newTestBuilder(t, &fakeFetcher{})

	rec, atts := b.Build(context.Background(), &gmail.Message{Id: "m1"})
	if rec.ID != "m1" || rec.PlainText != "" || len(atts) != 0 {
		t.Errorf("unexpected output for nil payload: %+v, %v", rec, atts)
	}
}
