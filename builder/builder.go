// Package builder turns one fetched Gmail message into a message record and
// the records of its saved attachments.
package builder

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/dhcgn/gmail-export/attachments"
	"github.com/dhcgn/gmail-export/decode"
	"github.com/dhcgn/gmail-export/extract"
	"github.com/dhcgn/gmail-export/model"
)

type Builder struct {
	materializer *attachments.Materializer
	logger       *slog.Logger
}

func New(materializer *attachments.Materializer, logger *slog.Logger) *Builder {
	return &Builder{materializer: materializer, logger: logger}
}

// Build produces the message record and all attachment records for one
// message. It never fails: malformed pieces degrade to empty fields.
func (b *Builder) Build(ctx context.Context, msg *gmail.Message) (model.MessageRecord, []model.AttachmentRecord) {
	return b.Record(msg), b.Attachments(ctx, msg)
}

// Record extracts the header fields and the plain-text body. It has no side
// effects, so callers can filter on the result before any attachment is
// downloaded.
func (b *Builder) Record(msg *gmail.Message) model.MessageRecord {
	headers := headerMap(msg.Payload)

	record := model.MessageRecord{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		LabelIDs: msg.LabelIds,
		From:     headers["from"],
		To:       headers["to"],
		CC:       headers["cc"],
		Subject:  headers["subject"],
	}

	if date := headers["date"]; date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			record.ReceivedAt = t
		} else {
			b.logger.Debug("unparsable date header", "messageID", msg.Id, "date", date, "err", err)
		}
	}

	payload := msg.Payload
	switch {
	case payload == nil:
	case len(payload.Parts) > 0:
		record.PlainText = extract.PlainText(payload.Parts)
	case payload.Body != nil && payload.Body.Data != "":
		// Single-part message: the payload itself is the only leaf.
		record.PlainText = strings.TrimSpace(decode.Normalize(decode.Body(payload.Body.Data)))
	}

	return record
}

// Attachments materializes every attachment leaf of the message. A failed
// attachment is logged and skipped; the remaining ones are unaffected.
func (b *Builder) Attachments(ctx context.Context, msg *gmail.Message) []model.AttachmentRecord {
	if msg.Payload == nil || len(msg.Payload.Parts) == 0 {
		return nil
	}

	var records []model.AttachmentRecord
	for _, part := range extract.Attachments(msg.Payload.Parts) {
		if record, ok := b.materializer.Materialize(ctx, msg.Id, part); ok {
			records = append(records, record)
		}
	}
	return records
}

// headerMap flattens the payload headers into a lowercase-name map. When a
// header name occurs more than once the last occurrence wins.
func headerMap(payload *gmail.MessagePart) map[string]string {
	headers := make(map[string]string)
	if payload == nil {
		return headers
	}
	for _, h := range payload.Headers {
		if h == nil || h.Name == "" {
			continue
		}
		headers[strings.ToLower(h.Name)] = h.Value
	}
	return headers
}
