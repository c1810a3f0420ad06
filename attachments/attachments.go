// Package attachments downloads attachment bytes and persists them into a
// flat directory.
package attachments

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"google.golang.org/api/gmail/v1"

	"github.com/dhcgn/gmail-export/model"
)

// Fetcher retrieves the raw bytes of an attachment. An attachment id is only
// meaningful together with its owning message id.
type Fetcher interface {
	FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// Store writes attachment files into a single flat directory. Files are
// named by the declared attachment filename; a later attachment with the
// same name overwrites an earlier one, also across messages.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("attachment directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under the declared filename. The write goes through a
// temp file and a rename so a failure never leaves a partial file behind.
// Only the base name is used; a declared filename cannot escape the
// directory.
func (s *Store) Save(filename string, data []byte) error {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid attachment filename %q", filename)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close attachment: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename attachment: %w", err)
	}
	return nil
}

// Materializer turns identified attachment leaves into saved files plus
// descriptor records.
type Materializer struct {
	fetcher Fetcher
	store   *Store
	logger  *slog.Logger
}

func NewMaterializer(fetcher Fetcher, store *Store, logger *slog.Logger) *Materializer {
	return &Materializer{fetcher: fetcher, store: store, logger: logger}
}

// Materialize downloads and persists one attachment leaf. Both retrieval and
// persistence failures are logged and reported as not-ok; they never affect
// the message body or sibling attachments.
func (m *Materializer) Materialize(ctx context.Context, messageID string, part *gmail.MessagePart) (model.AttachmentRecord, bool) {
	data, err := m.fetcher.FetchAttachment(ctx, messageID, part.Body.AttachmentId)
	if err != nil {
		m.logger.Error("attachment download failed", "messageID", messageID, "filename", part.Filename, "err", err)
		return model.AttachmentRecord{}, false
	}

	if err := m.store.Save(part.Filename, data); err != nil {
		m.logger.Error("attachment save failed", "messageID", messageID, "filename", part.Filename, "err", err)
		return model.AttachmentRecord{}, false
	}

	m.logger.Info("saved attachment", "messageID", messageID, "filename", part.Filename, "size", part.Body.Size)

	return model.AttachmentRecord{
		MessageID: messageID,
		Filename:  part.Filename,
		MimeType:  part.MimeType,
		Size:      part.Body.Size,
	}, true
}
