package export

import (
	"fmt"
	"net/mail"
	"os"
	"time"

	mboxlib "github.com/emersion/go-mbox"
)

// fallbackSender appears in the mbox From line when a message carries no
// usable From header.
const fallbackSender = "gmail-export"

// MboxWriter appends raw RFC 822 messages to an mbox archive.
type MboxWriter struct {
	file   *os.File
	writer *mboxlib.Writer
}

func NewMboxWriter(path string) (*MboxWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open mbox %s: %w", path, err)
	}
	return &MboxWriter{file: file, writer: mboxlib.NewWriter(file)}, nil
}

// Append writes one raw message. from is the record's From header value; its
// address part becomes the mbox separator line sender.
func (w *MboxWriter) Append(from string, received time.Time, raw []byte) error {
	sender := fallbackSender
	if addr, err := mail.ParseAddress(from); err == nil {
		sender = addr.Address
	}
	if received.IsZero() {
		received = time.Now()
	}

	msg, err := w.writer.CreateMessage(sender, received)
	if err != nil {
		return fmt.Errorf("create mbox message: %w", err)
	}
	if _, err := msg.Write(raw); err != nil {
		return fmt.Errorf("write mbox message: %w", err)
	}
	return nil
}

func (w *MboxWriter) Close() error {
	var firstErr error
	if err := w.writer.Close(); err != nil {
		firstErr = fmt.Errorf("close mbox writer: %w", err)
	}
	if err := w.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close mbox file: %w", err)
	}
	return firstErr
}
