package state

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Tracker remembers which message ids were already exported so a rerun can
// skip them.
type Tracker interface {
	AlreadyExported(messageID string) bool
	MarkExported(messageID string) error
	Snapshot() Snapshot
}

type Snapshot struct {
	Exported int
}

type MemoryTracker struct {
	exported map[string]time.Time
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{exported: make(map[string]time.Time)}
}

func (m *MemoryTracker) AlreadyExported(messageID string) bool {
	if messageID == "" {
		return false
	}
	_, ok := m.exported[messageID]
	return ok
}

func (m *MemoryTracker) MarkExported(messageID string) error {
	if messageID == "" {
		return nil
	}
	m.exported[messageID] = time.Now().UTC()
	return nil
}

func (m *MemoryTracker) Snapshot() Snapshot {
	return Snapshot{Exported: len(m.exported)}
}

// FileTracker persists exported message ids so future runs can skip them.
type FileTracker struct {
	*MemoryTracker
	path    string
	persist bool
	writer  *bufio.Writer
	file    *os.File
}

type fileRecord struct {
	MessageID  string    `json:"message_id"`
	ExportedAt time.Time `json:"exported_at"`
}

func NewFileTracker(stateDir string, persist bool) (*FileTracker, error) {
	if strings.TrimSpace(stateDir) == "" {
		return nil, fmt.Errorf("state directory is empty")
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	tracker := &FileTracker{
		MemoryTracker: NewMemoryTracker(),
		path:          filepath.Join(stateDir, "exported.jsonl"),
		persist:       persist,
	}

	if err := tracker.load(); err != nil {
		return nil, err
	}

	if persist {
		file, err := os.OpenFile(tracker.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open state file for append: %w", err)
		}
		tracker.file = file
		tracker.writer = bufio.NewWriterSize(file, 64*1024)
	}

	return tracker, nil
}

func (f *FileTracker) load() error {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var record fileRecord
		if err := json.Unmarshal(text, &record); err != nil {
			return fmt.Errorf("parse state line %d: %w", line, err)
		}
		if record.MessageID == "" {
			continue
		}
		f.exported[record.MessageID] = record.ExportedAt
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read state file: %w", err)
	}

	return nil
}

func (f *FileTracker) MarkExported(messageID string) error {
	if messageID == "" {
		return nil
	}
	if _, exists := f.exported[messageID]; exists {
		return nil
	}

	exportedAt := time.Now().UTC()
	f.exported[messageID] = exportedAt

	if !f.persist {
		return nil
	}

	record := fileRecord{MessageID: messageID, ExportedAt: exportedAt}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode state record: %w", err)
	}

	if _, err := f.writer.Write(data); err != nil {
		return fmt.Errorf("write state record: %w", err)
	}
	if err := f.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}

	return nil
}

// Flush writes any buffered data to the underlying file.
func (f *FileTracker) Flush() error {
	if !f.persist || f.writer == nil {
		return nil
	}

	if err := f.writer.Flush(); err != nil {
		return fmt.Errorf("flush state file: %w", err)
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("sync state file: %w", err)
	}
	return nil
}

// Close flushes and closes the state file.
func (f *FileTracker) Close() error {
	if !f.persist || f.file == nil {
		return nil
	}

	var firstErr error
	if f.writer != nil {
		if err := f.writer.Flush(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flush state file: %w", err)
		}
	}
	if err := f.file.Sync(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("sync state file: %w", err)
	}
	if err := f.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close state file: %w", err)
	}

	return firstErr
}
