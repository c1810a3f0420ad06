package model

import "time"

// MessageRecord is one exported message row. ReceivedAt stays zero-valued
// when the Date header is absent or unparsable.
type MessageRecord struct {
	ID         string
	ThreadID   string
	Snippet    string
	LabelIDs   []string
	From       string
	To         string
	CC         string
	Subject    string
	ReceivedAt time.Time
	PlainText  string
}

// AttachmentRecord describes one attachment that was saved to disk.
type AttachmentRecord struct {
	MessageID string
	Filename  string
	MimeType  string
	Size      int64
}
