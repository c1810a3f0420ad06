package stats

type EventType string

const (
	EventTypeFetched         EventType = "fetched"
	EventTypeFetchError      EventType = "fetch_error"
	EventTypeDuplicate       EventType = "duplicate"
	EventTypeFiltered        EventType = "filtered"
	EventTypeExported        EventType = "exported"
	EventTypeDryRunExport    EventType = "dry_run_exported"
	EventTypeAttachmentSaved EventType = "attachment_saved"
	EventTypeMboxError       EventType = "mbox_error"
)

type Event struct {
	Type      EventType
	MessageID string
	Err       error
}

type Summary struct {
	Fetched          int
	FetchErrors      int
	Duplicates       int
	Filtered         int
	Exported         int
	DryRunExported   int
	AttachmentsSaved int
	MboxErrors       int
	LastError        error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"fetched", s.Fetched,
		"fetchErrors", s.FetchErrors,
		"duplicates", s.Duplicates,
		"filtered", s.Filtered,
		"exported", s.Exported,
		"dryRunExported", s.DryRunExported,
		"attachmentsSaved", s.AttachmentsSaved,
		"mboxErrors", s.MboxErrors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

// Collector tallies events. The export loop is strictly sequential, so there
// is a single writer and no locking.
type Collector struct {
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Record(evt Event) {
	switch evt.Type {
	case EventTypeFetched:
		c.summary.Fetched++
	case EventTypeFetchError:
		c.summary.FetchErrors++
	case EventTypeDuplicate:
		c.summary.Duplicates++
	case EventTypeFiltered:
		c.summary.Filtered++
	case EventTypeExported:
		c.summary.Exported++
	case EventTypeDryRunExport:
		c.summary.DryRunExported++
	case EventTypeAttachmentSaved:
		c.summary.AttachmentsSaved++
	case EventTypeMboxError:
		c.summary.MboxErrors++
	}
	if evt.Err != nil {
		c.summary.LastError = evt.Err
	}
}

func (c *Collector) Snapshot() Summary {
	return c.summary
}
