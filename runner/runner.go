// Package runner drives one export run from listing message ids to writing
// the CSV reports. Messages are processed strictly one after another; the
// only state shared across them is the two growing record slices.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/dhcgn/gmail-export/builder"
	"github.com/dhcgn/gmail-export/config"
	"github.com/dhcgn/gmail-export/export"
	"github.com/dhcgn/gmail-export/filter"
	"github.com/dhcgn/gmail-export/model"
	"github.com/dhcgn/gmail-export/progress"
	"github.com/dhcgn/gmail-export/state"
	"github.com/dhcgn/gmail-export/stats"
)

// Source is the remote mail service the runner pulls from.
type Source interface {
	ListMessageIDs(ctx context.Context, query string, labelIDs []string, max int64) ([]string, error)
	FetchMessage(ctx context.Context, id string) (*gmail.Message, error)
	FetchRaw(ctx context.Context, id string) ([]byte, time.Time, error)
}

type Runner struct {
	cfg     config.Config
	logger  *slog.Logger
	source  Source
	builder *builder.Builder

	tracker   *state.FileTracker
	filter    *filter.Filter
	collector *stats.Collector
}

func New(cfg config.Config, source Source, b *builder.Builder, logger *slog.Logger) (*Runner, error) {
	tracker, err := state.NewFileTracker(cfg.StateDir, !cfg.DryRun)
	if err != nil {
		return nil, fmt.Errorf("state tracker: %w", err)
	}

	f, err := filter.New(filter.Options{
		IncludeHeader: cfg.IncludeHeader,
		IncludeBody:   cfg.IncludeBody,
		ExcludeHeader: cfg.ExcludeHeader,
		ExcludeBody:   cfg.ExcludeBody,
	})
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	return &Runner{
		cfg:       cfg,
		logger:    logger,
		source:    source,
		builder:   b,
		tracker:   tracker,
		filter:    f,
		collector: stats.NewCollector(),
	}, nil
}

// Summary returns the tallies of the last run.
func (r *Runner) Summary() stats.Summary {
	return r.collector.Snapshot()
}

// Run executes one export. A failed listing ends the run; any failure on a
// single message or attachment is logged and skipped.
func (r *Runner) Run(ctx context.Context) error {
	started := time.Now()
	defer func() {
		if err := r.tracker.Close(); err != nil {
			r.logger.Warn("closing state tracker", "err", err)
		}
	}()

	ids, err := r.source.ListMessageIDs(ctx, r.cfg.Query, r.cfg.LabelIDs, r.cfg.MaxMessages)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	alreadyDone := 0
	for _, id := range ids {
		if r.tracker.AlreadyExported(id) {
			alreadyDone++
		}
	}

	bar := progress.New(len(ids), alreadyDone, r.cfg.LogLevel)

	var mboxWriter *export.MboxWriter
	if r.cfg.MboxPath != "" && !r.cfg.DryRun {
		mboxWriter, err = export.NewMboxWriter(r.cfg.MboxPath)
		if err != nil {
			return fmt.Errorf("mbox archive: %w", err)
		}
		defer func() {
			if err := mboxWriter.Close(); err != nil {
				r.logger.Warn("closing mbox archive", "err", err)
			}
		}()
	}

	var (
		messages    []model.MessageRecord
		attachments []model.AttachmentRecord
	)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		if r.tracker.AlreadyExported(id) {
			r.record(bar, stats.Event{Type: stats.EventTypeDuplicate, MessageID: id})
			continue
		}

		r.logger.Info("processing message", "messageID", id)

		msg, err := r.source.FetchMessage(ctx, id)
		if err != nil {
			r.logger.Error("fetch failed, skipping message", "messageID", id, "err", err)
			r.record(bar, stats.Event{Type: stats.EventTypeFetchError, MessageID: id, Err: err})
			continue
		}
		r.record(bar, stats.Event{Type: stats.EventTypeFetched, MessageID: id})

		record := r.builder.Record(msg)
		if !r.filter.Allows(record) {
			r.record(bar, stats.Event{Type: stats.EventTypeFiltered, MessageID: id})
			continue
		}

		if r.cfg.DryRun {
			messages = append(messages, record)
			r.record(bar, stats.Event{Type: stats.EventTypeDryRunExport, MessageID: id})
			continue
		}

		attRecords := r.builder.Attachments(ctx, msg)
		for range attRecords {
			r.record(bar, stats.Event{Type: stats.EventTypeAttachmentSaved, MessageID: id})
		}

		if mboxWriter != nil {
			if err := r.appendRaw(ctx, mboxWriter, id, record); err != nil {
				r.logger.Error("mbox append failed", "messageID", id, "err", err)
				r.record(bar, stats.Event{Type: stats.EventTypeMboxError, MessageID: id, Err: err})
			}
		}

		messages = append(messages, record)
		attachments = append(attachments, attRecords...)

		if err := r.tracker.MarkExported(id); err != nil {
			return fmt.Errorf("mark exported %s: %w", id, err)
		}
		r.record(bar, stats.Event{Type: stats.EventTypeExported, MessageID: id})
	}

	if err := r.tracker.Flush(); err != nil {
		return err
	}

	if !r.cfg.DryRun {
		if err := export.WriteMessages(r.cfg.DataDir, messages); err != nil {
			return fmt.Errorf("write messages csv: %w", err)
		}
		r.logger.Info("emails data saved", "dir", r.cfg.DataDir, "count", len(messages))

		if len(attachments) > 0 {
			if err := export.WriteAttachments(r.cfg.DataDir, attachments); err != nil {
				return fmt.Errorf("write attachments csv: %w", err)
			}
			r.logger.Info("attachments data saved", "dir", r.cfg.DataDir, "count", len(attachments))
		} else {
			r.logger.Info("no attachments found")
		}
	}

	if r.filter.Active() {
		fstats := r.filter.GetStats()
		r.logger.Debug("filter hits", "header", fstats.HeaderHits, "body", fstats.BodyHits)
	}

	summary := r.collector.Snapshot()
	bar.Stop(summary)
	r.logger.Info("export completed", append(summary.LogAttrs(), "duration", time.Since(started))...)
	return nil
}

func (r *Runner) appendRaw(ctx context.Context, w *export.MboxWriter, id string, record model.MessageRecord) error {
	raw, received, err := r.source.FetchRaw(ctx, id)
	if err != nil {
		return err
	}
	return w.Append(record.From, received, raw)
}

func (r *Runner) record(bar *progress.Bar, evt stats.Event) {
	r.collector.Record(evt)
	bar.Update(evt)
}
