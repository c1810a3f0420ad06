package progress

import (
	"time"

	"github.com/pterm/pterm"

	"github.com/dhcgn/gmail-export/stats"
)

// Bar manages a progress bar for tracking message processing. It stays
// silent unless the log level is "info".
type Bar struct {
	pb          *pterm.ProgressbarPrinter
	total       int
	alreadyDone int
	enabled     bool
	started     time.Time
}

// New creates a new progress bar if logLevel is "info".
func New(total int, alreadyDone int, logLevel string) *Bar {
	enabled := logLevel == "info"

	bar := &Bar{
		total:       total,
		alreadyDone: alreadyDone,
		enabled:     enabled,
		started:     time.Now(),
	}

	if enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Exporting messages").
			Start()

		bar.pb = pb

		pterm.Info.Printf("Messages listed: %d\n", total)
		pterm.Info.Printf("Already exported: %d\n", alreadyDone)
		pterm.Info.Printf("Remaining: %d\n", total-alreadyDone)
		pterm.Println()
	}

	return bar
}

// Update advances the bar based on the event type.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	switch evt.Type {
	case stats.EventTypeFetched, stats.EventTypeDuplicate, stats.EventTypeFetchError:
		// One bar step per listed message, whatever its fate.
		b.pb.Increment()

		if evt.Type == stats.EventTypeFetched && evt.MessageID != "" {
			displayID := evt.MessageID
			if len(displayID) > 40 {
				displayID = displayID[:37] + "..."
			}
			b.pb.UpdateTitle("Exporting: " + displayID)
		}
	case stats.EventTypeMboxError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}

	if evt.Type == stats.EventTypeFetchError && evt.Err != nil {
		pterm.Error.Printf("Error: %v\n", evt.Err)
	}
}

// Stop finalizes the progress bar and prints the summary.
func (b *Bar) Stop(summary stats.Summary) {
	if !b.enabled || b.pb == nil {
		return
	}

	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	b.pb.Stop()

	pterm.Println()
	pterm.DefaultSection.Println("Summary")
	pterm.Info.Printf("Duration: %v\n", time.Since(b.started))
	pterm.Info.Printf("Fetched: %d\n", summary.Fetched)
	pterm.Info.Printf("Exported: %d\n", summary.Exported)
	pterm.Info.Printf("Dry-run exported: %d\n", summary.DryRunExported)
	pterm.Info.Printf("Attachments saved: %d\n", summary.AttachmentsSaved)
	pterm.Info.Printf("Duplicates (skipped): %d\n", summary.Duplicates)
	pterm.Info.Printf("Filtered out: %d\n", summary.Filtered)
	pterm.Info.Printf("Errors: %d\n", summary.FetchErrors+summary.MboxErrors)
	if summary.LastError != nil {
		pterm.Error.Printf("Last error: %v\n", summary.LastError)
	}
	pterm.Success.Println("Export complete!")
}
