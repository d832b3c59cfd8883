// Defines progress reporting interfaces and implementations.

package migrate

import (
	"fmt"
	"io"
	"time"
)

// Summary counts the outcomes of a run.
type Summary struct {
	Created        int           `json:"created"`
	Failed         int           `json:"failed"`
	Skipped        int           `json:"skipped"`
	Planned        int           `json:"planned"`
	Marked         int           `json:"marked"`
	MarkFailed     int           `json:"mark_failed"`
	LookupFailures int           `json:"lookup_failures"`
	Duration       time.Duration `json:"duration"`
}

// Summarize counts outcomes.
func Summarize(outcomes []*Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status {
		case Created:
			s.Created++
		case CreateFailed:
			s.Failed++
		case SkippedNoEnrichment:
			s.Skipped++
		case Planned:
			s.Planned++
		}
		if o.Marked {
			s.Marked++
		}
		if o.MarkErr != nil {
			s.MarkFailed++
		}
		s.LookupFailures += len(o.Lookups)
	}
	return s
}

// ProgressReporter is the interface for reporting migration progress.
type ProgressReporter interface {
	OnPage(n int)
	OnStart(total int)
	OnProgress(current int, item string)
	OnWarning(msg string)
	OnError(err error)
	OnComplete(s Summary)
}

// CLIProgress writes progress to stdout/stderr.
type CLIProgress struct {
	Out io.Writer
	Err io.Writer
}

// OnPage is called before each page of source rows is loaded.
func (p *CLIProgress) OnPage(n int) {
	_, _ = fmt.Fprintf(p.Out, "Loading page %d\n", n)
}

// OnStart is called when processing begins.
func (p *CLIProgress) OnStart(total int) {
	_, _ = fmt.Fprintf(p.Out, "Found %d items to migrate\n\n", total)
}

// OnProgress is called for each item processed.
func (p *CLIProgress) OnProgress(current int, item string) {
	_, _ = fmt.Fprintf(p.Out, "[%d] %s\n", current, item)
}

// OnWarning is called for non-fatal issues.
func (p *CLIProgress) OnWarning(msg string) {
	_, _ = fmt.Fprintf(p.Err, "Warning: %s\n", msg)
}

// OnError is called for items that failed.
func (p *CLIProgress) OnError(err error) {
	_, _ = fmt.Fprintf(p.Err, "Error: %v\n", err)
}

// OnComplete is called when the run finishes.
func (p *CLIProgress) OnComplete(s Summary) {
	_, _ = fmt.Fprintf(p.Out, "\nComplete!\n")
	_, _ = fmt.Fprintf(p.Out, "---------\n")
	if s.Planned > 0 {
		_, _ = fmt.Fprintf(p.Out, "Planned:  %d\n", s.Planned)
	}
	_, _ = fmt.Fprintf(p.Out, "Created:  %d\n", s.Created)
	_, _ = fmt.Fprintf(p.Out, "Failed:   %d\n", s.Failed)
	_, _ = fmt.Fprintf(p.Out, "Skipped:  %d\n", s.Skipped)
	_, _ = fmt.Fprintf(p.Out, "Marked:   %d\n", s.Marked)
	if s.MarkFailed > 0 {
		_, _ = fmt.Fprintf(p.Out, "Unmarked: %d\n", s.MarkFailed)
	}
	_, _ = fmt.Fprintf(p.Out, "Duration: %s\n", s.Duration.Round(time.Second))
}

// NullProgress discards all progress updates.
type NullProgress struct{}

// OnPage is called before each page of source rows is loaded.
func (p *NullProgress) OnPage(n int) {}

// OnStart is called when processing begins.
func (p *NullProgress) OnStart(total int) {}

// OnProgress is called for each item processed.
func (p *NullProgress) OnProgress(current int, item string) {}

// OnWarning is called for non-fatal issues.
func (p *NullProgress) OnWarning(msg string) {}

// OnError is called for items that failed.
func (p *NullProgress) OnError(err error) {}

// OnComplete is called when the run finishes.
func (p *NullProgress) OnComplete(s Summary) {}
