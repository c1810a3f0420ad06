package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dhcgn/gmail-export/model"
)

// Options captures the filtering configuration.
type Options struct {
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

// Filter holds compiled regex patterns for filtering exported messages.
// Include and exclude modes are mutually exclusive.
type Filter struct {
	includeMode   bool
	excludeMode   bool
	includeHeader []*regexp.Regexp
	includeBody   []*regexp.Regexp
	excludeHeader []*regexp.Regexp
	excludeBody   []*regexp.Regexp

	headerHits map[string]int
	bodyHits   map[string]int
}

// Stats reports per-pattern hit counts accumulated while filtering.
type Stats struct {
	HeaderPatterns []string
	BodyPatterns   []string
	HeaderHits     map[string]int
	BodyHits       map[string]int
}

// New creates a new Filter from the provided options.
func New(opts Options) (*Filter, error) {
	includeHeader, err := compilePatterns(opts.IncludeHeader)
	if err != nil {
		return nil, fmt.Errorf("compile include-header pattern: %w", err)
	}
	includeBody, err := compilePatterns(opts.IncludeBody)
	if err != nil {
		return nil, fmt.Errorf("compile include-body pattern: %w", err)
	}
	excludeHeader, err := compilePatterns(opts.ExcludeHeader)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-header pattern: %w", err)
	}
	excludeBody, err := compilePatterns(opts.ExcludeBody)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-body pattern: %w", err)
	}

	includeActive := len(includeHeader) > 0 || len(includeBody) > 0
	excludeActive := len(excludeHeader) > 0 || len(excludeBody) > 0
	if includeActive && excludeActive {
		return nil, fmt.Errorf("include and exclude filters are mutually exclusive")
	}

	return &Filter{
		includeMode:   includeActive,
		excludeMode:   excludeActive,
		includeHeader: includeHeader,
		includeBody:   includeBody,
		excludeHeader: excludeHeader,
		excludeBody:   excludeBody,
		headerHits:    make(map[string]int),
		bodyHits:      make(map[string]int),
	}, nil
}

// Active reports whether any pattern is configured.
func (f *Filter) Active() bool {
	return f.includeMode || f.excludeMode
}

// Allows returns true if the built record passes the filter criteria. The
// header text is the record's address and subject lines; the body text is
// the extracted plain text.
func (f *Filter) Allows(record model.MessageRecord) bool {
	header := HeaderText(record)
	body := record.PlainText

	if f.includeMode {
		return f.matchAny(f.includeHeader, header, f.headerHits) ||
			f.matchAny(f.includeBody, body, f.bodyHits)
	}

	if f.excludeMode {
		headerHit := f.matchAny(f.excludeHeader, header, f.headerHits)
		bodyHit := f.matchAny(f.excludeBody, body, f.bodyHits)
		if headerHit || bodyHit {
			return false
		}
	}

	return true
}

// GetStats returns the configured patterns with their hit counts so far.
func (f *Filter) GetStats() Stats {
	stats := Stats{
		HeaderHits: f.headerHits,
		BodyHits:   f.bodyHits,
	}
	for _, re := range append(f.includeHeader, f.excludeHeader...) {
		stats.HeaderPatterns = append(stats.HeaderPatterns, re.String())
	}
	for _, re := range append(f.includeBody, f.excludeBody...) {
		stats.BodyPatterns = append(stats.BodyPatterns, re.String())
	}
	return stats
}

// HeaderText renders the record's header fields in the "Name: value" form
// the patterns match against.
func HeaderText(record model.MessageRecord) string {
	var sb strings.Builder
	write := func(name, value string) {
		if value == "" {
			return
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}
	write("From", record.From)
	write("To", record.To)
	write("Cc", record.CC)
	write("Subject", record.Subject)
	return sb.String()
}

func (f *Filter) matchAny(patterns []*regexp.Regexp, text string, hits map[string]int) bool {
	matched := false
	for _, re := range patterns {
		if re.MatchString(text) {
			hits[re.String()]++
			matched = true
		}
	}
	return matched
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
