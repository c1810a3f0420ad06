package filter

import (
	"testing"

	"github.com/dhcgn/gmail-export/model"
)

func TestFilter_Allows_IncludeMode(t *testing.T) {
	f, err := New(Options{IncludeHeader: []string{"Subject: Test"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	match := model.MessageRecord{Subject: "Test Message", From: "sender@example.com"}
	if !f.Allows(match) {
		t.Error("Expected message to be allowed (header matches)")
	}

	noMatch := model.MessageRecord{Subject: "Other", From: "sender@example.com"}
	if f.Allows(noMatch) {
		t.Error("Expected message to be filtered out (header doesn't match)")
	}
}

func TestFilter_Allows_ExcludeMode(t *testing.T) {
	f, err := New(Options{ExcludeHeader: []string{"spam"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !f.Allows(model.MessageRecord{Subject: "Normal Message"}) {
		t.Error("Expected message to be allowed (no spam)")
	}
	if f.Allows(model.MessageRecord{Subject: "This is spam"}) {
		t.Error("Expected message to be filtered out (contains spam)")
	}
}

func TestFilter_MutuallyExclusive(t *testing.T) {
	_, err := New(Options{
		IncludeHeader: []string{"test"},
		ExcludeHeader: []string{"spam"},
	})
	if err == nil {
		t.Error("Expected error when both include and exclude are specified")
	}
}

func TestFilter_NoFilters(t *testing.T) {
	f, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if f.Active() {
		t.Error("Expected filter to be inactive")
	}
	if !f.Allows(model.MessageRecord{Subject: "Any Message", PlainText: "Any body"}) {
		t.Error("Expected message to be allowed when no filters are active")
	}
}

func TestFilter_BodyFiltering(t *testing.T) {
	f, err := New(Options{IncludeBody: []string{"important"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !f.Allows(model.MessageRecord{PlainText: "This is an important message"}) {
		t.Error("Expected message to be allowed (body matches)")
	}
	if f.Allows(model.MessageRecord{PlainText: "This is a regular message"}) {
		t.Error("Expected message to be filtered out (body doesn't match)")
	}
}

func TestFilter_HitCounting(t *testing.T) {
	f, err := New(Options{ExcludeHeader: []string{"spam"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f.Allows(model.MessageRecord{Subject: "spam one"})
	f.Allows(model.MessageRecord{Subject: "clean"})
	f.Allows(model.MessageRecord{Subject: "spam two"})

	stats := f.GetStats()
	if got := stats.HeaderHits["spam"]; got != 2 {
		t.Errorf("hit count = %d, want 2", got)
	}
	if len(stats.HeaderPatterns) != 1 || stats.HeaderPatterns[0] != "spam" {
		t.Errorf("patterns = %v, want [spam]", stats.HeaderPatterns)
	}
}

func TestHeaderText(t *testing.T) {
	record := model.MessageRecord{
		From:    "alice@example.com",
		Subject: "hello",
	}
	want := "From: alice@example.com\nSubject: hello\n"
	if got := HeaderText(record); got != want {
		t.Errorf("HeaderText() = %q, want %q", got, want)
	}
}
