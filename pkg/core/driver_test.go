package core

import (
	"testing"
	"time"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/session"
)

func TestCommandResult_Fields(t *testing.T) {
	result := CommandResult{
		Success:  true,
		Duration: 100 * time.Millisecond,
		Message:  "clicked #submit",
		Element: &ElementInfo{
			ID:      "submit",
			Text:    "Submit",
			Visible: true,
			Enabled: true,
		},
	}

	if !result.Success {
		t.Error("Success should be true")
	}
	if result.Duration != 100*time.Millisecond {
		t.Errorf("Duration = %v, want 100ms", result.Duration)
	}
	if result.Element == nil {
		t.Fatal("Element should not be nil")
	}
	if result.Element.ID != "submit" {
		t.Errorf("Element.ID = %s, want submit", result.Element.ID)
	}
}

func TestElementInfo_Fields(t *testing.T) {
	elem := ElementInfo{
		ID:      "elem-1",
		Tag:     "button",
		Text:    "Hello",
		Rect:    dom.Rect{X: 10, Y: 20, Width: 100, Height: 50},
		Visible: true,
		Enabled: true,
		Focused: false,
		Checked: true,
		Class:   "btn primary",
		Attributes: map[string]string{
			"data-testid": "hello",
		},
	}

	if elem.ID != "elem-1" {
		t.Errorf("ID = %s, want elem-1", elem.ID)
	}
	if elem.Rect.Width != 100 {
		t.Errorf("Rect.Width = %v, want 100", elem.Rect.Width)
	}
	if !elem.Visible {
		t.Error("Visible should be true")
	}
	if !elem.Checked {
		t.Error("Checked should be true")
	}
	if elem.Attributes["data-testid"] != "hello" {
		t.Errorf("Attributes[data-testid] = %s, want hello", elem.Attributes["data-testid"])
	}
}

func TestSessionDriver_GetState(t *testing.T) {
	doc, err := dom.NewDocument(`<html><body><input id="i" type="text" data-rect="0,0,10,10"></body></html>`)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	s := session.New(doc, session.Options{})
	node, err := s.QuerySelector("css=#i", nil, true)
	if err != nil {
		t.Fatalf("QuerySelector: %v", err)
	}
	doc.SetActiveElement(node)

	d := &SessionDriver{Session: s}
	state := d.GetState()
	if state.FocusedElement == nil {
		t.Fatal("expected a focused element snapshot")
	}
	if state.FocusedElement.ID != "i" {
		t.Errorf("FocusedElement.ID = %s, want i", state.FocusedElement.ID)
	}
	if !state.FocusedElement.Focused {
		t.Error("expected Focused to be true")
	}
}

func TestSessionDriver_GetPlatformInfo(t *testing.T) {
	doc, err := dom.NewDocument(`<html><body></body></html>`)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	s := session.New(doc, session.Options{BrowserName: "chromium"})
	d := &SessionDriver{Session: s}

	info := d.GetPlatformInfo()
	if info.BrowserName != "chromium" {
		t.Errorf("BrowserName = %s, want chromium", info.BrowserName)
	}
}

func TestExecutedByConstants(t *testing.T) {
	if ExecutedByDriver != "driver" {
		t.Errorf("ExecutedByDriver = %s, want driver", ExecutedByDriver)
	}
	if ExecutedByRunner != "runner" {
		t.Errorf("ExecutedByRunner = %s, want runner", ExecutedByRunner)
	}
}

func TestLogEntry_Fields(t *testing.T) {
	now := time.Now()
	entry := LogEntry{
		Timestamp: now,
		Level:     "error",
		Source:    "session",
		Message:   "selector timed out",
	}

	if entry.Timestamp != now {
		t.Error("Timestamp mismatch")
	}
	if entry.Level != "error" {
		t.Errorf("Level = %s, want error", entry.Level)
	}
	if entry.Source != "session" {
		t.Errorf("Source = %s, want session", entry.Source)
	}
	if entry.Message != "selector timed out" {
		t.Errorf("Message = %s, want 'selector timed out'", entry.Message)
	}
}
