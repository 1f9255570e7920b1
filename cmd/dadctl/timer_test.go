package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Krimson/dadguide/internal/app"
	"github.com/Krimson/dadguide/internal/storage"
)

func newTestManager(t *testing.T, now *time.Time) *app.Manager {
	t.Helper()
	m, err := app.NewManager(storage.NewMemoryStore(), app.Options{
		Now:          func() time.Time { return *now },
		TickInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func press(t *testing.T, model tea.Model, key string) tea.Model {
	t.Helper()
	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	if cmd == nil {
		t.Fatalf("Expected a command for key %q", key)
	}
	next, _ = next.Update(cmd())
	return next
}

func TestTimerModel_ToggleRecordsContraction(t *testing.T) {
	now := time.Date(2026, 9, 30, 3, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &now)

	var model tea.Model = newTimerModel(manager)
	model = press(t, model, "s")
	if !strings.Contains(model.View(), "in progress") {
		t.Errorf("Expected timing view, got:\n%s", model.View())
	}

	now = now.Add(65 * time.Second)
	model = press(t, model, "s")

	status := model.(timerModel).status
	if status.Timing || len(status.Log) != 1 || status.Log[0].Duration != 65 {
		t.Errorf("Unexpected status after stop: %+v", status)
	}
}

func TestTimerModel_Quit(t *testing.T) {
	now := time.Date(2026, 9, 30, 3, 0, 0, 0, time.UTC)
	model := newTimerModel(newTestManager(t, &now))

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestRenderStatus_Empty(t *testing.T) {
	now := time.Date(2026, 9, 30, 3, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &now)

	if got := renderStatus(manager.ContractionStatus()); got != "no contractions recorded" {
		t.Errorf("Unexpected output: %q", got)
	}
}
