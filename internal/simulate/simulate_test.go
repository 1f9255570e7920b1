package simulate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Krimson/dadguide/internal/app"
	"github.com/Krimson/dadguide/internal/storage"
)

func TestGenerator_StaysWithinPattern(t *testing.T) {
	for _, name := range PatternNames() {
		t.Run(name, func(t *testing.T) {
			p, err := Lookup(name)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			gen, err := NewGenerator(p, 42)
			if err != nil {
				t.Fatalf("NewGenerator failed: %v", err)
			}
			for i, s := range gen.Samples(50) {
				if s.Duration < p.MinDuration || s.Duration > p.MaxDuration {
					t.Errorf("Sample %d: duration %v out of range", i, s.Duration)
				}
				if s.Interval() < p.MinInterval || s.Interval() > p.MaxInterval {
					t.Errorf("Sample %d: interval %v out of range", i, s.Interval())
				}
				if s.Duration%time.Second != 0 || s.Rest%time.Second != 0 {
					t.Errorf("Sample %d is not rounded to seconds: %+v", i, s)
				}
			}
		})
	}
}

func TestGenerator_SeedIsDeterministic(t *testing.T) {
	a, _ := NewGenerator(Patterns["active"], 7)
	b, _ := NewGenerator(Patterns["active"], 7)
	if diff := cmp.Diff(a.Samples(10), b.Samples(10)); diff != "" {
		t.Errorf("Same seed produced different samples (-a +b):\n%s", diff)
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, err := Lookup("false-labor"); !errors.Is(err, ErrUnknownPattern) {
		t.Errorf("Expected ErrUnknownPattern, got %v", err)
	}
}

func TestPattern_Validate(t *testing.T) {
	bad := Pattern{MinInterval: time.Minute, MaxInterval: 2 * time.Minute, MinDuration: 90 * time.Second, MaxDuration: 90 * time.Second}
	if err := bad.Validate(); err == nil {
		t.Error("Expected interval shorter than duration to be rejected")
	}
}

func TestSpan(t *testing.T) {
	samples := []Sample{
		{Duration: 60 * time.Second, Rest: 180 * time.Second},
		{Duration: 70 * time.Second, Rest: 200 * time.Second},
	}
	if got := Span(samples); got != 310*time.Second {
		t.Errorf("Expected 310s, got %v", got)
	}
}

func TestRun_LaborAlertDependsOnPattern(t *testing.T) {
	tests := []struct {
		pattern string
		alert   bool
	}{
		{"early", false},
		{"active", true},
		{"transition", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			gen, err := NewGenerator(Patterns[tt.pattern], 1)
			if err != nil {
				t.Fatalf("NewGenerator failed: %v", err)
			}
			samples := gen.Samples(8)
			clock := NewClock(time.Date(2026, 9, 30, 1, 0, 0, 0, time.UTC))

			manager, err := app.NewManager(storage.NewMemoryStore(), app.Options{Now: clock.Now, TickInterval: time.Hour})
			if err != nil {
				t.Fatalf("NewManager failed: %v", err)
			}
			defer manager.Close()

			result, err := Run(context.Background(), manager, clock, samples)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if n := len(result.Status.Log); n != len(samples) {
				t.Fatalf("Expected %d contractions, got %d", len(samples), n)
			}
			if got := result.Status.Alert != nil; got != tt.alert {
				t.Errorf("Expected alert=%v, got %+v", tt.alert, result.Status.Alert)
			}
			if d := result.Status.Log[0].Duration; time.Duration(d)*time.Second != samples[len(samples)-1].Duration {
				t.Errorf("Expected newest contraction first, got duration %ds", d)
			}
		})
	}
}
