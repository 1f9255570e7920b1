package contraction

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// buildLog строит журнал "новые первыми": n сокращений заданной длительности
// с шагом spacing, последнее начинается за 60 секунд до now
func buildLog(now time.Time, n int, duration, spacing time.Duration) Log {
	log := make(Log, 0, n)
	newestStart := now.Add(-time.Minute)
	for i := 0; i < n; i++ {
		start := newestStart.Add(-time.Duration(i) * spacing)
		c, _ := New(start.UnixMilli(), start.Add(duration).UnixMilli())
		log = append(log, c)
	}
	return log
}

func TestNew_DerivesDuration(t *testing.T) {
	c, err := New(1_000, 62_999)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c.Duration != 61 {
		t.Errorf("Expected floor duration 61s, got %d", c.Duration)
	}

	if _, err := New(5_000, 4_000); !errors.Is(err, ErrInvalidContraction) {
		t.Errorf("Expected ErrInvalidContraction for end before start, got %v", err)
	}
}

func TestSummarize_UndefinedBelowTwo(t *testing.T) {
	if _, ok := Summarize(Log{}); ok {
		t.Error("Expected no summary for empty log")
	}

	one, _ := New(0, 60_000)
	if _, ok := Summarize(Log{one}); ok {
		t.Error("Expected no summary for single entry")
	}
}

func TestSummarize_Averages(t *testing.T) {
	c1, _ := New(400_000, 460_000) // 60s
	c2, _ := New(100_000, 140_000) // 40s

	summary, ok := Summarize(Log{c1, c2})
	if !ok {
		t.Fatal("Expected summary for two entries")
	}

	want := Summary{AvgDuration: 50, AvgFrequency: 300}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectLaborAlert_Boundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	log := buildLog(now, 6, 60*time.Second, 300*time.Second)
	alert := DetectLaborAlert(log, now)
	if alert == nil {
		t.Fatal("Expected alert for six 60s contractions 300s apart")
	}
	if !strings.Contains(alert.Message, "01:00 long and 05:00 apart") {
		t.Errorf("Expected formatted averages in message, got %q", alert.Message)
	}
}

func TestDetectLaborAlert_ShortDuration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := buildLog(now, 6, 60*time.Second, 300*time.Second)

	shorter, _ := New(log[2].StartTime, log[2].StartTime+59_000)
	log[2] = shorter

	if alert := DetectLaborAlert(log, now); alert != nil {
		t.Errorf("Expected no alert when average duration drops below 60s, got %+v", alert)
	}
}

func TestDetectLaborAlert_WideSpacing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := buildLog(now, 6, 60*time.Second, 301*time.Second)

	if alert := DetectLaborAlert(log, now); alert != nil {
		t.Errorf("Expected no alert when spacing exceeds 300s, got %+v", alert)
	}
}

func TestDetectLaborAlert_RequiresSixInWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if alert := DetectLaborAlert(buildLog(now, 5, 70*time.Second, 240*time.Second), now); alert != nil {
		t.Error("Expected no alert with five contractions")
	}

	// Шесть сокращений, но самое старое выпадает из часового окна
	log := buildLog(now, 6, 70*time.Second, 12*time.Minute)
	if got := len(RecentWindow(log, now)); got != 5 {
		t.Fatalf("Expected 5 entries in window, got %d", got)
	}
	if alert := DetectLaborAlert(log, now); alert != nil {
		t.Error("Expected no alert when fewer than six entries fall in the window")
	}
}

func TestFrequencySince(t *testing.T) {
	c1, _ := New(400_500, 460_000)
	c2, _ := New(100_000, 140_000)
	log := Log{c1, c2}

	freq, ok := FrequencySince(log, 0)
	if !ok || freq != 300 {
		t.Errorf("Expected 300s, got %d ok=%v", freq, ok)
	}
	if _, ok := FrequencySince(log, 1); ok {
		t.Error("Expected no frequency for the oldest entry")
	}
	if _, ok := FrequencySince(log, 5); ok {
		t.Error("Expected no frequency for out of range index")
	}
}

func TestFormatTime(t *testing.T) {
	cases := map[float64]string{
		0:     "00:00",
		59.4:  "00:59",
		59.6:  "01:00",
		300:   "05:00",
		754.2: "12:34",
		-3:    "00:00",
	}
	for in, want := range cases {
		if got := FormatTime(in); got != want {
			t.Errorf("FormatTime(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestDecodeLog_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := buildLog(now, 4, 45*time.Second, 7*time.Minute)

	data, err := EncodeLog(log)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	reloaded, err := DecodeLog(data)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	before, _ := Summarize(log)
	after, _ := Summarize(reloaded)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("Summary changed after reload (-before +after):\n%s", diff)
	}
}

func TestDecodeLog_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"oops"`,
		"missing field":  `[{"startTime":1000,"endTime":2000}]`,
		"end before":     `[{"startTime":5000,"endTime":1000,"duration":0}]`,
		"wrong duration": `[{"startTime":0,"endTime":60000,"duration":45}]`,
		"wrong shape":    `{"startTime":0}`,
	}
	for name, data := range cases {
		if _, err := DecodeLog(data); !errors.Is(err, ErrMalformedLog) {
			t.Errorf("%s: expected ErrMalformedLog, got %v", name, err)
		}
	}
}

func TestShareText(t *testing.T) {
	c1, _ := New(time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC).UnixMilli(), time.Date(2026, 3, 1, 10, 6, 0, 0, time.UTC).UnixMilli())
	c2, _ := New(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli(), time.Date(2026, 3, 1, 10, 0, 40, 0, time.UTC).UnixMilli())

	got := ShareText(Log{c1, c2}, time.UTC)
	want := "Summary: Avg Duration 00:50, Avg Frequency 05:00\n\n" +
		"Contraction Log:\n" +
		"1. 10:05 - Duration: 01:00 (Freq: 05:00)\n" +
		"2. 10:00 - Duration: 00:40"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Share text mismatch (-want +got):\n%s", diff)
	}
}
