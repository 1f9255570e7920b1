package content

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Krimson/dadguide/internal/pregnancy"
	"github.com/Krimson/dadguide/internal/storage"
)

var testProfile = pregnancy.Profile{LMPDate: "2026-01-01", DueDate: "2026-10-08", PartnerName: "Anna"}

// completionBody оборачивает content в ответ chat completion
func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	if err != nil {
		t.Fatalf("Failed to marshal completion: %v", err)
	}
	return body
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*GenerativeProvider, *storage.MemoryStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cache := storage.NewMemoryStore()
	p, err := NewGenerativeProvider(GenerativeConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, cache)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return p, cache
}

const weekJSON = `{"week":5,"trimester":1,"babySize":{"inches":0.13,"grams":0.4,"comparisonObject":"a sesame seed"},` +
	`"fetalSystems":[],"didYouKnowFact":"The heart has started beating.","maternalChanges":[],` +
	`"medicalGuidance":[],"warningSigns":["Heavy bleeding"],` +
	`"paternalGuidance":{"paternalChanges":"","bondingOpportunity":"","actionableTasks":[]}}`

func TestStaticProvider(t *testing.T) {
	p, err := NewStaticProvider()
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	ctx := context.Background()

	data, err := p.WeekContent(ctx, 3, testProfile)
	if err != nil {
		t.Fatalf("WeekContent failed: %v", err)
	}
	if len(data.DailyMessages) != 3 || data.Trimester != 1 {
		t.Errorf("Unexpected week 3 data: %+v", data)
	}

	data, _ = p.WeekContent(ctx, 1, testProfile)
	if data.DailyMessages[0] != "I'm growing bigger every day, Dad!" {
		t.Errorf("Expected fallback messages for week 1, got %v", data.DailyMessages)
	}

	if _, err := p.WeekContent(ctx, 41, testProfile); !errors.Is(err, ErrInvalidWeek) {
		t.Errorf("Expected ErrInvalidWeek, got %v", err)
	}
	if tip := p.FinalCountdownTip(ctx, 10, testProfile); tip != FallbackTip {
		t.Errorf("Expected fallback tip, got %q", tip)
	}
}

func TestTrimesterForWeek(t *testing.T) {
	tests := map[int]int{1: 1, 13: 1, 14: 2, 26: 2, 27: 3, 39: 3, 40: 4}
	for week, want := range tests {
		if got := TrimesterForWeek(week); got != want {
			t.Errorf("TrimesterForWeek(%d) = %d, want %d", week, got, want)
		}
	}
}

func TestGenerativeProvider_CachesResponse(t *testing.T) {
	var calls atomic.Int32
	p, cache := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionBody(t, weekJSON))
	})
	ctx := context.Background()

	data, err := p.WeekContent(ctx, 5, testProfile)
	if err != nil {
		t.Fatalf("WeekContent failed: %v", err)
	}
	if data.Error != "" || data.BabySize.ComparisonObject != "a sesame seed" {
		t.Errorf("Unexpected data: %+v", data)
	}
	if len(data.DailyMessages) == 0 {
		t.Error("Expected daily messages to be attached")
	}

	if _, ok, _ := cache.Get(ctx, "week_5_data_v2"); !ok {
		t.Error("Expected response to be cached")
	}

	if _, err := p.WeekContent(ctx, 5, testProfile); err != nil {
		t.Fatalf("Second WeekContent failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 API call, got %d", calls.Load())
	}

	if _, err := p.Refresh(ctx, 5, testProfile); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected refresh to call the API again, got %d calls", calls.Load())
	}
}

func TestGenerativeProvider_FallbackOnError(t *testing.T) {
	p, cache := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})
	ctx := context.Background()

	data, err := p.WeekContent(ctx, 27, testProfile)
	if err != nil {
		t.Fatalf("Expected fallback payload, got error %v", err)
	}
	want := "We couldn't load the guide for week 27. Please check your connection and try again."
	if data.Error != want {
		t.Errorf("Expected error text %q, got %q", want, data.Error)
	}
	if data.Trimester != 3 {
		t.Errorf("Expected trimester 3, got %d", data.Trimester)
	}
	if _, ok, _ := cache.Get(ctx, "week_27_data_v2"); ok {
		t.Error("Expected fallback not to be cached")
	}

	if tip := p.FinalCountdownTip(ctx, 12, testProfile); tip != FallbackTip {
		t.Errorf("Expected fallback tip, got %q", tip)
	}
}

func TestGenerativeProvider_MalformedJSONFallsBack(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionBody(t, "not json at all"))
	})

	data, err := p.WeekContent(context.Background(), 8, testProfile)
	if err != nil || data.Error == "" {
		t.Errorf("Expected fallback payload, got %+v err=%v", data, err)
	}
}

func TestGenerativeProvider_RefreshSupersedesInflight(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// сервер замечает разрыв соединения только после чтения тела запроса
			io.Copy(io.Discard, r.Body)
			close(started)
			<-r.Context().Done()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionBody(t, weekJSON))
	})
	ctx := context.Background()

	type result struct {
		data *WeekData
		err  error
	}
	first := make(chan result, 1)
	go func() {
		data, err := p.WeekContent(ctx, 5, testProfile)
		first <- result{data, err}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("First request never reached the server")
	}

	data, err := p.Refresh(ctx, 5, testProfile)
	if err != nil || data.Error != "" {
		t.Fatalf("Expected refreshed data, got %+v err=%v", data, err)
	}

	select {
	case res := <-first:
		if !errors.Is(res.err, ErrSuperseded) {
			t.Errorf("Expected superseded request, got %+v err=%v", res.data, res.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("First request was not cancelled")
	}
}

func TestGenerativeProvider_FinalCountdownTipCachedPerDay(t *testing.T) {
	var calls atomic.Int32
	p, cache := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionBody(t, `{"tip":"Install the car seat today."}`))
	})
	p.now = func() time.Time { return time.Date(2026, 9, 20, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if tip := p.FinalCountdownTip(ctx, 18, testProfile); tip != "Install the car seat today." {
			t.Errorf("Unexpected tip %q", tip)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 API call, got %d", calls.Load())
	}
	if _, ok, _ := cache.Get(ctx, "final_tip_18_2026-09-20"); !ok {
		t.Error("Expected tip to be cached under the day key")
	}
}
