package notify

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Типы событий
const (
	EventAchievementUnlocked = "achievement_unlocked"
	EventLaborAlert          = "labor_alert"
	EventContractionRecorded = "contraction_recorded"
)

// Event - уведомление для клиентов
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent создает событие с уникальным идентификатором
func NewEvent(eventType string, payload interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Sink получает события. Доставка не гарантируется и не блокирует вызывающего.
type Sink interface {
	Publish(event Event)
}

// LogSink пишет события в лог
type LogSink struct{}

func (LogSink) Publish(event Event) {
	log.Printf("[NOTIFY] %s %s: %+v", event.Type, event.ID, event.Payload)
}

// Fanout рассылает событие во все приемники
type Fanout []Sink

func (f Fanout) Publish(event Event) {
	for _, sink := range f {
		if sink != nil {
			sink.Publish(event)
		}
	}
}

// Recorder запоминает события (используется в тестах и CLI)
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events возвращает копию записанных событий
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.events...)
}

// Types возвращает типы записанных событий по порядку
func (r *Recorder) Types() []string {
	events := r.Events()
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}
