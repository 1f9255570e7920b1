package simulate

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Krimson/dadguide/internal/app"
	"github.com/Krimson/dadguide/internal/contraction"
)

// Clock - модельное время, которое двигает только Run
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Timer - кнопка таймера схваток
type Timer interface {
	StartContraction() (contraction.Status, bool)
	StopContraction(ctx context.Context) (*app.ContractionResult, error)
}

// Span - сколько модельного времени займут схватки. Пауза после последней не считается.
func Span(samples []Sample) time.Duration {
	var total time.Duration
	for i, s := range samples {
		if i == len(samples)-1 {
			total += s.Duration
			break
		}
		total += s.Interval()
	}
	return total
}

// Run нажимает старт и стоп для каждой схватки, сдвигая часы.
// Возвращает результат последней остановки.
func Run(ctx context.Context, timer Timer, clock *Clock, samples []Sample) (*app.ContractionResult, error) {
	var last *app.ContractionResult
	for i, s := range samples {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		if _, started := timer.StartContraction(); !started {
			return last, fmt.Errorf("contraction %d: timer is already running", i+1)
		}
		clock.Advance(s.Duration)

		result, err := timer.StopContraction(ctx)
		if err != nil {
			return last, fmt.Errorf("contraction %d: %w", i+1, err)
		}
		last = result

		if i < len(samples)-1 {
			clock.Advance(s.Rest)
		}
	}

	log.Printf("[CONTRACTION] Simulated %d contractions", len(samples))
	return last, nil
}
