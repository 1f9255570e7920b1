package contraction

import (
	"context"
	"time"
)

// Ticker отсчитывает секунды активного замера
type Ticker struct {
	interval time.Duration
}

func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{interval: interval}
}

// Tick возвращает канал с метками времени; канал закрывается при отмене ctx
func (t *Ticker) Tick(ctx context.Context) <-chan time.Time {
	tickChan := make(chan time.Time)

	go func() {
		defer close(tickChan)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case tickTime := <-ticker.C:
				select {
				case tickChan <- tickTime:
				case <-ctx.Done():
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return tickChan
}
