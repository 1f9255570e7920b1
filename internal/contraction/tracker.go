package contraction

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Krimson/dadguide/internal/storage"
)

var ErrResetNotConfirmed = errors.New("contraction log reset requires confirmation")

// Status - снимок состояния трекера для отображения
type Status struct {
	Timing    bool     `json:"timing"`
	StartedAt int64    `json:"startedAt,omitempty"`
	Elapsed   int      `json:"elapsed"`
	Log       Log      `json:"log"`
	Summary   *Summary `json:"summary,omitempty"`
	Alert     *Alert   `json:"alert,omitempty"`
}

// Option настраивает Tracker
type Option func(*Tracker)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithTickInterval задает период тика активного замера
func WithTickInterval(interval time.Duration) Option {
	return func(t *Tracker) { t.ticker = NewTicker(interval) }
}

// WithTickHandler подписывает обработчик на каждый тик (секунды с начала замера)
func WithTickHandler(fn func(elapsed int)) Option {
	return func(t *Tracker) { t.onTick = fn }
}

// Tracker фиксирует сокращения и хранит журнал (Application Layer)
type Tracker struct {
	store  storage.Store
	now    func() time.Time
	ticker *Ticker
	onTick func(elapsed int)

	mu         sync.Mutex
	log        Log
	timing     bool
	startMS    int64
	elapsed    int
	cancelTick context.CancelFunc
}

// NewTracker создает трекер с пустым журналом; для чтения сохраненного вызовите Load
func NewTracker(store storage.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		now:    time.Now,
		ticker: NewTicker(time.Second),
		log:    Log{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load читает журнал из хранилища. Поврежденный журнал считается отсутствующим.
func (t *Tracker) Load(ctx context.Context) error {
	data, ok, err := t.store.Get(ctx, storage.KeyContractionLog)
	if err != nil {
		log.Printf("[WARN] Failed to read contraction log, starting empty: %v", err)
		t.replaceLog(Log{})
		return err
	}
	if !ok {
		t.replaceLog(Log{})
		return nil
	}

	loaded, err := DecodeLog(data)
	if err != nil {
		log.Printf("[WARN] Discarding stored contraction log: %v", err)
		t.replaceLog(Log{})
		return nil
	}

	t.replaceLog(loaded)
	log.Printf("[CONTRACTION] Loaded %d contractions", len(loaded))
	return nil
}

func (t *Tracker) replaceLog(l Log) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = l
}

// Start начинает замер. Повторный вызов во время замера ничего не делает.
func (t *Tracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timing {
		return false
	}

	t.timing = true
	t.startMS = t.now().UnixMilli()
	t.elapsed = 0
	t.scheduleTickLocked()

	log.Printf("[CONTRACTION] Timing started at %d", t.startMS)
	return true
}

// scheduleTickLocked отменяет предыдущий тик и запускает новый
func (t *Tracker) scheduleTickLocked() {
	if t.cancelTick != nil {
		t.cancelTick()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancelTick = cancel
	startMS := t.startMS

	go func() {
		for range t.ticker.Tick(ctx) {
			t.mu.Lock()
			if !t.timing || t.startMS != startMS {
				t.mu.Unlock()
				return
			}
			t.elapsed = durationSeconds(t.startMS, max(t.now().UnixMilli(), t.startMS))
			elapsed := t.elapsed
			onTick := t.onTick
			t.mu.Unlock()

			if onTick != nil {
				onTick(elapsed)
			}
		}
	}()
}

func (t *Tracker) stopTickLocked() {
	if t.cancelTick != nil {
		t.cancelTick()
		t.cancelTick = nil
	}
}

// Stop завершает замер, добавляет сокращение в начало журнала и сохраняет его.
// Без активного замера это no-op: ok = false, журнал не меняется.
// Ошибка записи не фатальна: журнал в памяти уже обновлен.
func (t *Tracker) Stop(ctx context.Context) (Contraction, bool, error) {
	t.mu.Lock()
	t.stopTickLocked()

	if !t.timing {
		t.elapsed = 0
		t.mu.Unlock()
		return Contraction{}, false, nil
	}

	endMS := t.now().UnixMilli()
	if endMS < t.startMS {
		endMS = t.startMS
	}
	c, _ := New(t.startMS, endMS)

	next := make(Log, 0, len(t.log)+1)
	next = append(next, c)
	next = append(next, t.log...)
	t.log = next

	t.timing = false
	t.startMS = 0
	t.elapsed = 0
	snapshot := t.copyLogLocked()
	t.mu.Unlock()

	log.Printf("[CONTRACTION] Recorded contraction: duration=%ds total=%d", c.Duration, len(snapshot))
	return c, true, t.persist(ctx, snapshot)
}

// Toggle - контракт единственной кнопки: старт, если замер не идет, иначе стоп
func (t *Tracker) Toggle(ctx context.Context) (*Contraction, error) {
	if t.Start() {
		return nil, nil
	}
	c, ok, err := t.Stop(ctx)
	if !ok {
		return nil, err
	}
	return &c, err
}

// Reset удаляет весь журнал. Требует явного подтверждения.
func (t *Tracker) Reset(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrResetNotConfirmed
	}

	t.mu.Lock()
	t.stopTickLocked()
	t.timing = false
	t.startMS = 0
	t.elapsed = 0
	t.log = Log{}
	t.mu.Unlock()

	log.Printf("[CONTRACTION] Contraction log reset")
	return t.persist(ctx, Log{})
}

func (t *Tracker) persist(ctx context.Context, l Log) error {
	data, err := EncodeLog(l)
	if err != nil {
		return &storage.PersistError{Key: storage.KeyContractionLog, Err: err}
	}
	if err := storage.Persist(ctx, t.store, storage.KeyContractionLog, data); err != nil {
		log.Printf("[WARN] %v", err)
		return err
	}
	return nil
}

// Log возвращает копию журнала
func (t *Tracker) Log() Log {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLogLocked()
}

func (t *Tracker) copyLogLocked() Log {
	out := make(Log, len(t.log))
	copy(out, t.log)
	return out
}

// Status собирает снимок состояния вместе с производными значениями
func (t *Tracker) Status() Status {
	t.mu.Lock()
	status := Status{
		Timing:  t.timing,
		Elapsed: t.elapsed,
		Log:     t.copyLogLocked(),
	}
	if t.timing {
		status.StartedAt = t.startMS
	}
	t.mu.Unlock()

	if summary, ok := Summarize(status.Log); ok {
		status.Summary = &summary
	}
	status.Alert = DetectLaborAlert(status.Log, t.now())
	return status
}

// Close останавливает тик, не меняя журнал
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTickLocked()
}
