package progress

import (
	"context"
	"log"
	"sync"
)

// Service владеет текущим прогрессом: применяет изменения через Engine,
// сохраняет запись и выдает уведомления по одному за обновление.
type Service struct {
	engine *Engine
	repo   *Repository
	queue  *Queue

	mu      sync.Mutex
	current *Progress
}

func NewService(engine *Engine, repo *Repository) *Service {
	return &Service{
		engine: engine,
		repo:   repo,
		queue:  NewQueue(),
	}
}

func (s *Service) Engine() *Engine {
	return s.engine
}

// Load читает прогресс и выполняет Resync. Запись сохраняется,
// только если очки или уровень изменились.
func (s *Service) Load(ctx context.Context) (bool, error) {
	stored, ok, err := s.repo.Load(ctx)
	if err != nil {
		s.setCurrent(nil)
		return false, err
	}
	if !ok {
		s.setCurrent(nil)
		return false, nil
	}

	synced, changed := s.Resync(stored)
	s.setCurrent(&synced)

	if changed {
		log.Printf("[PROGRESS] Resynced points %d -> %d, level %d -> %d",
			stored.Points, synced.Points, stored.Level, synced.Level)
		if err := s.repo.Save(ctx, synced); err != nil {
			log.Printf("[WARN] %v", err)
			return true, err
		}
	}
	return true, nil
}

// Resync пересчитывает производные поля по текущему каталогу
func (s *Service) Resync(p Progress) (Progress, bool) {
	synced := s.engine.Recompute(p)
	return synced, synced.Points != p.Points || synced.Level != p.Level
}

// Initialize создает начальный прогресс. Все выполненные на старте
// достижения считаются только что открытыми.
func (s *Service) Initialize(ctx context.Context) (Update, error) {
	initial := s.engine.InitializeProgress()
	update := Update{
		Old:      Progress{ReadWeeks: []int{}, CelebratedMilestones: []string{}},
		New:      initial,
		Unlocked: s.engine.Unlocked(initial),
	}

	s.mu.Lock()
	s.current = &initial
	s.mu.Unlock()

	return s.finish(ctx, update)
}

// Current возвращает копию текущего прогресса
func (s *Service) Current() (Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Progress{}, false
	}
	return s.current.Clone(), true
}

// ApplyUpdate применяет дельту. Без текущего прогресса ничего не делает,
// недопустимая дельта отклоняется без записи.
func (s *Service) ApplyUpdate(ctx context.Context, delta Delta) (Update, bool, error) {
	current, ok := s.Current()
	if !ok {
		log.Printf("[WARN] Progress update ignored: progress is not initialized")
		return Update{}, false, nil
	}
	update, err := s.engine.ApplyUpdate(current, delta)
	if err != nil {
		return Update{}, false, err
	}
	s.store(update.New)
	update, err = s.finish(ctx, update)
	return update, true, err
}

// MarkWeekRead отмечает неделю прочитанной
func (s *Service) MarkWeekRead(ctx context.Context, week int) (Update, bool, error) {
	if err := ValidWeek(week); err != nil {
		return Update{}, false, err
	}
	current, ok := s.Current()
	if !ok {
		log.Printf("[WARN] Week %d not marked: progress is not initialized", week)
		return Update{}, false, nil
	}
	update, changed, err := s.engine.MarkWeekRead(current, week)
	if err != nil || !changed {
		return update, false, err
	}
	s.store(update.New)
	log.Printf("[PROGRESS] Week %d read, points=%d level=%d", week, update.New.Points, update.New.Level)
	update, err = s.finish(ctx, update)
	return update, true, err
}

// CelebrateMilestone отмечает веху отпразднованной
func (s *Service) CelebrateMilestone(ctx context.Context, milestoneID string) (Update, bool, error) {
	if milestoneID == "" {
		return Update{}, false, ErrInvalidMilestoneID
	}
	current, ok := s.Current()
	if !ok {
		log.Printf("[WARN] Milestone %s not celebrated: progress is not initialized", milestoneID)
		return Update{}, false, nil
	}
	update, changed, err := s.engine.CelebrateMilestone(current, milestoneID)
	if err != nil || !changed {
		return update, false, err
	}
	s.store(update.New)
	log.Printf("[PROGRESS] Milestone %s celebrated, points=%d level=%d", milestoneID, update.New.Points, update.New.Level)
	update, err = s.finish(ctx, update)
	return update, true, err
}

// NextNotification выдает следующее ожидающее достижение
func (s *Service) NextNotification() (Achievement, bool) {
	return s.queue.Next()
}

// Pending - число ожидающих уведомлений
func (s *Service) Pending() int {
	return s.queue.Len()
}

// Reset удаляет прогресс из памяти и хранилища
func (s *Service) Reset(ctx context.Context) error {
	s.setCurrent(nil)
	s.queue.Clear()
	return s.repo.Delete(ctx)
}

func (s *Service) setCurrent(p *Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
}

func (s *Service) store(p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &p
}

// finish ставит открытые достижения в очередь, выдает одно и сохраняет запись
func (s *Service) finish(ctx context.Context, update Update) (Update, error) {
	for _, a := range update.Unlocked {
		log.Printf("[PROGRESS] Achievement unlocked: %s (+%d)", a.ID, a.Points)
	}
	s.queue.Push(update.Unlocked...)
	if next, ok := s.queue.Next(); ok {
		update.Surfaced = &next
	}

	if err := s.repo.Save(ctx, update.New); err != nil {
		log.Printf("[WARN] %v", err)
		return update, err
	}
	return update, nil
}
