package progress

import (
	"slices"
)

// Delta - частичное изменение прогресса. nil означает "без изменений".
// Множества только растут: значения дельты объединяются с текущими.
type Delta struct {
	ReadWeeks            []int
	CelebratedMilestones []string
}

// Update - результат применения дельты
type Update struct {
	Old      Progress      `json:"old"`
	New      Progress      `json:"new"`
	Unlocked []Achievement `json:"unlocked"`
	// Surfaced - достижение, показанное по итогам обновления
	Surfaced *Achievement `json:"surfaced,omitempty"`
}

// Engine вычисляет очки, уровни и новые достижения. Без состояния.
type Engine struct {
	catalog Catalog
}

func NewEngine(catalog Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog возвращает каталог движка
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// InitializeProgress создает начальный прогресс с пересчитанными очками
func (e *Engine) InitializeProgress() Progress {
	return e.Recompute(Progress{
		ReadWeeks:            []int{},
		CelebratedMilestones: []string{},
	})
}

// RecomputePoints - сумма очков всех достижений, чьи правила выполнены
func (e *Engine) RecomputePoints(s Snapshot) int {
	total := 0
	for _, a := range e.catalog.Achievements {
		if a.Rule.Satisfied(s) {
			total += a.Points
		}
	}
	return total
}

// RecomputeLevel возвращает уровень для количества очков
func (e *Engine) RecomputeLevel(points int) int {
	return LevelFor(points, e.catalog.Levels)
}

// LevelFor - 1-based индекс наибольшего порога <= points, минимум 1
func LevelFor(points int, thresholds []int) int {
	level := 1
	for i, threshold := range thresholds {
		if points >= threshold {
			level = i + 1
		}
	}
	return level
}

// Recompute выставляет производные поля
func (e *Engine) Recompute(p Progress) Progress {
	p = p.Clone()
	p.Points = e.RecomputePoints(p)
	p.Level = e.RecomputeLevel(p.Points)
	return p
}

// Unlocked возвращает выполненные достижения в порядке каталога
func (e *Engine) Unlocked(s Snapshot) []Achievement {
	var out []Achievement
	for _, a := range e.catalog.Achievements {
		if a.Rule.Satisfied(s) {
			out = append(out, a)
		}
	}
	return out
}

// DetectNewlyUnlocked - достижения, выполненные в newer, но не в older
func (e *Engine) DetectNewlyUnlocked(older, newer Snapshot) []Achievement {
	var out []Achievement
	for _, a := range e.catalog.Achievements {
		if !a.Rule.Satisfied(older) && a.Rule.Satisfied(newer) {
			out = append(out, a)
		}
	}
	return out
}

// ApplyUpdate объединяет дельту с текущим прогрессом и пересчитывает его.
// Дельта проверяется по тем же правилам, что и сохраненная запись.
func (e *Engine) ApplyUpdate(current Progress, delta Delta) (Update, error) {
	if err := delta.Validate(); err != nil {
		return Update{}, err
	}

	old := current.Clone()
	next := current.Clone()

	if delta.ReadWeeks != nil {
		next.ReadWeeks = unionInts(next.ReadWeeks, delta.ReadWeeks)
	}
	if delta.CelebratedMilestones != nil {
		next.CelebratedMilestones = unionStrings(next.CelebratedMilestones, delta.CelebratedMilestones)
	}
	next = e.Recompute(next)

	return Update{
		Old:      old,
		New:      next,
		Unlocked: e.DetectNewlyUnlocked(old, next),
	}, nil
}

// Validate проверяет недели и идентификаторы вех дельты
func (d Delta) Validate() error {
	for _, week := range d.ReadWeeks {
		if err := ValidWeek(week); err != nil {
			return err
		}
	}
	for _, id := range d.CelebratedMilestones {
		if id == "" {
			return ErrInvalidMilestoneID
		}
	}
	return nil
}

// MarkWeekRead отмечает неделю прочитанной. false, если уже отмечена.
func (e *Engine) MarkWeekRead(current Progress, week int) (Update, bool, error) {
	if err := ValidWeek(week); err != nil {
		return Update{}, false, err
	}
	if current.HasReadWeek(week) {
		return Update{Old: current.Clone(), New: current.Clone()}, false, nil
	}
	update, err := e.ApplyUpdate(current, Delta{ReadWeeks: []int{week}})
	if err != nil {
		return Update{}, false, err
	}
	return update, true, nil
}

// CelebrateMilestone отмечает веху. false, если уже отмечена.
func (e *Engine) CelebrateMilestone(current Progress, milestoneID string) (Update, bool, error) {
	if milestoneID == "" {
		return Update{}, false, ErrInvalidMilestoneID
	}
	if current.HasCelebrated(milestoneID) {
		return Update{Old: current.Clone(), New: current.Clone()}, false, nil
	}
	update, err := e.ApplyUpdate(current, Delta{CelebratedMilestones: []string{milestoneID}})
	if err != nil {
		return Update{}, false, err
	}
	return update, true, nil
}

func unionInts(base, extra []int) []int {
	out := append([]int{}, base...)
	for _, v := range extra {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func unionStrings(base, extra []string) []string {
	out := append([]string{}, base...)
	for _, v := range extra {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
