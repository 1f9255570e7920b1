package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// Границы недель беременности
const (
	MinWeek = 1
	MaxWeek = 40
)

var (
	ErrInvalidWeek        = errors.New("week must be between 1 and 40")
	ErrInvalidMilestoneID = errors.New("milestone id must not be empty")
	ErrMalformedProgress  = errors.New("malformed progress record")
)

// Progress - единственная изменяемая запись прогресса.
// Points и Level всегда производные: их пересчитывает Engine.
type Progress struct {
	ReadWeeks            []int    `json:"readWeeks"`
	CelebratedMilestones []string `json:"celebratedMilestones"`
	Points               int      `json:"points"`
	Level                int      `json:"level"`
}

// Snapshot - то, что видят правила достижений
type Snapshot interface {
	HasReadWeek(week int) bool
	ReadWeekCount() int
	HasCelebrated(milestoneID string) bool
	CelebratedCount() int
}

func (p Progress) HasReadWeek(week int) bool {
	return slices.Contains(p.ReadWeeks, week)
}

func (p Progress) ReadWeekCount() int {
	return len(p.ReadWeeks)
}

func (p Progress) HasCelebrated(milestoneID string) bool {
	return slices.Contains(p.CelebratedMilestones, milestoneID)
}

func (p Progress) CelebratedCount() int {
	return len(p.CelebratedMilestones)
}

// Clone возвращает глубокую копию
func (p Progress) Clone() Progress {
	return Progress{
		ReadWeeks:            append([]int{}, p.ReadWeeks...),
		CelebratedMilestones: append([]string{}, p.CelebratedMilestones...),
		Points:               p.Points,
		Level:                p.Level,
	}
}

// ValidWeek проверяет номер недели
func ValidWeek(week int) error {
	if week < MinWeek || week > MaxWeek {
		return fmt.Errorf("%w: got %d", ErrInvalidWeek, week)
	}
	return nil
}

// rawProgress отличает отсутствующие поля от пустых
type rawProgress struct {
	ReadWeeks            *[]int    `json:"readWeeks"`
	CelebratedMilestones *[]string `json:"celebratedMilestones"`
	Points               *int      `json:"points"`
	Level                *int      `json:"level"`
}

// Decode разбирает и валидирует сохраненную запись. Частичного
// восстановления нет: любая ошибка означает, что записи нет.
func Decode(data string) (Progress, error) {
	var raw rawProgress
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return Progress{}, fmt.Errorf("%w: %v", ErrMalformedProgress, err)
	}
	if raw.ReadWeeks == nil || raw.CelebratedMilestones == nil {
		return Progress{}, fmt.Errorf("%w: missing required field", ErrMalformedProgress)
	}

	p := Progress{
		ReadWeeks:            *raw.ReadWeeks,
		CelebratedMilestones: *raw.CelebratedMilestones,
	}
	if raw.Points != nil {
		p.Points = *raw.Points
	}
	if raw.Level != nil {
		p.Level = *raw.Level
	}

	seenWeeks := make(map[int]bool, len(p.ReadWeeks))
	for _, week := range p.ReadWeeks {
		if err := ValidWeek(week); err != nil {
			return Progress{}, fmt.Errorf("%w: %v", ErrMalformedProgress, err)
		}
		if seenWeeks[week] {
			return Progress{}, fmt.Errorf("%w: duplicate week %d", ErrMalformedProgress, week)
		}
		seenWeeks[week] = true
	}

	seenMilestones := make(map[string]bool, len(p.CelebratedMilestones))
	for _, id := range p.CelebratedMilestones {
		if id == "" {
			return Progress{}, fmt.Errorf("%w: empty milestone id", ErrMalformedProgress)
		}
		if seenMilestones[id] {
			return Progress{}, fmt.Errorf("%w: duplicate milestone %s", ErrMalformedProgress, id)
		}
		seenMilestones[id] = true
	}

	return p, nil
}

// Encode сериализует запись целиком
func Encode(p Progress) (string, error) {
	p = p.Clone()
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal progress: %w", err)
	}
	return string(data), nil
}
