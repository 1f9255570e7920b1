package progress

import (
	"fmt"
)

// Rule - предикат достижения над снимком прогресса
type Rule interface {
	Satisfied(s Snapshot) bool
}

// Виды правил в каталоге
const (
	RuleAlways                  = "always"
	RuleMinWeeksRead            = "min_weeks_read"
	RuleWeeksReadAll            = "weeks_read_all"
	RuleWeekRead                = "week_read"
	RuleMilestoneCelebrated     = "milestone_celebrated"
	RuleMinMilestonesCelebrated = "min_milestones_celebrated"
)

// Always выполняется всегда, в том числе для пустого прогресса
type Always struct{}

func (Always) Satisfied(Snapshot) bool { return true }

type MinWeeksRead struct {
	Count int
}

func (r MinWeeksRead) Satisfied(s Snapshot) bool {
	return s.ReadWeekCount() >= r.Count
}

// WeeksReadAll требует прочитать каждую неделю диапазона [From, To]
type WeeksReadAll struct {
	From, To int
}

func (r WeeksReadAll) Satisfied(s Snapshot) bool {
	for week := r.From; week <= r.To; week++ {
		if !s.HasReadWeek(week) {
			return false
		}
	}
	return true
}

type WeekRead struct {
	Week int
}

func (r WeekRead) Satisfied(s Snapshot) bool {
	return s.HasReadWeek(r.Week)
}

type MilestoneCelebrated struct {
	MilestoneID string
}

func (r MilestoneCelebrated) Satisfied(s Snapshot) bool {
	return s.HasCelebrated(r.MilestoneID)
}

type MinMilestonesCelebrated struct {
	Count int
}

func (r MinMilestonesCelebrated) Satisfied(s Snapshot) bool {
	return s.CelebratedCount() >= r.Count
}

// RuleSpec - описание правила в каталоге
type RuleSpec struct {
	Kind      string `yaml:"kind" json:"kind"`
	Count     int    `yaml:"count,omitempty" json:"count,omitempty"`
	Week      int    `yaml:"week,omitempty" json:"week,omitempty"`
	FromWeek  int    `yaml:"from_week,omitempty" json:"fromWeek,omitempty"`
	ToWeek    int    `yaml:"to_week,omitempty" json:"toWeek,omitempty"`
	Milestone string `yaml:"milestone,omitempty" json:"milestone,omitempty"`
}

// Build превращает описание в исполняемое правило
func (s RuleSpec) Build() (Rule, error) {
	switch s.Kind {
	case RuleAlways:
		return Always{}, nil
	case RuleMinWeeksRead:
		if s.Count < 0 {
			return nil, fmt.Errorf("rule %s: count must not be negative", s.Kind)
		}
		return MinWeeksRead{Count: s.Count}, nil
	case RuleWeeksReadAll:
		if ValidWeek(s.FromWeek) != nil || ValidWeek(s.ToWeek) != nil || s.FromWeek > s.ToWeek {
			return nil, fmt.Errorf("rule %s: invalid week range %d..%d", s.Kind, s.FromWeek, s.ToWeek)
		}
		return WeeksReadAll{From: s.FromWeek, To: s.ToWeek}, nil
	case RuleWeekRead:
		if err := ValidWeek(s.Week); err != nil {
			return nil, fmt.Errorf("rule %s: %w", s.Kind, err)
		}
		return WeekRead{Week: s.Week}, nil
	case RuleMilestoneCelebrated:
		if s.Milestone == "" {
			return nil, fmt.Errorf("rule %s: %w", s.Kind, ErrInvalidMilestoneID)
		}
		return MilestoneCelebrated{MilestoneID: s.Milestone}, nil
	case RuleMinMilestonesCelebrated:
		if s.Count < 0 {
			return nil, fmt.Errorf("rule %s: count must not be negative", s.Kind)
		}
		return MinMilestonesCelebrated{Count: s.Count}, nil
	default:
		return nil, fmt.Errorf("unknown rule kind %q", s.Kind)
	}
}
