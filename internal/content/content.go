// Package content поставляет материалы по неделям беременности.
// Источник материалов внешний: ответ либо приходит целиком, либо
// заменяется заглушкой с текстом ошибки.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/Krimson/dadguide/internal/pregnancy"
)

// FallbackTip - совет финального отсчета, если генерация недоступна
const FallbackTip = "Take a moment to relax with your partner. A calm environment is best for everyone."

var (
	ErrInvalidWeek = errors.New("week must be between 1 and 40")
	// ErrSuperseded возвращается запросу, который вытеснил Refresh
	ErrSuperseded = errors.New("content request superseded by refresh")
)

// Provider - источник материалов недели
type Provider interface {
	WeekContent(ctx context.Context, week int, profile pregnancy.Profile) (*WeekData, error)
	Refresh(ctx context.Context, week int, profile pregnancy.Profile) (*WeekData, error)
	FinalCountdownTip(ctx context.Context, daysRemaining int, profile pregnancy.Profile) string
}

type BabySize struct {
	Inches           float64 `json:"inches"`
	Grams            float64 `json:"grams"`
	ComparisonObject string  `json:"comparisonObject"`
}

type FetalSystem struct {
	Name                      string `json:"name"`
	Status                    string `json:"status"`
	FatherFriendlyExplanation string `json:"fatherFriendlyExplanation"`
	ClinicalSignificance      string `json:"clinicalSignificance"`
	WhyThisMatters            string `json:"whyThisMatters"`
}

type MaternalChange struct {
	Symptom          string `json:"symptom"`
	Timeline         string `json:"timeline"`
	FatherActionItem string `json:"fatherActionItem"`
	IsWarningSign    bool   `json:"isWarningSign"`
}

type MedicalGuidance struct {
	Topic                 string   `json:"topic"`
	SimplifiedExplanation string   `json:"simplifiedExplanation"`
	DetailedExplanation   string   `json:"detailedExplanation"`
	FatherAdvocacyScript  []string `json:"fatherAdvocacyScript"`
}

type PaternalGuidance struct {
	PaternalChanges    string   `json:"paternalChanges"`
	BondingOpportunity string   `json:"bondingOpportunity"`
	ActionableTasks    []string `json:"actionableTasks"`
}

// WeekData - руководство на неделю. Непустой Error означает заглушку.
type WeekData struct {
	Week             int               `json:"week"`
	Trimester        int               `json:"trimester"`
	BabySize         BabySize          `json:"babySize"`
	FetalSystems     []FetalSystem     `json:"fetalSystems"`
	DidYouKnowFact   string            `json:"didYouKnowFact"`
	MaternalChanges  []MaternalChange  `json:"maternalChanges"`
	MedicalGuidance  []MedicalGuidance `json:"medicalGuidance"`
	WarningSigns     []string          `json:"warningSigns"`
	PaternalGuidance PaternalGuidance  `json:"paternalGuidance"`
	DailyMessages    []string          `json:"dailyMessages,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// TrimesterForWeek - ceil(week/13)
func TrimesterForWeek(week int) int {
	return (week + 12) / 13
}

// Fallback - заглушка с сообщением об ошибке
func Fallback(week int) *WeekData {
	return &WeekData{
		Week:             week,
		Trimester:        TrimesterForWeek(week),
		BabySize:         BabySize{ComparisonObject: "..."},
		FetalSystems:     []FetalSystem{},
		MaternalChanges:  []MaternalChange{},
		MedicalGuidance:  []MedicalGuidance{},
		WarningSigns:     []string{},
		PaternalGuidance: PaternalGuidance{ActionableTasks: []string{}},
		Error:            fmt.Sprintf("We couldn't load the guide for week %d. Please check your connection and try again.", week),
	}
}

func validWeek(week int) error {
	if week < 1 || week > 40 {
		return fmt.Errorf("%w: got %d", ErrInvalidWeek, week)
	}
	return nil
}
