package app

import (
	"errors"

	"github.com/Krimson/dadguide/internal/contraction"
	"github.com/Krimson/dadguide/internal/milestone"
	"github.com/Krimson/dadguide/internal/pregnancy"
	"github.com/Krimson/dadguide/internal/progress"
)

var (
	ErrNotOnboarded      = errors.New("onboarding is not completed")
	ErrAlreadyOnboarded  = errors.New("onboarding is already completed")
	ErrUnknownMilestone  = errors.New("unknown milestone")
	ErrResetNotConfirmed = errors.New("reset requires confirmation")
)

// OnboardingRequest - данные формы онбординга
type OnboardingRequest struct {
	LMPDate      string `json:"lmpDate"`
	PartnerName  string `json:"partnerName"`
	BabyNickname string `json:"babyNickname,omitempty"`
}

// ProfileUpdate - частичное изменение профиля. nil означает "без изменений".
type ProfileUpdate struct {
	LMPDate          *string                     `json:"lmpDate,omitempty"`
	PartnerName      *string                     `json:"partnerName,omitempty"`
	BabyNickname     *string                     `json:"babyNickname,omitempty"`
	EmergencyContact *pregnancy.EmergencyContact `json:"emergencyContact,omitempty"`
}

// CelebrateRequest - отметка вехи с необязательным воспоминанием
type CelebrateRequest struct {
	MilestoneID string `json:"milestoneId"`
	Note        string `json:"note,omitempty"`
	Photo       string `json:"photo,omitempty"`
}

// ProgressResult - итог изменения прогресса
type ProgressResult struct {
	Progress progress.Progress      `json:"progress"`
	Changed  bool                   `json:"changed"`
	Unlocked []progress.Achievement `json:"unlocked"`
	// Notification - единственное достижение, показываемое по итогам операции
	Notification *progress.Achievement `json:"notification,omitempty"`
	Memory       *milestone.Memory     `json:"memory,omitempty"`
	Warning      string                `json:"warning,omitempty"`
}

// OnboardingResult - профиль и начальный прогресс
type OnboardingResult struct {
	Profile  pregnancy.Profile `json:"profile"`
	Progress ProgressResult    `json:"progress"`
}

// AchievementStatus - достижение и признак его открытия
type AchievementStatus struct {
	progress.Achievement
	Unlocked bool `json:"unlocked"`
}

// ProgressView - прогресс с каталогом достижений
type ProgressView struct {
	Progress     progress.Progress   `json:"progress"`
	Achievements []AchievementStatus `json:"achievements"`
	// NextLevelAt - порог следующего уровня, 0 на максимальном уровне
	NextLevelAt int `json:"nextLevelAt"`
	Pending     int `json:"pendingNotifications"`
}

// ContractionResult - итог остановки замера
type ContractionResult struct {
	Contraction *contraction.Contraction `json:"contraction,omitempty"`
	Recorded    bool                     `json:"recorded"`
	Status      contraction.Status       `json:"status"`
	Warning     string                   `json:"warning,omitempty"`
}

// ChecklistResult - итог переключения пункта
type ChecklistResult struct {
	ItemID  string `json:"itemId"`
	Packed  bool   `json:"packed"`
	Warning string `json:"warning,omitempty"`
}

// Dashboard - сводка главного экрана
type Dashboard struct {
	Profile        pregnancy.Profile     `json:"profile"`
	Week           int                   `json:"week"`
	Countdown      pregnancy.Countdown   `json:"countdown"`
	CountdownTip   string                `json:"countdownTip,omitempty"`
	Upcoming       []milestone.Milestone `json:"upcomingMilestones"`
	DueMilestone   *milestone.Milestone  `json:"dueMilestone,omitempty"`
	DailyMessages  []string              `json:"dailyMessages"`
	Progress       progress.Progress     `json:"progress"`
	Pending        int                   `json:"pendingNotifications"`
	PackedItems    int                   `json:"packedItems"`
	ChecklistTotal int                   `json:"checklistTotal"`
	LaborAlert     *contraction.Alert    `json:"laborAlert,omitempty"`
}
