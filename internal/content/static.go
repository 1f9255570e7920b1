package content

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/Krimson/dadguide/internal/pregnancy"
)

//go:embed daily_messages.json
var dailyMessagesJSON []byte

// fallbackMessages для недель без материалов (1-2)
var fallbackMessages = []string{
	"I'm growing bigger every day, Dad!",
	"Can't wait to meet you!",
	"Thanks for being there for Mom.",
}

// DailyMessages - сообщения "от малыша" по неделям
type DailyMessages struct {
	byWeek map[int][]string
}

// LoadDailyMessages разбирает встроенный набор сообщений
func LoadDailyMessages() (*DailyMessages, error) {
	var weeks []struct {
		Week     int      `json:"week"`
		Messages []string `json:"daily_messages"`
	}
	if err := json.Unmarshal(dailyMessagesJSON, &weeks); err != nil {
		return nil, fmt.Errorf("failed to parse daily messages: %w", err)
	}

	d := &DailyMessages{byWeek: make(map[int][]string, len(weeks))}
	for _, w := range weeks {
		d.byWeek[w.Week] = w.Messages
	}
	return d, nil
}

// For возвращает сообщения недели или общие сообщения
func (d *DailyMessages) For(week int) []string {
	if messages, ok := d.byWeek[week]; ok && len(messages) > 0 {
		return append([]string{}, messages...)
	}
	return append([]string{}, fallbackMessages...)
}

// StaticProvider работает без сети: только встроенные материалы
type StaticProvider struct {
	messages *DailyMessages
}

func NewStaticProvider() (*StaticProvider, error) {
	messages, err := LoadDailyMessages()
	if err != nil {
		return nil, err
	}
	return &StaticProvider{messages: messages}, nil
}

func (p *StaticProvider) WeekContent(ctx context.Context, week int, profile pregnancy.Profile) (*WeekData, error) {
	if err := validWeek(week); err != nil {
		return nil, err
	}
	return &WeekData{
		Week:             week,
		Trimester:        TrimesterForWeek(week),
		FetalSystems:     []FetalSystem{},
		MaternalChanges:  []MaternalChange{},
		MedicalGuidance:  []MedicalGuidance{},
		WarningSigns:     []string{},
		PaternalGuidance: PaternalGuidance{ActionableTasks: []string{}},
		DailyMessages:    p.messages.For(week),
	}, nil
}

func (p *StaticProvider) Refresh(ctx context.Context, week int, profile pregnancy.Profile) (*WeekData, error) {
	return p.WeekContent(ctx, week, profile)
}

func (p *StaticProvider) FinalCountdownTip(ctx context.Context, daysRemaining int, profile pregnancy.Profile) string {
	return FallbackTip
}
