package milestone

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
)

//go:embed milestones.json
var defaultCatalogJSON []byte

// Category - категория вехи
type Category string

const (
	CategoryMedical     Category = "Medical"
	CategoryPreparation Category = "Preparation"
	CategorySocial      Category = "Social"
)

// DefaultUpcoming - сколько ближайших вех показывает трекер
const DefaultUpcoming = 4

var ErrInvalidCatalog = errors.New("invalid milestone catalog")

// Milestone - статическое описание вехи беременности
type Milestone struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	PreparationTips    []string `json:"preparationTips"`
	Week               int      `json:"week"`
	Category           Category `json:"category"`
	FatherSignificance string   `json:"fatherSignificance"`
	EmotionalGuidance  string   `json:"emotionalGuidance"`
	CelebrationPrompt  string   `json:"celebrationPrompt"`
}

// Catalog - список вех, отсортированный по неделе
type Catalog []Milestone

// ParseCatalog разбирает JSON каталога
func ParseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse milestone catalog: %w", err)
	}

	seen := make(map[string]bool, len(catalog))
	for _, m := range catalog {
		if m.ID == "" || m.Name == "" {
			return nil, fmt.Errorf("%w: milestone without id or name", ErrInvalidCatalog)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("%w: duplicate milestone %s", ErrInvalidCatalog, m.ID)
		}
		if m.Week < 1 || m.Week > 40 {
			return nil, fmt.Errorf("%w: milestone %s has week %d", ErrInvalidCatalog, m.ID, m.Week)
		}
		switch m.Category {
		case CategoryMedical, CategoryPreparation, CategorySocial:
		default:
			return nil, fmt.Errorf("%w: milestone %s has category %q", ErrInvalidCatalog, m.ID, m.Category)
		}
		seen[m.ID] = true
	}

	sort.SliceStable(catalog, func(i, j int) bool { return catalog[i].Week < catalog[j].Week })
	return catalog, nil
}

// DefaultCatalog возвращает встроенный каталог
func DefaultCatalog() Catalog {
	catalog, err := ParseCatalog(defaultCatalogJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded milestone catalog is broken: %v", err))
	}
	return catalog
}

func (c Catalog) Find(id string) (Milestone, bool) {
	for _, m := range c {
		if m.ID == id {
			return m, true
		}
	}
	return Milestone{}, false
}

// Upcoming возвращает первые n вех с неделей >= currentWeek
func (c Catalog) Upcoming(currentWeek, n int) []Milestone {
	out := []Milestone{}
	for _, m := range c {
		if len(out) == n {
			break
		}
		if m.Week >= currentWeek {
			out = append(out, m)
		}
	}
	return out
}

// DueForCelebration - веха текущей недели, которую еще не отпраздновали
// и не отклонили в этой сессии
func (c Catalog) DueForCelebration(currentWeek int, celebrated, dismissed []string) (Milestone, bool) {
	for _, m := range c {
		if m.Week != currentWeek {
			continue
		}
		if slices.Contains(celebrated, m.ID) || slices.Contains(dismissed, m.ID) {
			continue
		}
		return m, true
	}
	return Milestone{}, false
}

// TimelineEntry - веха с отметкой о праздновании и воспоминанием
type TimelineEntry struct {
	Milestone  Milestone `json:"milestone"`
	Celebrated bool      `json:"celebrated"`
	Memory     *Memory   `json:"memory,omitempty"`
}

// Timeline собирает хронологию вех
func (c Catalog) Timeline(celebrated []string, memories []Memory) []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(c))
	for _, m := range c {
		entry := TimelineEntry{
			Milestone:  m,
			Celebrated: slices.Contains(celebrated, m.ID),
		}
		for i := range memories {
			if memories[i].MilestoneID == m.ID {
				mem := memories[i]
				entry.Memory = &mem
				break
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
