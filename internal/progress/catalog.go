package progress

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var ErrInvalidCatalog = errors.New("invalid achievement catalog")

// Achievement - статическое определение достижения
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Points      int    `json:"points"`
	Rule        Rule   `json:"-"`
}

// Catalog - упорядоченный каталог достижений и таблица уровней
type Catalog struct {
	Achievements []Achievement
	Levels       []int
}

type catalogFile struct {
	Levels       []int `yaml:"levels"`
	Achievements []struct {
		ID          string   `yaml:"id"`
		Title       string   `yaml:"title"`
		Description string   `yaml:"description"`
		Icon        string   `yaml:"icon"`
		Points      int      `yaml:"points"`
		Rule        RuleSpec `yaml:"rule"`
	} `yaml:"achievements"`
}

// ParseCatalog разбирает YAML каталога и проверяет его целостность
func ParseCatalog(data []byte) (Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := validateLevels(file.Levels); err != nil {
		return Catalog{}, err
	}

	catalog := Catalog{Levels: file.Levels}
	seen := make(map[string]bool, len(file.Achievements))
	for _, entry := range file.Achievements {
		if entry.ID == "" || entry.Title == "" {
			return Catalog{}, fmt.Errorf("%w: achievement without id or title", ErrInvalidCatalog)
		}
		if seen[entry.ID] {
			return Catalog{}, fmt.Errorf("%w: duplicate achievement %s", ErrInvalidCatalog, entry.ID)
		}
		if entry.Points < 0 {
			return Catalog{}, fmt.Errorf("%w: negative points for %s", ErrInvalidCatalog, entry.ID)
		}
		seen[entry.ID] = true

		rule, err := entry.Rule.Build()
		if err != nil {
			return Catalog{}, fmt.Errorf("%w: achievement %s: %v", ErrInvalidCatalog, entry.ID, err)
		}
		catalog.Achievements = append(catalog.Achievements, Achievement{
			ID:          entry.ID,
			Title:       entry.Title,
			Description: entry.Description,
			Icon:        entry.Icon,
			Points:      entry.Points,
			Rule:        rule,
		})
	}

	return catalog, nil
}

// LoadCatalogFile читает каталог с диска
func LoadCatalogFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog возвращает встроенный каталог
func DefaultCatalog() Catalog {
	catalog, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is broken: %v", err))
	}
	return catalog
}

// Find ищет достижение по идентификатору
func (c Catalog) Find(id string) (Achievement, bool) {
	for _, a := range c.Achievements {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

func validateLevels(levels []int) error {
	if len(levels) == 0 {
		return fmt.Errorf("%w: empty level table", ErrInvalidCatalog)
	}
	if levels[0] != 0 {
		return fmt.Errorf("%w: first level threshold must be 0", ErrInvalidCatalog)
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] <= levels[i-1] {
			return fmt.Errorf("%w: level thresholds must be strictly ascending", ErrInvalidCatalog)
		}
	}
	return nil
}
