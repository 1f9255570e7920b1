package simulate

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"
)

var ErrUnknownPattern = errors.New("unknown contraction pattern")

// Pattern описывает ритм схваток: интервал между началами и длительность
type Pattern struct {
	Name        string
	MinInterval time.Duration
	MaxInterval time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration
}

// Встроенные ритмы. active и transition укладываются в правило 5-1-1.
var Patterns = map[string]Pattern{
	"early": {
		Name:        "early",
		MinInterval: 8 * time.Minute,
		MaxInterval: 15 * time.Minute,
		MinDuration: 30 * time.Second,
		MaxDuration: 45 * time.Second,
	},
	"active": {
		Name:        "active",
		MinInterval: 3 * time.Minute,
		MaxInterval: 4*time.Minute + 30*time.Second,
		MinDuration: 60 * time.Second,
		MaxDuration: 80 * time.Second,
	},
	"transition": {
		Name:        "transition",
		MinInterval: 2 * time.Minute,
		MaxInterval: 3 * time.Minute,
		MinDuration: 70 * time.Second,
		MaxDuration: 90 * time.Second,
	},
}

// PatternNames возвращает имена встроенных ритмов по алфавиту
func PatternNames() []string {
	names := make([]string, 0, len(Patterns))
	for name := range Patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup находит ритм по имени
func Lookup(name string) (Pattern, error) {
	p, ok := Patterns[name]
	if !ok {
		return Pattern{}, fmt.Errorf("%w %q", ErrUnknownPattern, name)
	}
	return p, nil
}

// Validate проверяет, что границы согласованы
func (p Pattern) Validate() error {
	if p.MinDuration <= 0 || p.MaxDuration < p.MinDuration {
		return fmt.Errorf("invalid duration range %v..%v", p.MinDuration, p.MaxDuration)
	}
	if p.MinInterval <= p.MaxDuration || p.MaxInterval < p.MinInterval {
		return fmt.Errorf("invalid interval range %v..%v", p.MinInterval, p.MaxInterval)
	}
	return nil
}

// Sample - одна схватка: длительность и пауза до начала следующей
type Sample struct {
	Duration time.Duration
	Rest     time.Duration
}

// Interval - время от начала этой схватки до начала следующей
func (s Sample) Interval() time.Duration {
	return s.Duration + s.Rest
}

// Generator выдает схватки заданного ритма. Значения округлены до секунд.
type Generator struct {
	mu      sync.Mutex
	rand    *rand.Rand
	pattern Pattern
}

func NewGenerator(p Pattern, seed int64) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		rand:    rand.New(rand.NewSource(seed)),
		pattern: p,
	}, nil
}

// Next возвращает следующую схватку
func (g *Generator) Next() Sample {
	g.mu.Lock()
	defer g.mu.Unlock()

	duration := g.between(g.pattern.MinDuration, g.pattern.MaxDuration)
	interval := g.between(g.pattern.MinInterval, g.pattern.MaxInterval)
	return Sample{Duration: duration, Rest: interval - duration}
}

// Samples возвращает n схваток подряд
func (g *Generator) Samples(n int) []Sample {
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.Next())
	}
	return out
}

func (g *Generator) between(lo, hi time.Duration) time.Duration {
	loSec, hiSec := int64(lo/time.Second), int64(hi/time.Second)
	return time.Duration(loSec+g.rand.Int63n(hiSec-loSec+1)) * time.Second
}
