package milestone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Krimson/dadguide/internal/storage"
)

var ErrMalformedMemories = errors.New("malformed milestone memories")

// Memory - запись пользователя о пройденной вехе
type Memory struct {
	ID          string    `json:"id"`
	MilestoneID string    `json:"milestoneId"`
	Note        string    `json:"note"`
	Date        time.Time `json:"date"`
	Photo       string    `json:"photo,omitempty"`
}

// NewMemory создает воспоминание. Пустая заметка означает, что
// воспоминания нет: возвращается nil.
func NewMemory(milestoneID, note, photo string, now time.Time) *Memory {
	if strings.TrimSpace(note) == "" {
		return nil
	}
	return &Memory{
		ID:          uuid.New().String(),
		MilestoneID: milestoneID,
		Note:        note,
		Date:        now.UTC(),
		Photo:       photo,
	}
}

type rawMemory struct {
	ID          string     `json:"id"`
	MilestoneID *string    `json:"milestoneId"`
	Note        *string    `json:"note"`
	Date        *time.Time `json:"date"`
	Photo       string     `json:"photo"`
}

// DecodeMemories разбирает и валидирует сохраненную коллекцию
func DecodeMemories(data string) ([]Memory, error) {
	var raw []rawMemory
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMemories, err)
	}

	memories := make([]Memory, 0, len(raw))
	for i, r := range raw {
		if r.MilestoneID == nil || *r.MilestoneID == "" || r.Note == nil || r.Date == nil {
			return nil, fmt.Errorf("%w: entry %d is missing a required field", ErrMalformedMemories, i)
		}
		id := r.ID
		if id == "" {
			// старые записи были без идентификатора
			id = uuid.New().String()
		}
		memories = append(memories, Memory{
			ID:          id,
			MilestoneID: *r.MilestoneID,
			Note:        *r.Note,
			Date:        *r.Date,
			Photo:       r.Photo,
		})
	}
	return memories, nil
}

// MemoryStore - коллекция воспоминаний только на добавление
type MemoryStore struct {
	store storage.Store

	mu       sync.RWMutex
	memories []Memory
}

func NewMemoryStore(store storage.Store) *MemoryStore {
	return &MemoryStore{store: store, memories: []Memory{}}
}

// Load читает коллекцию. Поврежденная коллекция считается пустой.
func (s *MemoryStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memories = []Memory{}
	data, ok, err := s.store.Get(ctx, storage.KeyMilestoneMemories)
	if err != nil {
		return fmt.Errorf("failed to read milestone memories: %w", err)
	}
	if !ok {
		return nil
	}

	memories, err := DecodeMemories(data)
	if err != nil {
		log.Printf("[WARN] Discarding stored milestone memories: %v", err)
		return nil
	}
	s.memories = memories
	return nil
}

// Add добавляет воспоминание. На одну веху хранится одно воспоминание,
// повторное добавление ничего не делает.
func (s *MemoryStore) Add(ctx context.Context, m Memory) (bool, error) {
	s.mu.Lock()
	for _, existing := range s.memories {
		if existing.MilestoneID == m.MilestoneID {
			s.mu.Unlock()
			return false, nil
		}
	}
	s.memories = append(s.memories, m)
	snapshot := append([]Memory{}, s.memories...)
	s.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return true, fmt.Errorf("failed to marshal milestone memories: %w", err)
	}
	return true, storage.Persist(ctx, s.store, storage.KeyMilestoneMemories, string(data))
}

// All возвращает копию коллекции
func (s *MemoryStore) All() []Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Memory{}, s.memories...)
}

// Reset очищает коллекцию и хранилище
func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.memories = []Memory{}
	s.mu.Unlock()

	if err := s.store.Delete(ctx, storage.KeyMilestoneMemories); err != nil {
		return fmt.Errorf("failed to delete milestone memories: %w", err)
	}
	return nil
}
