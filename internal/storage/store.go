package storage

import (
	"context"
	"errors"
	"fmt"
)

// Ключи, под которыми хранятся записи целиком
const (
	KeyContractionLog    = "contractionsLog"
	KeyUserProgress      = "userProgress"
	KeyMilestoneMemories = "milestoneMemories"
	KeyUserProfile       = "userProfile"
	KeyPackedItems       = "packedItems"
)

// Store определяет key-value хранилище строковых записей (Domain Layer).
// Частичных обновлений нет: запись всегда читается и пишется целиком.
type Store interface {
	// Get возвращает значение и признак его наличия
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Purger - хранилище, умеющее удалить все записи устройства разом
type Purger interface {
	DeleteAll(ctx context.Context) error
}

// PersistError сигнализирует о неудачной записи. Ошибка не фатальна:
// состояние в памяти уже обновлено и остается источником истины.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError проверяет, является ли ошибка предупреждением о записи
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

// Persist записывает значение и заворачивает ошибку в PersistError
func Persist(ctx context.Context, store Store, key, value string) error {
	if err := store.Set(ctx, key, value); err != nil {
		return &PersistError{Key: key, Err: err}
	}
	return nil
}
