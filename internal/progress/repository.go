package progress

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Krimson/dadguide/internal/storage"
)

// Repository читает и пишет запись прогресса целиком
type Repository struct {
	store storage.Store
}

func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// Load возвращает сохраненный прогресс. Поврежденная запись считается
// отсутствующей, ошибка чтения возвращается как есть.
func (r *Repository) Load(ctx context.Context) (Progress, bool, error) {
	data, ok, err := r.store.Get(ctx, storage.KeyUserProgress)
	if err != nil {
		return Progress{}, false, fmt.Errorf("failed to read progress: %w", err)
	}
	if !ok {
		return Progress{}, false, nil
	}

	p, err := Decode(data)
	if err != nil {
		if errors.Is(err, ErrMalformedProgress) {
			log.Printf("[WARN] Discarding stored progress: %v", err)
			return Progress{}, false, nil
		}
		return Progress{}, false, err
	}
	return p, true, nil
}

// Save пишет запись. Ошибка записи - *storage.PersistError.
func (r *Repository) Save(ctx context.Context, p Progress) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	return storage.Persist(ctx, r.store, storage.KeyUserProgress, data)
}

func (r *Repository) Delete(ctx context.Context) error {
	if err := r.store.Delete(ctx, storage.KeyUserProgress); err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}
