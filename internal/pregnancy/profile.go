package pregnancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Krimson/dadguide/internal/storage"
)

// DateLayout - формат дат профиля
const DateLayout = "2006-01-02"

// GestationDays - длительность беременности от первого дня последней менструации
const GestationDays = 280

var (
	ErrPartnerNameRequired = errors.New("partner name is required")
	ErrInvalidDate         = errors.New("invalid date")
	ErrLMPInFuture         = errors.New("last menstrual period cannot be in the future")
	ErrMalformedProfile    = errors.New("malformed user profile")
)

// EmergencyContact - контакт на случай родов
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Profile - данные, введенные при онбординге
type Profile struct {
	LMPDate          string            `json:"lmpDate"`
	DueDate          string            `json:"dueDate"`
	PartnerName      string            `json:"partnerName"`
	BabyNickname     string            `json:"babyNickname,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergencyContact,omitempty"`
}

// NewProfile строит профиль и вычисляет ПДР как LMP + 280 дней
func NewProfile(lmpDate, partnerName, babyNickname string, now time.Time) (Profile, error) {
	lmp, err := ParseDate(lmpDate, now.Location())
	if err != nil {
		return Profile{}, err
	}
	if lmp.After(now) {
		return Profile{}, ErrLMPInFuture
	}

	p := Profile{
		LMPDate:      lmpDate,
		DueDate:      DueDateFromLMP(lmp).Format(DateLayout),
		PartnerName:  strings.TrimSpace(partnerName),
		BabyNickname: strings.TrimSpace(babyNickname),
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// DueDateFromLMP прибавляет 280 календарных дней
func DueDateFromLMP(lmp time.Time) time.Time {
	return lmp.AddDate(0, 0, GestationDays)
}

// ParseDate разбирает дату формата YYYY-MM-DD в указанной зоне
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, value, err)
	}
	return t, nil
}

// Validate проверяет обязательные поля
func (p Profile) Validate() error {
	if strings.TrimSpace(p.PartnerName) == "" {
		return ErrPartnerNameRequired
	}
	if _, err := ParseDate(p.DueDate, time.UTC); err != nil {
		return err
	}
	if p.LMPDate != "" {
		if _, err := ParseDate(p.LMPDate, time.UTC); err != nil {
			return err
		}
	}
	return nil
}

// Due возвращает ПДР в зоне loc
func (p Profile) Due(loc *time.Location) (time.Time, error) {
	return ParseDate(p.DueDate, loc)
}

// WithLMP пересчитывает ПДР после изменения LMP
func (p Profile) WithLMP(lmpDate string, now time.Time) (Profile, error) {
	lmp, err := ParseDate(lmpDate, now.Location())
	if err != nil {
		return Profile{}, err
	}
	if lmp.After(now) {
		return Profile{}, ErrLMPInFuture
	}
	p.LMPDate = lmpDate
	p.DueDate = DueDateFromLMP(lmp).Format(DateLayout)
	return p, nil
}

// ProfileRepository хранит профиль под ключом userProfile
type ProfileRepository struct {
	store storage.Store
}

func NewProfileRepository(store storage.Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

// Load возвращает профиль. Невалидный профиль возвращает ErrMalformedProfile.
func (r *ProfileRepository) Load(ctx context.Context) (Profile, bool, error) {
	data, ok, err := r.store.Get(ctx, storage.KeyUserProfile)
	if err != nil {
		return Profile{}, false, fmt.Errorf("failed to read profile: %w", err)
	}
	if !ok {
		return Profile{}, false, nil
	}

	var p Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Profile{}, false, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, false, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	return p, true, nil
}

func (r *ProfileRepository) Save(ctx context.Context, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return storage.Persist(ctx, r.store, storage.KeyUserProfile, string(data))
}

func (r *ProfileRepository) Delete(ctx context.Context) error {
	if err := r.store.Delete(ctx, storage.KeyUserProfile); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
