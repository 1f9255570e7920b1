package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Krimson/dadguide/internal/content"
	"github.com/Krimson/dadguide/internal/contraction"
	"github.com/Krimson/dadguide/internal/metrics"
	"github.com/Krimson/dadguide/internal/milestone"
	"github.com/Krimson/dadguide/internal/notify"
	"github.com/Krimson/dadguide/internal/pregnancy"
	"github.com/Krimson/dadguide/internal/progress"
	"github.com/Krimson/dadguide/internal/storage"
)

// Options настраивает Manager. Нулевые поля заменяются значениями по умолчанию.
type Options struct {
	Achievements progress.Catalog
	Milestones   milestone.Catalog
	Content      content.Provider
	Sink         notify.Sink
	Metrics      *metrics.Metrics
	Now          func() time.Time
	TickInterval time.Duration
	// OnTick получает секунды активного замера
	OnTick func(elapsed int)
}

// Manager владеет единственным состоянием приложения (Application Layer).
// Все операции сериализуются: каждая выполняется целиком до следующей.
type Manager struct {
	store      storage.Store
	profiles   *pregnancy.ProfileRepository
	progress   *progress.Service
	tracker    *contraction.Tracker
	memories   *milestone.MemoryStore
	checklist  *pregnancy.Checklist
	milestones milestone.Catalog
	content    content.Provider
	messages   *content.DailyMessages
	sink       notify.Sink
	metrics    *metrics.Metrics
	now        func() time.Time

	mu        sync.Mutex
	profile   *pregnancy.Profile
	dismissed []string
}

// NewManager собирает Manager поверх хранилища
func NewManager(store storage.Store, opts Options) (*Manager, error) {
	if opts.Achievements.Levels == nil {
		opts.Achievements = progress.DefaultCatalog()
	}
	if opts.Milestones == nil {
		opts.Milestones = milestone.DefaultCatalog()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sink == nil {
		opts.Sink = notify.LogSink{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Content == nil {
		static, err := content.NewStaticProvider()
		if err != nil {
			return nil, err
		}
		opts.Content = static
	}

	messages, err := content.LoadDailyMessages()
	if err != nil {
		return nil, err
	}

	trackerOpts := []contraction.Option{
		contraction.WithClock(opts.Now),
		contraction.WithTickInterval(opts.TickInterval),
	}
	if opts.OnTick != nil {
		trackerOpts = append(trackerOpts, contraction.WithTickHandler(opts.OnTick))
	}

	return &Manager{
		store:      store,
		profiles:   pregnancy.NewProfileRepository(store),
		progress:   progress.NewService(progress.NewEngine(opts.Achievements), progress.NewRepository(store)),
		tracker:    contraction.NewTracker(store, trackerOpts...),
		memories:   milestone.NewMemoryStore(store),
		checklist:  pregnancy.NewChecklist(store),
		milestones: opts.Milestones,
		content:    opts.Content,
		messages:   messages,
		sink:       opts.Sink,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}, nil
}

// Load читает все записи и выполняет пересчет прогресса. Ошибки чтения
// не фатальны: соответствующее состояние начинается пустым.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	profile, ok, err := m.profiles.Load(ctx)
	switch {
	case errors.Is(err, pregnancy.ErrMalformedProfile):
		// Поврежденный профиль: сбрасываем данные и возвращаемся к онбордингу
		log.Printf("[WARN] %v, resetting profile, progress and memories", err)
		m.profile = nil
		if err := m.store.Delete(ctx, storage.KeyUserProfile, storage.KeyUserProgress, storage.KeyMilestoneMemories); err != nil {
			errs = append(errs, fmt.Errorf("failed to reset corrupted profile: %w", err))
		}
	case err != nil:
		errs = append(errs, err)
	case ok:
		m.profile = &profile
	default:
		m.profile = nil
	}

	if _, err := m.progress.Load(ctx); err != nil {
		if storage.IsPersistError(err) {
			m.warning(err)
		} else {
			errs = append(errs, err)
		}
	}
	if _, ok := m.progress.Current(); m.profile != nil && !ok {
		// Профиль есть, а прогресса нет: создаем его заново
		log.Printf("[WARN] Progress record missing for onboarded profile, re-initializing")
		if _, err := m.progress.Initialize(ctx); err != nil {
			if _, err := m.warning(err); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := m.tracker.Load(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.memories.Load(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.checklist.Load(ctx); err != nil {
		errs = append(errs, err)
	}

	if current, ok := m.progress.Current(); ok {
		m.metrics.SetProgress(current.Points, current.Level)
	}

	log.Printf("[INFO] State loaded: onboarded=%v contractions=%d memories=%d",
		m.profile != nil, len(m.tracker.Log()), len(m.memories.All()))
	return errors.Join(errs...)
}

// Close останавливает таймер сокращений
func (m *Manager) Close() {
	m.tracker.Close()
}

// CompleteOnboarding сохраняет профиль и создает начальный прогресс
func (m *Manager) CompleteOnboarding(ctx context.Context, req OnboardingRequest) (*OnboardingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.profile != nil {
		return nil, ErrAlreadyOnboarded
	}

	profile, err := pregnancy.NewProfile(req.LMPDate, req.PartnerName, req.BabyNickname, m.now())
	if err != nil {
		return nil, err
	}

	var warnings []string
	if err := m.profiles.Save(ctx, profile); err != nil {
		w, err := m.warning(err)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w)
	}
	m.profile = &profile

	update, err := m.progress.Initialize(ctx)
	result, err := m.progressResult(update, true, err)
	if err != nil {
		return nil, err
	}
	if result.Warning == "" && len(warnings) > 0 {
		result.Warning = warnings[0]
	}

	log.Printf("[INFO] Onboarding completed: due=%s", profile.DueDate)
	return &OnboardingResult{Profile: profile, Progress: *result}, nil
}

// Profile возвращает текущий профиль
func (m *Manager) Profile() (pregnancy.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return pregnancy.Profile{}, ErrNotOnboarded
	}
	return *m.profile, nil
}

// UpdateProfile применяет частичное изменение профиля
func (m *Manager) UpdateProfile(ctx context.Context, upd ProfileUpdate) (pregnancy.Profile, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.profile == nil {
		return pregnancy.Profile{}, "", ErrNotOnboarded
	}

	next := *m.profile
	if upd.LMPDate != nil {
		var err error
		if next, err = next.WithLMP(*upd.LMPDate, m.now()); err != nil {
			return pregnancy.Profile{}, "", err
		}
	}
	if upd.PartnerName != nil {
		next.PartnerName = strings.TrimSpace(*upd.PartnerName)
	}
	if upd.BabyNickname != nil {
		next.BabyNickname = strings.TrimSpace(*upd.BabyNickname)
	}
	if upd.EmergencyContact != nil {
		contact := *upd.EmergencyContact
		if contact.Name == "" && contact.Phone == "" {
			next.EmergencyContact = nil
		} else {
			next.EmergencyContact = &contact
		}
	}
	if err := next.Validate(); err != nil {
		return pregnancy.Profile{}, "", err
	}

	m.profile = &next
	warning, err := m.warning(m.profiles.Save(ctx, next))
	if err != nil {
		return pregnancy.Profile{}, "", err
	}
	return next, warning, nil
}

// CurrentWeek - текущая неделя беременности
func (m *Manager) CurrentWeek() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentWeekLocked()
}

func (m *Manager) currentWeekLocked() (int, error) {
	if m.profile == nil {
		return 0, ErrNotOnboarded
	}
	now := m.now()
	due, err := m.profile.Due(now.Location())
	if err != nil {
		return 0, err
	}
	return pregnancy.CurrentWeek(due, now), nil
}

// Countdown - обратный отсчет до ПДР
func (m *Manager) Countdown() (pregnancy.Countdown, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countdownLocked()
}

func (m *Manager) countdownLocked() (pregnancy.Countdown, error) {
	if m.profile == nil {
		return pregnancy.Countdown{}, ErrNotOnboarded
	}
	now := m.now()
	due, err := m.profile.Due(now.Location())
	if err != nil {
		return pregnancy.Countdown{}, err
	}
	return pregnancy.NewCountdown(due, now), nil
}

// MarkWeekRead отмечает руководство недели прочитанным
func (m *Manager) MarkWeekRead(ctx context.Context, week int) (*ProgressResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.profile == nil {
		return nil, ErrNotOnboarded
	}
	update, changed, err := m.progress.MarkWeekRead(ctx, week)
	return m.progressResult(update, changed, err)
}

// CelebrateMilestone отмечает веху. Воспоминание сохраняется отдельно
// и не может сорвать обновление прогресса.
func (m *Manager) CelebrateMilestone(ctx context.Context, req CelebrateRequest) (*ProgressResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.profile == nil {
		return nil, ErrNotOnboarded
	}
	if _, ok := m.milestones.Find(req.MilestoneID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMilestone, req.MilestoneID)
	}

	update, changed, err := m.progress.CelebrateMilestone(ctx, req.MilestoneID)
	result, err := m.progressResult(update, changed, err)
	if err != nil || !changed {
		return result, err
	}

	if memory := milestone.NewMemory(req.MilestoneID, req.Note, req.Photo, m.now()); memory != nil {
		added, err := m.memories.Add(ctx, *memory)
		if err != nil {
			log.Printf("[WARN] Failed to save memory for %s: %v", req.MilestoneID, err)
			if storage.IsPersistError(err) {
				m.metrics.PersistFailed(storage.KeyMilestoneMemories)
			}
		}
		if added {
			result.Memory = memory
		}
	}
	return result, nil
}

// DismissMilestone откладывает празднование вехи до конца сессии
func (m *Manager) DismissMilestone(milestoneID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.milestones.Find(milestoneID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMilestone, milestoneID)
	}
	if !slices.Contains(m.dismissed, milestoneID) {
		m.dismissed = append(m.dismissed, milestoneID)
	}
	return nil
}

// DismissNotification закрывает показанное достижение и выдает следующее из очереди
func (m *Manager) DismissNotification() (*progress.Achievement, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := m.progress.NextNotification()
	if !ok {
		return nil, false
	}
	return &next, true
}

// Progress возвращает прогресс с каталогом достижений
func (m *Manager) Progress() (*ProgressView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.progress.Current()
	if !ok {
		return nil, ErrNotOnboarded
	}

	engine := m.progress.Engine()
	catalog := engine.Catalog()
	view := &ProgressView{Progress: current, Pending: m.progress.Pending()}
	for _, a := range catalog.Achievements {
		view.Achievements = append(view.Achievements, AchievementStatus{
			Achievement: a,
			Unlocked:    a.Rule.Satisfied(current),
		})
	}
	if current.Level < len(catalog.Levels) {
		view.NextLevelAt = catalog.Levels[current.Level]
	}
	return view, nil
}

// StartContraction начинает замер. false, если замер уже идет.
func (m *Manager) StartContraction() (contraction.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	started := m.tracker.Start()
	return m.tracker.Status(), started
}

// StopContraction завершает замер и проверяет правило 5-1-1
func (m *Manager) StopContraction(ctx context.Context) (*ContractionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok, err := m.tracker.Stop(ctx)
	return m.contractionResult(c, ok, err)
}

// ToggleContraction - одна кнопка: старт или стоп
func (m *Manager) ToggleContraction(ctx context.Context) (*ContractionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tracker.Start() {
		return &ContractionResult{Status: m.tracker.Status()}, nil
	}
	c, ok, err := m.tracker.Stop(ctx)
	return m.contractionResult(c, ok, err)
}

// ResetContractions очищает журнал после подтверждения
func (m *Manager) ResetContractions(ctx context.Context, confirmed bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.tracker.Reset(ctx, confirmed)
	if errors.Is(err, contraction.ErrResetNotConfirmed) {
		return "", ErrResetNotConfirmed
	}
	return m.warning(err)
}

// ContractionStatus - состояние таймера, сводка и предупреждение
func (m *Manager) ContractionStatus() contraction.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.Status()
}

// ShareContractions - текстовая сводка журнала для отправки
func (m *Manager) ShareContractions() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return contraction.ShareText(m.tracker.Log(), m.now().Location())
}

// Milestones - каталог вех
func (m *Manager) Milestones() milestone.Catalog {
	return m.milestones
}

// Timeline - хронология вех с воспоминаниями
func (m *Manager) Timeline() ([]milestone.TimelineEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.progress.Current()
	if !ok {
		return nil, ErrNotOnboarded
	}
	return m.milestones.Timeline(current.CelebratedMilestones, m.memories.All()), nil
}

// Memories - все сохраненные воспоминания
func (m *Manager) Memories() []milestone.Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.memories.All()
}

// Checklist - сумка в роддом
func (m *Manager) Checklist() []pregnancy.ChecklistItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checklist.Items()
}

// TogglePacked переключает пункт сумки
func (m *Manager) TogglePacked(ctx context.Context, itemID string) (*ChecklistResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	packed, err := m.checklist.Toggle(ctx, itemID)
	if errors.Is(err, pregnancy.ErrUnknownItem) {
		return nil, err
	}
	warning, err := m.warning(err)
	if err != nil {
		return nil, err
	}
	return &ChecklistResult{ItemID: itemID, Packed: packed, Warning: warning}, nil
}

// WeekContent возвращает руководство недели. Запрос выполняется без
// блокировки Manager, чтобы Refresh мог вытеснить идущий запрос.
func (m *Manager) WeekContent(ctx context.Context, week int, refresh bool) (*content.WeekData, error) {
	profile, err := m.Profile()
	if err != nil {
		return nil, err
	}

	var data *content.WeekData
	if refresh {
		data, err = m.content.Refresh(ctx, week, profile)
	} else {
		data, err = m.content.WeekContent(ctx, week, profile)
	}
	switch {
	case err != nil:
		m.metrics.ContentRequest("error")
	case data.Error != "":
		m.metrics.ContentRequest("fallback")
	default:
		m.metrics.ContentRequest("ok")
	}
	return data, err
}

// Dashboard собирает сводку главного экрана
func (m *Manager) Dashboard(ctx context.Context) (*Dashboard, error) {
	m.mu.Lock()
	if m.profile == nil {
		m.mu.Unlock()
		return nil, ErrNotOnboarded
	}

	week, err := m.currentWeekLocked()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	countdown, _ := m.countdownLocked()
	current, _ := m.progress.Current()
	packed, total := m.checklist.Progress()
	status := m.tracker.Status()

	d := &Dashboard{
		Profile:        *m.profile,
		Week:           week,
		Countdown:      countdown,
		Upcoming:       m.milestones.Upcoming(week, milestone.DefaultUpcoming),
		DailyMessages:  m.messages.For(week),
		Progress:       current,
		Pending:        m.progress.Pending(),
		PackedItems:    packed,
		ChecklistTotal: total,
		LaborAlert:     status.Alert,
	}
	if due, ok := m.milestones.DueForCelebration(week, current.CelebratedMilestones, m.dismissed); ok {
		d.DueMilestone = &due
	}
	profile := *m.profile
	m.mu.Unlock()

	if countdown.FinalCountdown {
		d.CountdownTip = m.content.FinalCountdownTip(ctx, countdown.DaysRemaining, profile)
	}
	return d, nil
}

// ResetAll удаляет все данные пользователя и возвращает к онбордингу
func (m *Manager) ResetAll(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrResetNotConfirmed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if err := m.tracker.Reset(ctx, true); err != nil {
		errs = append(errs, err)
	}
	if err := m.progress.Reset(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.memories.Reset(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.checklist.Reset(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.profiles.Delete(ctx); err != nil {
		errs = append(errs, err)
	}
	if purger, ok := m.store.(storage.Purger); ok {
		if err := purger.DeleteAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to purge store: %w", err))
		}
	}
	m.profile = nil
	m.dismissed = nil
	m.metrics.SetProgress(0, 0)

	log.Printf("[INFO] All user data reset")
	return errors.Join(errs...)
}

// progressResult переводит обновление в результат и публикует события
func (m *Manager) progressResult(update progress.Update, changed bool, err error) (*ProgressResult, error) {
	warning, err := m.warning(err)
	if err != nil {
		return nil, err
	}

	current, ok := m.progress.Current()
	if !ok {
		return nil, ErrNotOnboarded
	}
	result := &ProgressResult{
		Progress:     current,
		Changed:      changed,
		Unlocked:     update.Unlocked,
		Notification: update.Surfaced,
		Warning:      warning,
	}
	if result.Unlocked == nil {
		result.Unlocked = []progress.Achievement{}
	}

	for _, a := range update.Unlocked {
		m.metrics.AchievementUnlocked(a.ID)
		m.sink.Publish(notify.NewEvent(notify.EventAchievementUnlocked, a))
	}
	m.metrics.SetProgress(current.Points, current.Level)
	return result, nil
}

func (m *Manager) contractionResult(c contraction.Contraction, recorded bool, err error) (*ContractionResult, error) {
	warning, err := m.warning(err)
	if err != nil {
		return nil, err
	}

	result := &ContractionResult{
		Recorded: recorded,
		Status:   m.tracker.Status(),
		Warning:  warning,
	}
	if !recorded {
		return result, nil
	}

	result.Contraction = &c
	m.metrics.ContractionRecorded()
	m.sink.Publish(notify.NewEvent(notify.EventContractionRecorded, c))
	if result.Status.Alert != nil {
		log.Printf("[CONTRACTION] Labor alert: %s", result.Status.Alert.Message)
		m.metrics.LaborAlert()
		m.sink.Publish(notify.NewEvent(notify.EventLaborAlert, result.Status.Alert))
	}
	return result, nil
}

// warning превращает ошибку записи в предупреждение; прочие ошибки возвращает
func (m *Manager) warning(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	var pe *storage.PersistError
	if errors.As(err, &pe) {
		log.Printf("[WARN] %v", err)
		m.metrics.PersistFailed(pe.Key)
		return err.Error(), nil
	}
	return "", err
}
