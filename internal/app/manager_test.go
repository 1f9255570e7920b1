package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/Krimson/dadguide/internal/notify"
	"github.com/Krimson/dadguide/internal/storage"
)

// fakeClock - управляемый источник времени
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	manager  *Manager
	store    *storage.MemoryStore
	clock    *fakeClock
	recorder *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    storage.NewMemoryStore(),
		clock:    &fakeClock{now: time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)},
		recorder: &notify.Recorder{},
	}
	m, err := NewManager(f.store, Options{
		Sink:         f.recorder,
		Now:          f.clock.Now,
		TickInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(m.Close)
	f.manager = m
	return f
}

func (f *fixture) onboard(t *testing.T) {
	t.Helper()
	_, err := f.manager.CompleteOnboarding(context.Background(), OnboardingRequest{
		LMPDate:     "2026-01-01",
		PartnerName: "Anna",
	})
	if err != nil {
		t.Fatalf("CompleteOnboarding failed: %v", err)
	}
}

func TestManager_RequiresOnboarding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.manager.MarkWeekRead(ctx, 3); !errors.Is(err, ErrNotOnboarded) {
		t.Errorf("Expected ErrNotOnboarded, got %v", err)
	}
	if _, err := f.manager.Dashboard(ctx); !errors.Is(err, ErrNotOnboarded) {
		t.Errorf("Expected ErrNotOnboarded, got %v", err)
	}
	if _, err := f.manager.Progress(); !errors.Is(err, ErrNotOnboarded) {
		t.Errorf("Expected ErrNotOnboarded, got %v", err)
	}
}

func TestManager_CompleteOnboarding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.manager.CompleteOnboarding(ctx, OnboardingRequest{
		LMPDate:      "2026-01-01",
		PartnerName:  "Anna",
		BabyNickname: "Bean",
	})
	if err != nil {
		t.Fatalf("CompleteOnboarding failed: %v", err)
	}
	if result.Profile.DueDate != "2026-10-08" {
		t.Errorf("Expected due date 2026-10-08, got %s", result.Profile.DueDate)
	}
	if result.Progress.Notification == nil || result.Progress.Notification.ID != "first_step" {
		t.Errorf("Expected first_step notification, got %+v", result.Progress.Notification)
	}
	if result.Progress.Progress.Points != 10 || result.Progress.Progress.Level != 1 {
		t.Errorf("Expected 10 points at level 1, got %+v", result.Progress.Progress)
	}
	if diff := cmp.Diff([]string{notify.EventAchievementUnlocked}, f.recorder.Types()); diff != "" {
		t.Errorf("Events mismatch (-want +got):\n%s", diff)
	}

	week, err := f.manager.CurrentWeek()
	if err != nil || week != 20 {
		t.Errorf("Expected week 20, got %d (err=%v)", week, err)
	}

	if _, err := f.manager.CompleteOnboarding(ctx, OnboardingRequest{LMPDate: "2026-01-01", PartnerName: "Anna"}); !errors.Is(err, ErrAlreadyOnboarded) {
		t.Errorf("Expected ErrAlreadyOnboarded, got %v", err)
	}
}

func TestManager_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	ctx := context.Background()

	lmp := "2026-02-01"
	name := "Maria"
	profile, warning, err := f.manager.UpdateProfile(ctx, ProfileUpdate{LMPDate: &lmp, PartnerName: &name})
	if err != nil || warning != "" {
		t.Fatalf("UpdateProfile failed: err=%v warning=%q", err, warning)
	}
	if profile.DueDate != "2026-11-08" || profile.PartnerName != "Maria" {
		t.Errorf("Unexpected profile: %+v", profile)
	}

	blank := "  "
	if _, _, err := f.manager.UpdateProfile(ctx, ProfileUpdate{PartnerName: &blank}); err == nil {
		t.Error("Expected validation error for blank partner name")
	}
	stored, _ := f.manager.Profile()
	if stored.PartnerName != "Maria" {
		t.Errorf("Expected rejected update to keep profile, got %+v", stored)
	}
}

func TestManager_CelebrateMilestoneStoresMemoryOnce(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	ctx := context.Background()

	result, err := f.manager.CelebrateMilestone(ctx, CelebrateRequest{MilestoneID: "anatomy-scan", Note: "Saw the profile"})
	if err != nil {
		t.Fatalf("CelebrateMilestone failed: %v", err)
	}
	if !result.Changed || result.Progress.Points != 110 {
		t.Errorf("Expected 110 points after celebration, got %+v", result.Progress)
	}
	if result.Memory == nil || result.Memory.Note != "Saw the profile" {
		t.Fatalf("Expected memory to be stored, got %+v", result.Memory)
	}
	if result.Notification == nil || result.Notification.ID != "anatomy_scan_aced" {
		t.Errorf("Expected anatomy_scan_aced notification, got %+v", result.Notification)
	}

	again, err := f.manager.CelebrateMilestone(ctx, CelebrateRequest{MilestoneID: "anatomy-scan", Note: "Second note"})
	if err != nil {
		t.Fatalf("Repeated CelebrateMilestone failed: %v", err)
	}
	if again.Changed || again.Memory != nil {
		t.Errorf("Expected repeated celebration to be a no-op, got %+v", again)
	}
	if n := len(f.manager.Memories()); n != 1 {
		t.Errorf("Expected 1 memory, got %d", n)
	}

	if _, err := f.manager.CelebrateMilestone(ctx, CelebrateRequest{MilestoneID: "unknown"}); !errors.Is(err, ErrUnknownMilestone) {
		t.Errorf("Expected ErrUnknownMilestone, got %v", err)
	}
}

func TestManager_PersistFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	ctx := context.Background()

	f.store.SetFailWrites(true)
	result, err := f.manager.MarkWeekRead(ctx, 5)
	if err != nil {
		t.Fatalf("Expected persistence failure to be non-fatal, got %v", err)
	}
	if result.Warning == "" {
		t.Error("Expected a warning")
	}
	if result.Progress.Points != 30 {
		t.Errorf("Expected in-memory progress to be updated, got %+v", result.Progress)
	}

	checklist, err := f.manager.TogglePacked(ctx, "docs1")
	if err != nil || !checklist.Packed || checklist.Warning == "" {
		t.Errorf("Expected packed item with warning, got %+v (err=%v)", checklist, err)
	}
}

func TestManager_LaborAlert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var last *ContractionResult
	for i := 0; i < 6; i++ {
		if _, started := f.manager.StartContraction(); !started {
			t.Fatalf("Contraction %d did not start", i)
		}
		f.clock.Advance(70 * time.Second)
		result, err := f.manager.StopContraction(ctx)
		if err != nil {
			t.Fatalf("StopContraction failed: %v", err)
		}
		last = result
		f.clock.Advance(170 * time.Second)
	}

	if !last.Recorded || last.Contraction.Duration != 70 {
		t.Fatalf("Unexpected contraction: %+v", last.Contraction)
	}
	if last.Status.Alert == nil {
		t.Fatal("Expected labor alert after six regular contractions")
	}

	alerts := 0
	for _, typ := range f.recorder.Types() {
		if typ == notify.EventLaborAlert {
			alerts++
		}
	}
	if alerts != 1 {
		t.Errorf("Expected 1 labor_alert event, got %d", alerts)
	}

	// Остановка без старта ничего не записывает
	result, err := f.manager.StopContraction(ctx)
	if err != nil || result.Recorded {
		t.Errorf("Expected no-op stop, got %+v (err=%v)", result, err)
	}
	if n := len(f.manager.ContractionStatus().Log); n != 6 {
		t.Errorf("Expected 6 contractions, got %d", n)
	}

	if _, err := f.manager.ResetContractions(ctx, false); !errors.Is(err, ErrResetNotConfirmed) {
		t.Errorf("Expected ErrResetNotConfirmed, got %v", err)
	}
	if _, err := f.manager.ResetContractions(ctx, true); err != nil {
		t.Fatalf("ResetContractions failed: %v", err)
	}
	if n := len(f.manager.ContractionStatus().Log); n != 0 {
		t.Errorf("Expected empty log after reset, got %d", n)
	}
}

func TestManager_ToggleContraction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.manager.ToggleContraction(ctx)
	if err != nil || first.Recorded || !first.Status.Timing {
		t.Fatalf("Expected toggle to start timing, got %+v (err=%v)", first, err)
	}
	f.clock.Advance(45 * time.Second)
	second, err := f.manager.ToggleContraction(ctx)
	if err != nil || !second.Recorded || second.Contraction.Duration != 45 {
		t.Fatalf("Expected toggle to record 45s contraction, got %+v (err=%v)", second, err)
	}
}

func TestManager_Dashboard(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	ctx := context.Background()

	d, err := f.manager.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if d.Week != 20 {
		t.Errorf("Expected week 20, got %d", d.Week)
	}
	if d.DueMilestone == nil || d.DueMilestone.ID != "anatomy-scan" {
		t.Errorf("Expected anatomy-scan to be due, got %+v", d.DueMilestone)
	}
	if len(d.Upcoming) == 0 || d.Upcoming[0].ID != "anatomy-scan" {
		t.Errorf("Expected anatomy-scan first in upcoming, got %+v", d.Upcoming)
	}
	if len(d.DailyMessages) == 0 {
		t.Error("Expected daily messages")
	}
	if d.Countdown.FinalCountdown || d.CountdownTip != "" {
		t.Errorf("Expected no final countdown tip, got %+v", d.Countdown)
	}

	if err := f.manager.DismissMilestone("anatomy-scan"); err != nil {
		t.Fatalf("DismissMilestone failed: %v", err)
	}
	d, _ = f.manager.Dashboard(ctx)
	if d.DueMilestone != nil {
		t.Errorf("Expected dismissed milestone to be hidden, got %+v", d.DueMilestone)
	}
}

func TestManager_LoadRestoresState(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	ctx := context.Background()

	if _, err := f.manager.MarkWeekRead(ctx, 1); err != nil {
		t.Fatalf("MarkWeekRead failed: %v", err)
	}

	restored, err := NewManager(f.store, Options{Now: f.clock.Now, TickInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer restored.Close()
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	view, err := restored.Progress()
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if diff := cmp.Diff([]int{1}, view.Progress.ReadWeeks); diff != "" {
		t.Errorf("ReadWeeks mismatch (-want +got):\n%s", diff)
	}
	if view.Progress.Points != 30 || view.NextLevelAt != 100 {
		t.Errorf("Unexpected progress view: %+v", view)
	}
}

func TestManager_LoadCorruptedProgressReinitializes(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	ctx := context.Background()

	f.store.Set(ctx, storage.KeyUserProgress, "{not json")

	restored, err := NewManager(f.store, Options{Now: f.clock.Now, TickInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer restored.Close()
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := restored.Profile(); err != nil {
		t.Fatalf("Expected profile to survive, got %v", err)
	}
	view, err := restored.Progress()
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if view.Progress.Points != 10 || view.Progress.Level != 1 {
		t.Errorf("Expected fresh progress with 10 points at level 1, got %+v", view.Progress)
	}

	result, err := restored.MarkWeekRead(ctx, 1)
	if err != nil {
		t.Fatalf("MarkWeekRead failed: %v", err)
	}
	if !result.Changed || result.Progress.Points != 30 || result.Progress.Level != 1 {
		t.Errorf("Unexpected result after re-initialization: %+v", result.Progress)
	}
	if _, ok, _ := f.store.Get(ctx, storage.KeyUserProgress); !ok {
		t.Error("Expected re-initialized progress to be persisted")
	}
}

func TestManager_LoadCorruptedProfileResetsOnboarding(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	ctx := context.Background()

	f.store.Set(ctx, storage.KeyUserProfile, "{not json")
	if err := f.manager.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := f.manager.Profile(); !errors.Is(err, ErrNotOnboarded) {
		t.Errorf("Expected ErrNotOnboarded, got %v", err)
	}
	if _, ok, _ := f.store.Get(ctx, storage.KeyUserProgress); ok {
		t.Error("Expected progress to be removed with corrupted profile")
	}
	if _, err := f.manager.Progress(); !errors.Is(err, ErrNotOnboarded) {
		t.Errorf("Expected progress to be cleared, got %v", err)
	}
}

func TestManager_ResetAll(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	ctx := context.Background()

	if err := f.manager.ResetAll(ctx, false); !errors.Is(err, ErrResetNotConfirmed) {
		t.Errorf("Expected ErrResetNotConfirmed, got %v", err)
	}
	if err := f.manager.ResetAll(ctx, true); err != nil {
		t.Fatalf("ResetAll failed: %v", err)
	}
	if _, err := f.manager.Profile(); !errors.Is(err, ErrNotOnboarded) {
		t.Errorf("Expected ErrNotOnboarded after reset, got %v", err)
	}
	for _, key := range []string{storage.KeyUserProfile, storage.KeyUserProgress} {
		if _, ok, _ := f.store.Get(ctx, key); ok {
			t.Errorf("Expected %s to be deleted", key)
		}
	}
}

func TestManager_ResetAllPurgesRedisDevice(t *testing.T) {
	srv := miniredis.RunT(t)
	store := storage.NewRedisStore(redis.NewClient(&redis.Options{Addr: srv.Addr()}), "device-1", 0)
	defer store.Close()

	clock := &fakeClock{now: time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)}
	manager, err := NewManager(store, Options{Now: clock.Now, TickInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer manager.Close()

	ctx := context.Background()
	if _, err := manager.CompleteOnboarding(ctx, OnboardingRequest{LMPDate: "2026-01-01", PartnerName: "Anna"}); err != nil {
		t.Fatalf("CompleteOnboarding failed: %v", err)
	}
	srv.Set("device-1:staleRecord", "x")
	srv.Set("device-2:userProfile", "{}")

	if err := manager.ResetAll(ctx, true); err != nil {
		t.Fatalf("ResetAll failed: %v", err)
	}
	if diff := cmp.Diff([]string{"device-2:userProfile"}, srv.Keys()); diff != "" {
		t.Errorf("Remaining keys mismatch (-want +got):\n%s", diff)
	}
}
