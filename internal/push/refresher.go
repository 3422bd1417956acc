package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/notify"
	"github.com/blueberryplanner/blueberry/internal/store"
)

// kickGap is the minimum spacing between refreshes of the same family.
// Handlers kick after every mutation; a burst of edits collapses into one
// scheduling pass.
const kickGap = 5 * time.Second

// Refresher keeps each family's scheduled triggers in sync with its
// medicines, chores, and reminders. It reruns the cancel-then-schedule
// pipeline on a timer and on demand after mutations.
type Refresher struct {
	families  *store.FamilyStore
	chores    *store.ChoreStore
	medicines *store.MedicineStore
	reminders *store.ReminderStore
	settings  *store.SettingsStore
	scheduled *store.ScheduledStore
	subs      *store.PushStore
	logger    *slog.Logger
	interval  time.Duration

	mu      sync.Mutex
	lastRun map[string]time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewRefresher(
	families *store.FamilyStore,
	chores *store.ChoreStore,
	medicines *store.MedicineStore,
	reminders *store.ReminderStore,
	settings *store.SettingsStore,
	scheduled *store.ScheduledStore,
	subs *store.PushStore,
	logger *slog.Logger,
) *Refresher {
	return &Refresher{
		families:  families,
		chores:    chores,
		medicines: medicines,
		reminders: reminders,
		settings:  settings,
		scheduled: scheduled,
		subs:      subs,
		logger:    logger.With("component", "notify_refresher"),
		interval:  15 * time.Minute,
		lastRun:   make(map[string]time.Time),
	}
}

// Start begins the periodic refresh loop.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the refresh loop.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (r *Refresher) tick(ctx context.Context) {
	r.RefreshAll(ctx)
}

// RefreshAll reruns the scheduling pass for every family. The nightly cron
// job uses this to roll the medication window forward.
func (r *Refresher) RefreshAll(ctx context.Context) {
	ids, err := r.families.ListIDs()
	if err != nil {
		r.logger.Error("list families", "error", err)
		return
	}
	for _, id := range ids {
		if err := r.RefreshFamily(ctx, id); err != nil {
			r.logger.Error("refresh family", "family_id", id, "error", err)
		}
	}
}

// Kick asynchronously refreshes one family, skipping the call entirely if a
// refresh ran within the last few seconds.
func (r *Refresher) Kick(familyID string) {
	r.mu.Lock()
	if time.Since(r.lastRun[familyID]) < kickGap {
		r.mu.Unlock()
		return
	}
	r.lastRun[familyID] = time.Now()
	r.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.RefreshFamily(ctx, familyID); err != nil {
			r.logger.Error("refresh family", "family_id", familyID, "error", err)
		}
	}()
}

// RefreshFamily rebuilds one family's pending triggers from its current
// records. Families whose creator has push disabled get their pending
// triggers cleared instead.
func (r *Refresher) RefreshFamily(ctx context.Context, familyID string) error {
	settings, err := r.familySettings(familyID)
	if err != nil {
		return err
	}

	if !settings.PushEnabled {
		return r.clearFamily(ctx, familyID)
	}

	meds, err := r.medicines.ListByFamily(familyID)
	if err != nil {
		return err
	}
	chores, err := r.chores.ListByFamily(familyID)
	if err != nil {
		return err
	}
	reminders, err := r.reminders.ListByFamily(familyID)
	if err != nil {
		return err
	}

	sink := NewStoreSink(familyID, r.scheduled, r.subs)
	orch := notify.NewOrchestrator(sink, r.logger)
	result, err := orch.ScheduleAll(ctx, meds, chores, reminders, settings)
	if err != nil {
		return err
	}

	r.logger.Debug("refreshed family",
		"family_id", familyID,
		"medications", result.Medications.Scheduled,
		"chores", result.Chores.Scheduled,
		"reminders", result.Reminders.Scheduled,
	)
	return nil
}

// familySettings returns the family creator's saved settings, falling back
// to the defaults when none were ever saved.
func (r *Refresher) familySettings(familyID string) (model.NotificationSettings, error) {
	family, err := r.families.GetByID(familyID)
	if err != nil {
		return model.NotificationSettings{}, err
	}
	if family == nil {
		return notify.DefaultSettings, nil
	}

	saved, err := r.settings.Get(family.CreatedBy, familyID)
	if err != nil {
		return model.NotificationSettings{}, err
	}
	if saved == nil {
		return notify.DefaultSettings, nil
	}
	return *saved, nil
}

func (r *Refresher) clearFamily(ctx context.Context, familyID string) error {
	pending, err := r.scheduled.ListByFamily(familyID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	ids := make([]int, len(pending))
	for i, t := range pending {
		ids[i] = t.ID
	}
	return r.scheduled.Cancel(familyID, ids)
}
