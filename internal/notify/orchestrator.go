package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blueberryplanner/blueberry/internal/model"
)

// CategoryResult reports the outcome of one category's scheduling pass.
// A failed category contributes zero scheduled triggers and never affects
// its siblings.
type CategoryResult struct {
	Scheduled int   `json:"scheduled"`
	Err       error `json:"-"`
}

// Result holds the per-category outcomes of a full scheduling pass.
type Result struct {
	Medications CategoryResult `json:"medications"`
	Chores      CategoryResult `json:"chores"`
	Reminders   CategoryResult `json:"reminders"`
}

// Total returns the number of triggers scheduled across all categories.
func (r Result) Total() int {
	return r.Medications.Scheduled + r.Chores.Scheduled + r.Reminders.Scheduled
}

// Orchestrator runs the full cancel-then-schedule pipeline against a Sink.
// It holds no state between passes; idempotency comes from namespace
// cancellation before each category is repopulated.
type Orchestrator struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

func NewOrchestrator(sink Sink, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// ScheduleAll rebuilds the sink's pending triggers from the given records.
// If the sink reports no notification permission the whole pass is a no-op.
// The three categories run concurrently: each reads its own input slice and
// touches only its own ID namespace.
func (o *Orchestrator) ScheduleAll(
	ctx context.Context,
	meds []model.Medicine,
	chores []model.Chore,
	reminders []model.Reminder,
	settings model.NotificationSettings,
) (Result, error) {
	perm, err := o.sink.Permission(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("check permission: %w", err)
	}
	if perm != PermissionGranted {
		return Result{}, nil
	}

	now := o.now()

	var result Result
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		result.Medications = o.reschedule(ctx, "medications", BaseMedication, MedicationTriggers(meds, settings, now))
	}()
	go func() {
		defer wg.Done()
		result.Chores = o.reschedule(ctx, "chores", BaseChore, ChoreTriggers(chores, settings, now))
	}()
	go func() {
		defer wg.Done()
		result.Reminders = o.reschedule(ctx, "reminders", BaseReminder, ReminderTriggers(reminders, settings, now))
	}()

	wg.Wait()
	return result, nil
}

// reschedule cancels everything pending in the category's namespace, then
// schedules the fresh trigger set. There is a brief window with zero
// triggers for the category; it is rebuilt immediately after.
func (o *Orchestrator) reschedule(ctx context.Context, category string, base int, triggers []Trigger) CategoryResult {
	if err := o.cancelNamespace(ctx, base); err != nil {
		o.logger.Error("cancel category", "category", category, "error", err)
		return CategoryResult{Err: err}
	}

	if len(triggers) == 0 {
		return CategoryResult{}
	}

	if err := o.sink.Schedule(ctx, triggers); err != nil {
		o.logger.Error("schedule category", "category", category, "error", err)
		return CategoryResult{Err: err}
	}

	return CategoryResult{Scheduled: len(triggers)}
}

// cancelNamespace bulk-cancels every pending trigger whose ID lies in
// [base, base+NamespaceSpan).
func (o *Orchestrator) cancelNamespace(ctx context.Context, base int) error {
	pending, err := o.sink.Pending(ctx)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}

	var ids []int
	for _, t := range pending {
		if t.ID >= base && t.ID < base+NamespaceSpan {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	if err := o.sink.Cancel(ctx, ids); err != nil {
		return fmt.Errorf("cancel %d triggers: %w", len(ids), err)
	}
	return nil
}
