package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/blueberryplanner/blueberry/internal/store"
)

// Dispatcher polls for due triggers and delivers them to every device in the
// owning family. Delivered rows are deleted; a trigger fires at most once.
type Dispatcher struct {
	mu        sync.RWMutex
	service   *Service
	scheduled *store.ScheduledStore
	subs      *store.PushStore
	logger    *slog.Logger
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewDispatcher(svc *Service, scheduled *store.ScheduledStore, subs *store.PushStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		service:   svc,
		scheduled: scheduled,
		subs:      subs,
		logger:    logger.With("component", "push_dispatcher"),
		interval:  30 * time.Second,
	}
}

// Start begins the delivery loop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the delivery loop.
func (d *Dispatcher) Stop() {
	d.mu.RLock()
	cancel := d.cancel
	done := d.done
	d.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	due, err := d.scheduled.ListDue(time.Now().UTC())
	if err != nil {
		d.logger.Error("list due triggers", "error", err)
		return
	}

	for _, dt := range due {
		d.deliver(ctx, dt)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, dt store.DueTrigger) {
	subs, err := d.subs.ListByFamily(dt.FamilyID)
	if err != nil {
		d.logger.Error("list subscriptions", "family_id", dt.FamilyID, "error", err)
		return
	}

	t := dt.Trigger
	payload := Payload{
		Title: t.Title,
		Body:  t.Body,
		Sound: t.Sound,
		Type:  t.Extra.Type,
		RefID: t.Extra.ID,
		Tag:   t.ActionType,
	}

	for i := range subs {
		sub := &subs[i]
		if err := d.service.Send(ctx, sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := d.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					d.logger.Error("remove expired subscription", "error", err)
				}
				continue
			}
			d.logger.Error("send notification", "trigger_id", t.ID, "error", err)
		}
	}

	// Delete even when some sends failed: due triggers must not pile up
	// and refire on every tick.
	if err := d.scheduled.Delete(dt.FamilyID, t.ID); err != nil {
		d.logger.Error("delete delivered trigger", "trigger_id", t.ID, "error", err)
	}
}
