package push

import (
	"context"
	"fmt"

	"github.com/blueberryplanner/blueberry/internal/notify"
	"github.com/blueberryplanner/blueberry/internal/store"
)

// StoreSink is the server-side notify.Sink: triggers land in the
// scheduled_notifications table and the dispatcher delivers them over web
// push when they come due.
//
// Permission maps to device registration: a family with at least one push
// subscription is "granted", a family with none is "default". There is no
// server-side equivalent of an explicit denial.
type StoreSink struct {
	familyID  string
	scheduled *store.ScheduledStore
	subs      *store.PushStore
}

func NewStoreSink(familyID string, scheduled *store.ScheduledStore, subs *store.PushStore) *StoreSink {
	return &StoreSink{
		familyID:  familyID,
		scheduled: scheduled,
		subs:      subs,
	}
}

func (s *StoreSink) Schedule(ctx context.Context, triggers []notify.Trigger) error {
	return s.scheduled.Insert(s.familyID, triggers)
}

func (s *StoreSink) Cancel(ctx context.Context, ids []int) error {
	return s.scheduled.Cancel(s.familyID, ids)
}

func (s *StoreSink) Pending(ctx context.Context) ([]notify.Trigger, error) {
	return s.scheduled.ListByFamily(s.familyID)
}

func (s *StoreSink) Permission(ctx context.Context) (notify.Permission, error) {
	n, err := s.subs.CountByFamily(s.familyID)
	if err != nil {
		return notify.PermissionDefault, fmt.Errorf("count subscriptions: %w", err)
	}
	if n > 0 {
		return notify.PermissionGranted, nil
	}
	return notify.PermissionDefault, nil
}

// RequestPermission reports whether the family can receive notifications.
// Registering a device is the browser's job; the server can only observe it.
func (s *StoreSink) RequestPermission(ctx context.Context) (bool, error) {
	perm, err := s.Permission(ctx)
	if err != nil {
		return false, err
	}
	return perm == notify.PermissionGranted, nil
}
