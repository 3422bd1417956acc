package push

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/blueberryplanner/blueberry/internal/database"
	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/notify"
	"github.com/blueberryplanner/blueberry/internal/store"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	if pub == "" {
		t.Error("expected non-empty public key")
	}
	if priv == "" {
		t.Error("expected non-empty private key")
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key should be base64url-encoded, 32 bytes P-256 scalar
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestPayloadJSON(t *testing.T) {
	p := Payload{
		Title: "💊 Medication Reminder",
		Body:  "Time to take Allergy med (10mg)",
		Sound: "default",
		Type:  "medication",
		RefID: "med-1",
		Tag:   "MEDICATION_REMINDER",
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got["refId"] != "med-1" {
		t.Errorf("refId = %q, want med-1", got["refId"])
	}
	if got["type"] != "medication" {
		t.Errorf("type = %q, want medication", got["type"])
	}
}

func setupSinkTest(t *testing.T) (*StoreSink, *store.PushStore, *model.User, *model.Family) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := store.NewUserStore(db)
	fs := store.NewFamilyStore(db)

	email := "parent@example.com"
	user, err := us.Create(store.NewUser{Name: "Parent", Email: &email, LoginType: model.LoginTypePassword})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	family, err := fs.Create("Sink Family", user.ID, "America/New_York")
	if err != nil {
		t.Fatalf("seed family: %v", err)
	}

	subs := store.NewPushStore(db)
	sink := NewStoreSink(family.ID, store.NewScheduledStore(db), subs)
	return sink, subs, user, family
}

func TestStoreSinkPermissionFollowsSubscriptions(t *testing.T) {
	sink, subs, user, family := setupSinkTest(t)
	ctx := context.Background()

	perm, err := sink.Permission(ctx)
	if err != nil {
		t.Fatalf("permission: %v", err)
	}
	if perm != notify.PermissionDefault {
		t.Errorf("permission = %q, want default with no devices", perm)
	}

	granted, err := sink.RequestPermission(ctx)
	if err != nil {
		t.Fatalf("request permission: %v", err)
	}
	if granted {
		t.Error("request permission should report false with no devices")
	}

	_, err = subs.Create(store.NewPushSubscription{
		UserID: user.ID, FamilyID: family.ID,
		Endpoint: "https://push.example.com/dev", P256dhKey: "k", AuthKey: "a",
	})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	perm, err = sink.Permission(ctx)
	if err != nil {
		t.Fatalf("permission: %v", err)
	}
	if perm != notify.PermissionGranted {
		t.Errorf("permission = %q, want granted with a device", perm)
	}
}

func TestStoreSinkScheduleCancelPending(t *testing.T) {
	sink, _, _, _ := setupSinkTest(t)
	ctx := context.Background()

	fireAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	err := sink.Schedule(ctx, []notify.Trigger{
		{ID: 100001, Title: "A", Body: "a", FireAt: fireAt},
		{ID: 200001, Title: "B", Body: "b", FireAt: fireAt},
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	pending, err := sink.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	if err := sink.Cancel(ctx, []int{100001}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	pending, _ = sink.Pending(ctx)
	if len(pending) != 1 || pending[0].ID != 200001 {
		t.Fatalf("pending = %+v, want just 200001", pending)
	}
}
