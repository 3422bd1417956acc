package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/email"
	"github.com/blueberryplanner/blueberry/internal/handler"
	"github.com/blueberryplanner/blueberry/internal/middleware"
	"github.com/blueberryplanner/blueberry/internal/push"
	"github.com/blueberryplanner/blueberry/internal/store"
	ws "github.com/blueberryplanner/blueberry/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	familyH      *handler.FamilyHandler
	choreH       *handler.ChoreHandler
	groceryH     *handler.GroceryHandler
	medicineH    *handler.MedicineHandler
	reminderH    *handler.ReminderHandler
	settingsH    *handler.SettingsHandler
	pushH        *handler.PushHandler
	sessionStore *store.SessionStore
	familyStore  *store.FamilyStore
	rateLimiter  *middleware.RateLimiter
	refresher    *push.Refresher
	dispatcher   *push.Dispatcher
	logger       *slog.Logger
}

func New(db *sql.DB, mailer *email.Client, tokens *auth.TokenIssuer, pushSvc *push.Service, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	rateLimiter := middleware.NewRateLimiter()

	userStore := store.NewUserStore(db)
	familyStore := store.NewFamilyStore(db)
	sessionStore := store.NewSessionStore(db)
	choreStore := store.NewChoreStore(db)
	groceryStore := store.NewGroceryStore(db)
	medicineStore := store.NewMedicineStore(db)
	reminderStore := store.NewReminderStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)
	scheduledStore := store.NewScheduledStore(db)

	refresher := push.NewRefresher(
		familyStore, choreStore, medicineStore, reminderStore,
		settingsStore, scheduledStore, pushStore,
		logger,
	)

	// The dispatcher and push endpoints only exist when VAPID keys are
	// configured; the refresher still maintains the trigger table so
	// pending counts stay honest.
	var dispatcher *push.Dispatcher
	var pushH *handler.PushHandler
	if pushSvc != nil {
		dispatcher = push.NewDispatcher(pushSvc, scheduledStore, pushStore, logger)
		pushH = handler.NewPushHandler(pushStore, scheduledStore, pushSvc, refresher, logger.With("component", "push_handler"))
	}

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, familyStore, sessionStore, rateLimiter, mailer, tokens, logger.With("component", "auth")),
		familyH:      handler.NewFamilyHandler(userStore, familyStore, logger.With("component", "family")),
		choreH:       handler.NewChoreHandler(choreStore, userStore, familyStore, hub, refresher, logger.With("component", "chore")),
		groceryH:     handler.NewGroceryHandler(groceryStore, settingsStore, pushStore, pushSvc, hub, logger.With("component", "grocery")),
		medicineH:    handler.NewMedicineHandler(medicineStore, familyStore, hub, refresher, logger.With("component", "medicine")),
		reminderH:    handler.NewReminderHandler(reminderStore, familyStore, hub, refresher, logger.With("component", "reminder")),
		settingsH:    handler.NewSettingsHandler(settingsStore, refresher, logger.With("component", "settings")),
		pushH:        pushH,
		sessionStore: sessionStore,
		familyStore:  familyStore,
		rateLimiter:  rateLimiter,
		refresher:    refresher,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Refresher returns the notification refresher so main can run its loop.
func (s *Server) Refresher() *push.Refresher {
	return s.refresher
}

// Dispatcher returns the push dispatcher, or nil when push is unconfigured.
func (s *Server) Dispatcher() *push.Dispatcher {
	return s.dispatcher
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/kid-login", s.authH.KidLogin)
	outerMux.HandleFunc("GET /api/auth/verify-email", s.authH.VerifyEmail)
	outerMux.HandleFunc("POST /api/auth/setup-security-questions", s.rateLimited(s.authH.SetupSecurityQuestions))
	outerMux.HandleFunc("POST /api/auth/reset-password/verify", s.authH.ResetPasswordVerify)
	outerMux.HandleFunc("POST /api/auth/reset-password", s.authH.ResetPassword)
	// The kid login screen shows an avatar picker before anyone is
	// signed in, so this endpoint stays public.
	outerMux.HandleFunc("GET /api/families/{id}/kids", s.familyH.ListKids)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.familyStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))
	outerMux.Handle("GET /ws", authMiddleware(ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"))))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

// guarded wraps a handler so child sessions get a 403.
func guarded(h http.HandlerFunc) http.Handler {
	return middleware.RequireGuardian(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session routes
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("DELETE /api/auth/account", s.authH.DeleteAccount)
	mux.HandleFunc("GET /api/auth/security-questions", s.authH.GetSecurityQuestions)
	mux.HandleFunc("POST /api/auth/security-questions", s.authH.SaveSecurityQuestions)

	// Family and member routes
	mux.HandleFunc("GET /api/families/{id}", s.familyH.Get)
	mux.HandleFunc("GET /api/families/{id}/members", s.familyH.ListMembers)
	mux.Handle("PATCH /api/users/{id}/points", guarded(s.familyH.UpdatePoints))
	mux.HandleFunc("PATCH /api/users/{id}/avatar", s.familyH.UpdateAvatar)
	mux.Handle("PATCH /api/users/{id}/pin", guarded(s.familyH.UpdatePIN))

	// Chore routes
	mux.HandleFunc("GET /api/families/{id}/chores", s.choreH.List)
	mux.Handle("POST /api/families/{id}/chores", guarded(s.choreH.Create))
	mux.HandleFunc("PATCH /api/chores/{id}", s.choreH.Update)
	mux.Handle("DELETE /api/chores/{id}", guarded(s.choreH.Delete))

	// Grocery routes
	mux.HandleFunc("GET /api/families/{id}/groceries", s.groceryH.ListItems)
	mux.HandleFunc("POST /api/families/{id}/groceries", s.groceryH.CreateItem)
	mux.HandleFunc("POST /api/families/{id}/groceries/clear-bought", s.groceryH.ClearBought)
	mux.HandleFunc("PATCH /api/groceries/{id}", s.groceryH.UpdateItem)
	mux.HandleFunc("DELETE /api/groceries/{id}", s.groceryH.DeleteItem)

	mux.HandleFunc("GET /api/families/{id}/grocery-essentials", s.groceryH.ListEssentials)
	mux.HandleFunc("POST /api/families/{id}/grocery-essentials", s.groceryH.CreateEssential)
	mux.HandleFunc("DELETE /api/grocery-essentials/{id}", s.groceryH.DeleteEssential)

	mux.HandleFunc("GET /api/families/{id}/grocery-stores", s.groceryH.ListShops)
	mux.HandleFunc("POST /api/families/{id}/grocery-stores", s.groceryH.CreateShop)
	mux.HandleFunc("DELETE /api/grocery-stores/{id}", s.groceryH.DeleteShop)

	mux.HandleFunc("GET /api/families/{id}/buy-again", s.groceryH.ListBuyAgain)
	mux.HandleFunc("PATCH /api/buy-again/{id}", s.groceryH.UpdateBuyAgain)
	mux.HandleFunc("DELETE /api/buy-again/{id}", s.groceryH.DeleteBuyAgain)

	// Medicine routes
	mux.HandleFunc("GET /api/families/{id}/medicines", s.medicineH.List)
	mux.Handle("POST /api/families/{id}/medicines", guarded(s.medicineH.Create))
	mux.Handle("PATCH /api/medicines/{id}", guarded(s.medicineH.Update))
	mux.Handle("DELETE /api/medicines/{id}", guarded(s.medicineH.Delete))
	mux.HandleFunc("GET /api/families/{id}/medicine-logs", s.medicineH.ListLogs)
	mux.HandleFunc("POST /api/families/{id}/medicine-logs", s.medicineH.CreateLog)

	// Reminder routes
	mux.HandleFunc("GET /api/families/{id}/reminders", s.reminderH.List)
	mux.Handle("POST /api/families/{id}/reminders", guarded(s.reminderH.Create))
	mux.Handle("PATCH /api/reminders/{id}", guarded(s.reminderH.Update))
	mux.Handle("DELETE /api/reminders/{id}", guarded(s.reminderH.Delete))

	// Notification settings
	mux.HandleFunc("GET /api/notification-settings", s.settingsH.Get)
	mux.HandleFunc("POST /api/notification-settings", s.settingsH.Update)

	// Push routes
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("POST /api/push/test", s.pushH.Test)
		mux.HandleFunc("GET /api/notifications/pending", s.pushH.PendingCount)
	}
}
