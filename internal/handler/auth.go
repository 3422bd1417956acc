package handler

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/email"
	"github.com/blueberryplanner/blueberry/internal/middleware"
	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/store"
)

const (
	sessionTTL        = 30 * 24 * time.Hour
	verifyTokenTTL    = 24 * time.Hour
	minPasswordLength = 8
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

type AuthHandler struct {
	users    *store.UserStore
	families *store.FamilyStore
	sessions *store.SessionStore
	limiter  *middleware.RateLimiter
	mailer   *email.Client
	tokens   *auth.TokenIssuer
	logger   *slog.Logger
}

func NewAuthHandler(
	users *store.UserStore,
	families *store.FamilyStore,
	sessions *store.SessionStore,
	limiter *middleware.RateLimiter,
	mailer *email.Client,
	tokens *auth.TokenIssuer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:    users,
		families: families,
		sessions: sessions,
		limiter:  limiter,
		mailer:   mailer,
		tokens:   tokens,
		logger:   logger,
	}
}

type registerMember struct {
	Name     string  `json:"name"`
	Email    *string `json:"email"`
	Password string  `json:"password"`
	IsChild  bool    `json:"isChild"`
	Age      *int    `json:"age"`
	PIN      string  `json:"pin"`
	Avatar   string  `json:"avatar"`
}

type registerRequest struct {
	FamilyName string           `json:"familyName"`
	Timezone   string           `json:"timezone"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Password   string           `json:"password"`
	Avatar     string           `json:"avatar"`
	Question1  string           `json:"securityQuestion1"`
	Answer1    string           `json:"securityAnswer1"`
	Question2  string           `json:"securityQuestion2"`
	Answer2    string           `json:"securityAnswer2"`
	Members    []registerMember `json:"members"`
}

// Register creates the guardian account, the family, and any additional
// members in one call. Children without a PIN get a generated one, returned
// once in the response; it is never retrievable again.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.FamilyName = strings.TrimSpace(req.FamilyName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Name == "" || req.FamilyName == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name, familyName, and email are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		writeError(w, http.StatusBadRequest, "invalid timezone")
		return
	}

	// Every email in the request must be unique among themselves and unused
	// in the database before anything is created.
	seen := map[string]bool{req.Email: true}
	for i := range req.Members {
		m := &req.Members[i]
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			writeError(w, http.StatusBadRequest, "every member needs a name")
			return
		}
		if m.Email != nil {
			e := strings.TrimSpace(strings.ToLower(*m.Email))
			if e == "" {
				m.Email = nil
				continue
			}
			if seen[e] {
				writeError(w, http.StatusBadRequest, "duplicate email in request: "+e)
				return
			}
			seen[e] = true
			m.Email = &e
		}
	}
	for e := range seen {
		existing, err := h.users.GetByEmail(e)
		if err != nil {
			h.logger.Error("check email", "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
			return
		}
		if existing != nil {
			writeError(w, http.StatusConflict, "email already registered: "+e)
			return
		}
	}
	if existing, err := h.families.GetByName(req.FamilyName); err != nil {
		h.logger.Error("check family name", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "family name already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	hashStr := string(hash)

	guardian, err := h.users.Create(store.NewUser{
		Name:         req.Name,
		Email:        &req.Email,
		LoginType:    model.LoginTypePassword,
		PasswordHash: &hashStr,
		Avatar:       req.Avatar,
	})
	if err != nil {
		h.logger.Error("create guardian", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if req.Question1 != "" && req.Question2 != "" {
		err := h.users.SetSecurityQuestions(guardian.ID,
			strings.TrimSpace(req.Question1), normalizeAnswer(req.Answer1),
			strings.TrimSpace(req.Question2), normalizeAnswer(req.Answer2))
		if err != nil {
			h.logger.Error("set security questions", "error", err)
		}
	}

	family, err := h.families.Create(req.FamilyName, guardian.ID, req.Timezone)
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if _, err := h.families.AddMember(family.ID, guardian.ID, model.RoleGuardian); err != nil {
		h.logger.Error("add guardian membership", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	kidPINs := map[string]string{}
	for _, m := range req.Members {
		if err := h.registerMember(family.ID, m, kidPINs); err != nil {
			h.logger.Error("create member", "name", m.Name, "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
			return
		}
	}

	h.sendVerification(guardian)

	sess, err := h.sessions.Create(guardian.ID, family.ID, false, sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	setSessionCookie(w, sess)

	resp := map[string]any{
		"user":   guardian,
		"family": family,
	}
	if len(kidPINs) > 0 {
		resp["kidPins"] = kidPINs
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) registerMember(familyID string, m registerMember, kidPINs map[string]string) error {
	nu := store.NewUser{
		Name:    m.Name,
		Email:   m.Email,
		IsChild: m.IsChild,
		Age:     m.Age,
		Avatar:  m.Avatar,
	}
	role := model.RoleGuardian

	if m.IsChild {
		role = model.RoleChild
		pin := m.PIN
		if pin == "" {
			pin = generatePIN()
			kidPINs[m.Name] = pin
		} else if !pinPattern.MatchString(pin) {
			return fmt.Errorf("pin for %s must be 4 digits", m.Name)
		}
		pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		s := string(pinHash)
		nu.LoginType = model.LoginTypePIN
		nu.PINHash = &s
	} else {
		if len(m.Password) < minPasswordLength {
			return fmt.Errorf("password for %s too short", m.Name)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(m.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		s := string(hash)
		nu.LoginType = model.LoginTypePassword
		nu.PasswordHash = &s
	}

	user, err := h.users.Create(nu)
	if err != nil {
		return err
	}
	_, err = h.families.AddMember(familyID, user.ID, role)
	return err
}

// generatePIN returns a random 4-digit PIN with leading zeros allowed.
func generatePIN() string {
	var b [2]byte
	rand.Read(b[:])
	return fmt.Sprintf("%04d", binary.BigEndian.Uint16(b[:])%10000)
}

func (h *AuthHandler) sendVerification(u *model.User) {
	if u.Email == nil || !h.mailer.Configured() {
		return
	}
	token, err := h.tokens.Issue(u.ID, auth.PurposeVerifyEmail, verifyTokenTTL)
	if err != nil {
		h.logger.Error("issue verification token", "error", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.mailer.SendVerification(ctx, *u.Email, u.Name, token); err != nil {
			h.logger.Error("send verification email", "error", err)
		}
	}()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.users.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	family, err := h.families.FamilyForUser(user.ID)
	if err != nil || family == nil {
		h.logger.Error("login family lookup", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	sess, err := h.sessions.Create(user.ID, family.ID, user.IsChild, sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	setSessionCookie(w, sess)

	writeJSON(w, http.StatusOK, map[string]any{"user": user, "family": family})
}

type kidLoginRequest struct {
	FamilyName string `json:"familyName"`
	KidName    string `json:"kidName"`
	PIN        string `json:"pin"`
}

// KidLogin signs a child in with family name, kid name, and a 4-digit PIN.
// All three failure modes return the same message so the form can't be used
// to probe which families and kids exist.
func (h *AuthHandler) KidLogin(w http.ResponseWriter, r *http.Request) {
	var req kidLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.FamilyName = strings.TrimSpace(req.FamilyName)
	req.KidName = strings.TrimSpace(req.KidName)

	key := fmt.Sprintf("kidlogin:%s:%s:%s",
		strings.ToLower(req.FamilyName), strings.ToLower(req.KidName), middleware.RealIP(r))
	if !h.limiter.Allow(key, 5, time.Minute) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	family, err := h.families.GetByName(req.FamilyName)
	if err != nil {
		h.logger.Error("kid login family lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if family == nil {
		writeError(w, http.StatusUnauthorized, "incorrect family, name, or PIN")
		return
	}

	kids, err := h.families.ListKids(family.ID)
	if err != nil {
		h.logger.Error("kid login list kids", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	var kid *model.User
	for i := range kids {
		if strings.EqualFold(kids[i].Name, req.KidName) {
			kid = &kids[i]
			break
		}
	}
	if kid == nil || kid.PINHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*kid.PINHash), []byte(req.PIN)) != nil {
		writeError(w, http.StatusUnauthorized, "incorrect family, name, or PIN")
		return
	}

	sess, err := h.sessions.Create(kid.ID, family.ID, true, sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	setSessionCookie(w, sess)

	writeJSON(w, http.StatusOK, map[string]any{"user": kid, "family": family})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if ok {
		if err := h.sessions.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, err := h.users.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	family, err := h.families.GetByID(ac.FamilyID)
	if err != nil || family == nil {
		writeError(w, http.StatusInternalServerError, "failed to load family")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "family": family})
}

// DeleteAccount removes the session user and everything cascading from the
// user row. The family survives if other members remain.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	if err := h.sessions.DeleteByUser(ac.UserID); err != nil {
		h.logger.Error("delete user sessions", "error", err)
	}
	if err := h.users.Delete(ac.UserID); err != nil {
		h.logger.Error("delete user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	userID, err := h.tokens.Verify(token, auth.PurposeVerifyEmail)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}
	if err := h.users.SetEmailVerified(userID); err != nil {
		h.logger.Error("set email verified", "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

type securityQuestionsRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Question1 string `json:"question1"`
	Answer1   string `json:"answer1"`
	Question2 string `json:"question2"`
	Answer2   string `json:"answer2"`
}

// SetupSecurityQuestions stores recovery questions, authenticated by
// email+password instead of a session so it works from the login screen.
func (h *AuthHandler) SetupSecurityQuestions(w http.ResponseWriter, r *http.Request) {
	var req securityQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Question1 == "" || req.Answer1 == "" || req.Question2 == "" || req.Answer2 == "" {
		writeError(w, http.StatusBadRequest, "both questions and answers are required")
		return
	}

	user, err := h.users.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save questions")
		return
	}
	if user == nil || user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	err = h.users.SetSecurityQuestions(user.ID,
		strings.TrimSpace(req.Question1), normalizeAnswer(req.Answer1),
		strings.TrimSpace(req.Question2), normalizeAnswer(req.Answer2))
	if err != nil {
		h.logger.Error("set security questions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save questions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// GetSecurityQuestions returns the session user's questions, never answers.
func (h *AuthHandler) GetSecurityQuestions(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, err := h.users.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	resp := map[string]any{"configured": user.SecurityQuestion1 != nil && user.SecurityQuestion2 != nil}
	if user.SecurityQuestion1 != nil {
		resp["question1"] = *user.SecurityQuestion1
	}
	if user.SecurityQuestion2 != nil {
		resp["question2"] = *user.SecurityQuestion2
	}
	writeJSON(w, http.StatusOK, resp)
}

// SaveSecurityQuestions updates the session user's questions.
func (h *AuthHandler) SaveSecurityQuestions(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req securityQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Question1 == "" || req.Answer1 == "" || req.Question2 == "" || req.Answer2 == "" {
		writeError(w, http.StatusBadRequest, "both questions and answers are required")
		return
	}

	err := h.users.SetSecurityQuestions(ac.UserID,
		strings.TrimSpace(req.Question1), normalizeAnswer(req.Answer1),
		strings.TrimSpace(req.Question2), normalizeAnswer(req.Answer2))
	if err != nil {
		h.logger.Error("set security questions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save questions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// ResetPasswordVerify returns the account's security questions so the reset
// form can show them. Accounts without questions get found:false with a
// reason instead of an error status.
func (h *AuthHandler) ResetPasswordVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	key := "pwreset:" + middleware.RealIP(r)
	if !h.limiter.Allow(key, 5, time.Minute) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	user, err := h.users.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"found": false, "reason": "no account with that email"})
		return
	}
	if user.SecurityQuestion1 == nil || user.SecurityQuestion2 == nil {
		writeJSON(w, http.StatusOK, map[string]any{"found": false, "reason": "no security questions configured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found":     true,
		"question1": *user.SecurityQuestion1,
		"question2": *user.SecurityQuestion2,
	})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Answer1     string `json:"answer1"`
	Answer2     string `json:"answer2"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword checks both security answers and sets a new password. Every
// existing session for the user is revoked.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		return
	}

	key := "pwreset:" + middleware.RealIP(r)
	if !h.limiter.Allow(key, 5, time.Minute) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	user, err := h.users.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	if user == nil || user.SecurityAnswer1 == nil || user.SecurityAnswer2 == nil ||
		*user.SecurityAnswer1 != normalizeAnswer(req.Answer1) ||
		*user.SecurityAnswer2 != normalizeAnswer(req.Answer2) {
		writeError(w, http.StatusUnauthorized, "incorrect answers")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	if err := h.users.UpdatePassword(user.ID, string(hash)); err != nil {
		h.logger.Error("update password", "error", err)
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	if err := h.sessions.DeleteByUser(user.ID); err != nil {
		h.logger.Error("revoke sessions", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// normalizeAnswer lower-cases and trims a security answer so capitalization
// and stray spaces don't lock people out.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func setSessionCookie(w http.ResponseWriter, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
