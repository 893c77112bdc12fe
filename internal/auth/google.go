package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "readability-backend/internal/shared/auth"
	"readability-backend/internal/shared/server/respond"
	"readability-backend/internal/shared/telemetry"
	"readability-backend/internal/users"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	googleIDPrefix    = "google:"
	loginStateTTL     = 5 * time.Minute
)

var errUnverifiedEmail = errors.New("google account email is not verified")

// GoogleService signs users in with Google and hands the UI a session token
// that carries the stored role.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	userInfoURL string
	states      *stateStore
	users       *users.Service
}

func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, svc *users.Service) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		uiRedirect:  uiRedirect,
		userInfoURL: googleUserInfoURL,
		states:      newStateStore(),
		users:       svc,
	}
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != ""
}

// start redirects to Google. An optional ?next=/path is returned to the UI
// after sign-in so a shared report or history page can be reopened.
func (s *GoogleService) start(c *gin.Context) {
	if !s.configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	s.states.put(state, pendingLogin{
		next:    safeNext(c.Query("next")),
		expires: time.Now().Add(loginStateTTL),
	})

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")))
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}
	pending, ok := s.states.consume(state, time.Now())
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		telemetry.Warn("auth.profile_failed", map[string]any{"error": err.Error()})
		status := http.StatusBadGateway
		if errors.Is(err, errUnverifiedEmail) {
			status = http.StatusForbidden
		}
		respond.Error(c, status, "auth_failed", "could not read Google profile", nil)
		return
	}

	user, err := s.persistUser(ctx, users.User{
		ID:         googleIDPrefix + profile.Sub,
		Email:      profile.Email,
		Name:       profile.Name,
		PictureURL: profile.Picture,
	})
	if err != nil {
		telemetry.Error("auth.user_upsert_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store user", nil)
		return
	}

	session, err := sharedauth.SignJWT(sharedauth.Claims{
		Sub:     user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.PictureURL,
		Role:    user.Role,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	target, err := uiRedirectURL(s.uiRedirect, session, pending.next)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}
	telemetry.Info("auth.signed_in", map[string]any{"user_id": user.ID, "role": user.Role})
	c.Redirect(http.StatusFound, target)
}

func (s *GoogleService) persistUser(ctx context.Context, user users.User) (users.User, error) {
	if s.users == nil {
		user.Role = users.DefaultRole
		return user, nil
	}
	return s.users.UpsertFromAuth(ctx, user)
}

type googleProfile struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *GoogleService) fetchProfile(ctx context.Context, token *oauth2.Token) (googleProfile, error) {
	resp, err := s.oauthConfig.Client(ctx, token).Get(s.userInfoURL)
	if err != nil {
		return googleProfile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return googleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if strings.TrimSpace(p.Sub) == "" || strings.TrimSpace(p.Email) == "" {
		return googleProfile{}, errors.New("userinfo missing sub or email")
	}
	if !p.EmailVerified {
		return googleProfile{}, errUnverifiedEmail
	}
	return p, nil
}

type pendingLogin struct {
	next    string
	expires time.Time
}

// stateStore holds single-use OAuth states. Expired entries are pruned on
// every put.
type stateStore struct {
	mu    sync.Mutex
	items map[string]pendingLogin
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]pendingLogin)}
}

func (s *stateStore) put(state string, p pendingLogin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.items {
		if now.After(v.expires) {
			delete(s.items, k)
		}
	}
	s.items[state] = p
}

func (s *stateStore) consume(state string, now time.Time) (pendingLogin, bool) {
	s.mu.Lock()
	p, ok := s.items[state]
	delete(s.items, state)
	s.mu.Unlock()
	if !ok || now.After(p.expires) {
		return pendingLogin{}, false
	}
	return p, true
}

func (s *stateStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// safeNext accepts only same-origin absolute paths.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	return next
}

func uiRedirectURL(rawURL, token, next string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	if next != "" {
		q.Set("next", next)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
