package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dothinh115/enfyra-sdk-go/client"
	"github.com/dothinh115/enfyra-sdk-go/internal/logger"
)

// Service performs the authentication round trips and keeps the Store in
// sync with their results.
type Service struct {
	exec   *client.Executor
	store  *Store
	logger *logger.Logger
}

// NewService creates an auth service writing to store.
func NewService(exec *client.Executor, store *Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Service{
		exec:   exec,
		store:  store,
		logger: log.WithField(logger.FieldComponent, "auth"),
	}
}

// Store returns the session store this service writes to.
func (s *Service) Store() *Store {
	return s.store
}

// Login exchanges credentials for a session and stores it.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	data, err := s.exec.Execute(ctx, "/auth/login", client.Options{
		Method: "POST",
		Body: map[string]string{
			"email":    email,
			"password": password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	session, err := sessionFromResponse(data)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.store.Set(session)
	s.logger.Info("Logged in")
	return session, nil
}

// Refresh exchanges the stored refresh token for a new session.
func (s *Service) Refresh(ctx context.Context) (*Session, error) {
	current := s.store.Get()
	if current == nil || current.RefreshToken == "" {
		return nil, fmt.Errorf("refresh: no session to refresh")
	}

	data, err := s.exec.Execute(ctx, "/auth/refresh-token", client.Options{
		Method: "POST",
		Body:   map[string]string{"refreshToken": current.RefreshToken},
	})
	if err != nil {
		// A dead refresh token means the session is gone for good.
		if re, ok := client.AsRequestError(err); ok && !re.IsNetwork() {
			s.store.Set(nil)
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	session, err := sessionFromResponse(data)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	// Carry the user forward; the refresh response only rotates tokens.
	if session.User == nil {
		session.User = current.User
	}
	s.store.Set(session)
	return session, nil
}

// Logout invalidates the session server-side and clears the store. The
// store is cleared even when the round trip fails, so local state never
// outlives the caller's intent.
func (s *Service) Logout(ctx context.Context) error {
	_, err := s.exec.Execute(ctx, "/auth/logout", client.Options{Method: "POST"})
	s.store.Set(nil)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info("Logged out")
	return nil
}

// Me fetches the current user and stores it on the session.
func (s *Service) Me(ctx context.Context) (interface{}, error) {
	data, err := s.exec.Execute(ctx, "/auth/me", client.Options{Method: "GET"})
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}

	if current := s.store.Get(); current != nil {
		updated := *current
		updated.User = unwrapData(data)
		s.store.Set(&updated)
	}
	return unwrapData(data), nil
}

// sessionFromResponse maps an auth endpoint response body onto a Session.
// The API wraps payloads in a "data" envelope; tokens stay opaque.
func sessionFromResponse(data interface{}) (*Session, error) {
	body, ok := unwrapData(data).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected auth response shape: %T", data)
	}

	access, _ := body["accessToken"].(string)
	if access == "" {
		return nil, fmt.Errorf("auth response carries no access token")
	}

	session := &Session{AccessToken: access}
	if refresh, ok := body["refreshToken"].(string); ok {
		session.RefreshToken = refresh
	}
	if exp, ok := body["expTime"].(float64); ok && exp > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(exp) * time.Millisecond)
	}
	if user, ok := body["user"]; ok {
		session.User = user
	}
	return session, nil
}

// unwrapData unwraps the API's {"data": ...} envelope when present.
func unwrapData(data interface{}) interface{} {
	if m, ok := data.(map[string]interface{}); ok {
		if inner, ok := m["data"]; ok {
			return inner
		}
	}
	return data
}
