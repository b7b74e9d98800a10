package store

import (
	"context"
	"strings"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/poserr"
	"tokoku/client/internal/session"
)

// tokenMessages are the fragments of a probe 401 that mean the token itself
// is bad. Any other 401 text is treated as a backend fault.
var tokenMessages = []string{
	"token",
	"jwt",
	"expired",
	"kedaluwarsa",
	"kadaluarsa",
	"unauthenticated",
	"not authenticated",
	"authorization header",
}

// IsTokenRejection reports whether err says the bearer token is invalid,
// expired or missing.
func IsTokenRejection(err error) bool {
	typed := poserr.As(err)
	if typed == nil || typed.Code() != poserr.CodeUnauthorized {
		return false
	}
	msg := strings.ToLower(typed.Message())
	for _, fragment := range tokenMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// Restore loads the persisted session into memory without a network call.
func (s *Store) Restore(ctx context.Context) (session.Session, error) {
	saved, err := s.sessions.Load(ctx)
	if err != nil {
		return session.Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if saved.Authenticated() {
		s.authenticated = true
		if saved.User != nil {
			u := *saved.User
			s.user = &u
		}
	}
	return saved, nil
}

// Login authenticates, persists the session and loads the reference data.
// remember keeps the username for the next login prompt.
func (s *Store) Login(ctx context.Context, username, password string, remember bool) (domain.User, error) {
	req := domain.LoginRequest{Username: strings.TrimSpace(username), Password: password}
	if err := domain.Validate(req); err != nil {
		return domain.User{}, s.fail(ctx, "auth.login", err)
	}

	resp, err := s.api.Login(ctx, req)
	if err != nil {
		return domain.User{}, s.fail(ctx, "auth.login", err)
	}

	saved := session.Session{Token: resp.Token, User: &resp.User}
	if remember {
		saved.RememberedUsername = req.Username
	}
	if err := s.sessions.Save(ctx, saved); err != nil {
		return domain.User{}, s.fail(ctx, "auth.login", poserr.Wrap(poserr.CodeInternal, err, "sesi tidak dapat disimpan"))
	}

	s.mu.Lock()
	u := resp.User
	s.user = &u
	s.authenticated = true
	s.mu.Unlock()

	ctx = s.log.WithUsername(ctx, resp.User.Username)
	if err := s.Invalidate(ctx, AllScopes()); err != nil {
		s.log.Warn(ctx, "initial bootstrap failed", err)
	}
	s.toast.Success("Selamat datang, " + displayName(resp.User))
	return resp.User, nil
}

// Logout drops the token and every cached collection.
func (s *Store) Logout(ctx context.Context) error {
	err := s.sessions.Clear(ctx)
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	if err != nil {
		return s.fail(ctx, "auth.logout", err)
	}
	s.toast.Info("Anda telah keluar")
	return nil
}

// HandleUnauthorized is the client's 401 hook: the session store has already
// been cleared, so only in-memory state is dropped here.
func (s *Store) HandleUnauthorized(ctx context.Context, err error) {
	s.mu.Lock()
	wasAuthenticated := s.authenticated
	s.resetLocked()
	s.mu.Unlock()
	if wasAuthenticated {
		s.log.Warn(ctx, "session ended by backend", err)
		s.toast.Error("Sesi berakhir, silakan login kembali")
	}
}

// CheckSession probes /auth/me. The session is cleared only when the token
// is missing, locally expired, or rejected with a token-related message;
// any other failure keeps the operator signed in and is returned.
func (s *Store) CheckSession(ctx context.Context) (bool, error) {
	saved, err := s.sessions.Load(ctx)
	if err != nil {
		return false, err
	}
	if !saved.Authenticated() {
		s.mu.Lock()
		s.resetLocked()
		s.mu.Unlock()
		return false, nil
	}
	if session.Expired(saved.Token, s.now()) {
		s.log.Info(ctx, "stored token expired")
		return false, s.dropSession(ctx)
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		if IsTokenRejection(err) {
			s.log.Info(ctx, "stored token rejected by backend")
			return false, s.dropSession(ctx)
		}
		s.log.Warn(ctx, "session probe failed; keeping session", err)
		s.mu.Lock()
		s.authenticated = true
		if s.user == nil && saved.User != nil {
			u := *saved.User
			s.user = &u
		}
		s.mu.Unlock()
		return true, err
	}

	saved.User = &user
	if err := s.sessions.Save(ctx, saved); err != nil {
		s.log.Warn(ctx, "session save failed", err)
	}
	s.mu.Lock()
	s.user = &user
	s.authenticated = true
	s.mu.Unlock()
	return true, nil
}

func (s *Store) dropSession(ctx context.Context) error {
	err := s.sessions.Clear(ctx)
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	return err
}

// RememberedUsername is the username offered at the login prompt.
func (s *Store) RememberedUsername(ctx context.Context) string {
	saved, err := s.sessions.Load(ctx)
	if err != nil {
		return ""
	}
	return saved.RememberedUsername
}

func (s *Store) UpdateProfile(ctx context.Context, in domain.ProfileUpdate) (domain.User, error) {
	user, err := s.api.UpdateProfile(ctx, in)
	if err != nil {
		return domain.User{}, s.fail(ctx, "auth.profile", err)
	}
	if saved, loadErr := s.sessions.Load(ctx); loadErr == nil && saved.Authenticated() {
		saved.User = &user
		if err := s.sessions.Save(ctx, saved); err != nil {
			s.log.Warn(ctx, "session save failed", err)
		}
	}
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	s.written(ctx, "auth.profile", "Profil diperbarui")
	return user, nil
}

func (s *Store) ChangePassword(ctx context.Context, in domain.PasswordChange) error {
	if err := domain.Validate(in); err != nil {
		return s.fail(ctx, "auth.password", err)
	}
	if err := s.api.ChangePassword(ctx, in); err != nil {
		return s.fail(ctx, "auth.password", err)
	}
	s.written(ctx, "auth.password", "Kata sandi diubah")
	return nil
}

func displayName(u domain.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
