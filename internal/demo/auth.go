package demo

import (
	"errors"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/normalize"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidToken       = errors.New("invalid or expired token")
)

type AuthManager struct {
	mu       sync.RWMutex
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
	users    map[string]credential
}

type credential struct {
	id       string
	name     string
	password string
	role     string
	active   bool
}

type tokenClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users []SeedUser) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	manager := &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
		users:    make(map[string]credential, len(users)),
	}
	for _, u := range users {
		manager.users[strings.ToLower(u.Username)] = credential{
			id:       u.ID,
			name:     u.Name,
			password: u.PasswordHash,
			role:     u.Role,
			active:   true,
		}
	}
	return manager
}

func (a *AuthManager) Login(req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	a.mu.RLock()
	cred, ok := a.users[username]
	a.mu.RUnlock()
	if !ok || !verifyPassword(cred.password, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !cred.active {
		return domain.LoginResponse{}, errors.New("account is inactive")
	}

	token, err := a.sign(username, cred.role, a.now().UTC().Add(a.tokenTTL))
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{Token: token, User: cred.user(username)}, nil
}

// ParseToken verifies an HS256 token and returns its user.
func (a *AuthManager) ParseToken(tokenStr string) (domain.User, error) {
	claims := &tokenClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return domain.User{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.User{}, errors.New("invalid token subject")
	}

	a.mu.RLock()
	cred, ok := a.users[sub]
	a.mu.RUnlock()
	if !ok || !cred.active {
		return domain.User{}, errInvalidToken
	}
	return cred.user(sub), nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "tokoku-demo",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) UpdateProfile(username string, in domain.ProfileUpdate) (domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cred, ok := a.users[username]
	if !ok {
		return domain.User{}, errInvalidToken
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		cred.name = name
	}
	a.users[username] = cred
	return cred.user(username), nil
}

func (a *AuthManager) ChangePassword(username string, in domain.PasswordChange) error {
	if len(in.NewPassword) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	a.mu.RLock()
	cred, ok := a.users[username]
	a.mu.RUnlock()
	if !ok || !verifyPassword(cred.password, in.CurrentPassword) {
		return errors.New("current password is incorrect")
	}
	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		return errors.New("failed to hash password")
	}

	a.mu.Lock()
	cred.password = hash
	a.users[username] = cred
	a.mu.Unlock()
	return nil
}

func (c credential) user(username string) domain.User {
	return normalize.User(domain.User{
		ID:       c.id,
		Username: username,
		Name:     c.name,
		Role:     domain.Code(c.role),
	})
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
