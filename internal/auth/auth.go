// Package auth implements the local identity gate. It is a convenience gate in
// front of the client, not a security boundary.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/malonaz/talkzen/internal/configuration"
	"github.com/malonaz/talkzen/internal/debug"
	"github.com/malonaz/talkzen/store"
)

var (
	// ErrInvalidCredentials is returned when the email or password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrGuestLimit is returned once a guest used up its message quota.
	ErrGuestLimit = errors.New("guest message limit reached")
	// ErrNotLoggedIn is returned when an identity is required.
	ErrNotLoggedIn = errors.New("not logged in")
)

// Kind of user.
type Kind string

const (
	KindAdmin Kind = "admin"
	KindGuest Kind = "guest"
)

const guestName = "Guest User"

// User is the current identity.
type User struct {
	Kind        Kind   `json:"type"`
	DisplayName string `json:"name"`
	Email       string `json:"email,omitempty"`
	// Unix milliseconds.
	LoginTime int64 `json:"loginTime"`
}

// IsGuest returns true for the guest identity.
func (u *User) IsGuest() bool { return u != nil && u.Kind == KindGuest }

// Gate resolves the current identity.
type Gate struct {
	kv         store.Store
	config     *configuration.AuthConfig
	guestLimit int
	hash       []byte
	now        func() time.Time

	mu      sync.Mutex
	current *User
}

// NewGate returns a gate. A plain configured password is hashed here, once.
func NewGate(kv store.Store, config *configuration.AuthConfig, guestLimit int) (*Gate, error) {
	hash := []byte(config.AdminPasswordHash)
	if len(hash) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(config.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing admin password: %w", err)
		}
	}
	return &Gate{
		kv:         kv,
		config:     config,
		guestLimit: guestLimit,
		hash:       hash,
		now:        time.Now,
	}, nil
}

// Restore loads the persisted identity, if any. Only admins are persisted.
func (g *Gate) Restore(ctx context.Context) (*User, error) {
	value, ok, err := g.kv.Get(ctx, store.KeyUser)
	if err != nil {
		return nil, fmt.Errorf("reading user: %w", err)
	}
	if !ok {
		return nil, nil
	}
	user := &User{}
	if err := json.Unmarshal([]byte(value), user); err != nil || user.Kind != KindAdmin {
		debug.GetLogger().Warn("ignoring persisted user", "error", err)
		return nil, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = user
	return user, nil
}

// Current identity, nil if nobody is logged in.
func (g *Gate) Current() *User {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return nil
	}
	user := *g.current
	return &user
}

// Login as the admin.
func (g *Gate) Login(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	emailMatch := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(g.config.AdminEmail))) == 1
	// Always compare the password so both failures take the same time.
	passwordErr := bcrypt.CompareHashAndPassword(g.hash, []byte(password))
	if !emailMatch || passwordErr != nil {
		return nil, ErrInvalidCredentials
	}

	user := &User{
		Kind:        KindAdmin,
		DisplayName: g.config.AdminName,
		Email:       g.config.AdminEmail,
		LoginTime:   g.now().UnixMilli(),
	}
	bytes, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("marshaling user: %w", err)
	}
	if err := g.kv.Set(ctx, store.KeyUser, string(bytes)); err != nil {
		return nil, fmt.Errorf("persisting user: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = user
	return user, nil
}

// LoginAsGuest always succeeds. The guest identity lives in memory only,
// its usage counter is persisted.
func (g *Gate) LoginAsGuest(ctx context.Context) (*User, error) {
	if err := g.kv.Delete(ctx, store.KeyUser); err != nil {
		return nil, fmt.Errorf("removing persisted user: %w", err)
	}
	user := &User{Kind: KindGuest, DisplayName: guestName, LoginTime: g.now().UnixMilli()}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = user
	return user, nil
}

// Logout forgets the current identity.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.kv.Delete(ctx, store.KeyUser); err != nil {
		return fmt.Errorf("removing persisted user: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = nil
	return nil
}

// GuestUsage returns how many messages guests sent and the limit.
func (g *Gate) GuestUsage(ctx context.Context) (int, int, error) {
	value, err := store.GetOrDefault(ctx, g.kv, store.KeyGuestCount, "0")
	if err != nil {
		return 0, 0, fmt.Errorf("reading guest count: %w", err)
	}
	count, err := strconv.Atoi(value)
	if err != nil || count < 0 {
		debug.GetLogger().Warn("resetting undecodable guest count", "value", value)
		count = 0
	}
	return count, g.guestLimit, nil
}

// ConsumeGuestMessage counts one message against the guest quota. It is a no-op for admins.
func (g *Gate) ConsumeGuestMessage(ctx context.Context) error {
	user := g.Current()
	if user == nil {
		return ErrNotLoggedIn
	}
	if !user.IsGuest() {
		return nil
	}
	count, limit, err := g.GuestUsage(ctx)
	if err != nil {
		return err
	}
	if count >= limit {
		return ErrGuestLimit
	}
	if err := g.kv.Set(ctx, store.KeyGuestCount, strconv.Itoa(count+1)); err != nil {
		return fmt.Errorf("persisting guest count: %w", err)
	}
	return nil
}
