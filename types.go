package identity

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AccountModel is the capability surface an account type must expose for the
// store to manage it. *Account[K] satisfies it; custom types get it for free
// by embedding Account[K].
type AccountModel[K Key] interface {
	GetID() K
	SetID(K)
	GetUsername() string
	SetUsername(string)
	GetEmail() string
	SetEmail(string)
	GetEmailConfirmed() bool
	SetEmailConfirmed(bool)
	GetPasswordHash() string
	SetPasswordHash(string)
	GetSecurityStamp() string
	SetSecurityStamp(string)
	GetLockoutEndAt() time.Time
	SetLockoutEndAt(time.Time)
	GetLockoutEnabled() bool
	SetLockoutEnabled(bool)
	GetAccessFailedCount() int
	SetAccessFailedCount(int)
	GetTwoFactorEnabled() bool
	SetTwoFactorEnabled(bool)
	GetPhoneNumber() string
	SetPhoneNumber(string)
	GetPhoneConfirmed() bool
	SetPhoneConfirmed(bool)
}

// ModelHandlers carries the per-type callbacks the store cannot derive from
// the model itself.
type ModelHandlers[K Key, T AccountModel[K]] struct {
	// NewRecord returns an empty record for the mapper to hydrate.
	NewRecord func() T
	// NewKey generates a key for rows created by the store (roles created on
	// demand, accounts missing an ID). Nil means the storage engine assigns
	// keys, e.g. integer autoincrement.
	NewKey func() K
}

// AccountStorer is the base persistence contract: create, update, delete and
// the identity lookups.
type AccountStorer[K Key, T AccountModel[K]] interface {
	Create(ctx context.Context, account T) error
	Update(ctx context.Context, account T) error
	Delete(ctx context.Context, account T) error
	FindByID(ctx context.Context, id K) (T, error)
	FindByUsername(ctx context.Context, username string) (T, error)
}

// PasswordStorer exposes the opaque password hash. Hashing is the caller's
// concern; see HashPassword.
type PasswordStorer[K Key, T AccountModel[K]] interface {
	GetPasswordHash(ctx context.Context, account T) (string, error)
	SetPasswordHash(ctx context.Context, account T, hash string) error
	HasPassword(ctx context.Context, account T) (bool, error)
}

// EmailStorer exposes the email address, its confirmation flag, and the
// email lookup.
type EmailStorer[K Key, T AccountModel[K]] interface {
	GetEmail(ctx context.Context, account T) (string, error)
	SetEmail(ctx context.Context, account T, email string) error
	GetEmailConfirmed(ctx context.Context, account T) (bool, error)
	SetEmailConfirmed(ctx context.Context, account T, confirmed bool) error
	FindByEmail(ctx context.Context, email string) (T, error)
}

// LockoutStorer exposes the lockout window and the failed-access counter.
// Counter mutations are in-memory only; the caller persists via Update.
type LockoutStorer[K Key, T AccountModel[K]] interface {
	GetLockoutEndAt(ctx context.Context, account T) (time.Time, error)
	SetLockoutEndAt(ctx context.Context, account T, end time.Time) error
	GetLockoutEnabled(ctx context.Context, account T) (bool, error)
	SetLockoutEnabled(ctx context.Context, account T, enabled bool) error
	GetAccessFailedCount(ctx context.Context, account T) (int, error)
	IncrementAccessFailedCount(ctx context.Context, account T) (int, error)
	ResetAccessFailedCount(ctx context.Context, account T) error
}

// TwoFactorStorer exposes the two-factor flag.
type TwoFactorStorer[K Key, T AccountModel[K]] interface {
	GetTwoFactorEnabled(ctx context.Context, account T) (bool, error)
	SetTwoFactorEnabled(ctx context.Context, account T, enabled bool) error
}

// PhoneStorer exposes the phone number and its confirmation flag.
type PhoneStorer[K Key, T AccountModel[K]] interface {
	GetPhoneNumber(ctx context.Context, account T) (string, error)
	SetPhoneNumber(ctx context.Context, account T, number string) error
	GetPhoneConfirmed(ctx context.Context, account T) (bool, error)
	SetPhoneConfirmed(ctx context.Context, account T, confirmed bool) error
}

// LoginStorer manages external-login associations. Add and Remove persist
// immediately rather than deferring to Update.
type LoginStorer[K Key, T AccountModel[K]] interface {
	AddLogin(ctx context.Context, account T, login LoginInfo) error
	RemoveLogin(ctx context.Context, account T, login LoginInfo) error
	GetLogins(ctx context.Context, account T) ([]LoginInfo, error)
	FindByLogin(ctx context.Context, login LoginInfo) (T, error)
}

// SecurityStampStorer exposes the opaque session-invalidation token.
type SecurityStampStorer[K Key, T AccountModel[K]] interface {
	GetSecurityStamp(ctx context.Context, account T) (string, error)
	SetSecurityStamp(ctx context.Context, account T, stamp string) error
}

// ClaimStorer manages claims attached to an account. Mutations persist
// immediately.
type ClaimStorer[K Key, T AccountModel[K]] interface {
	GetClaims(ctx context.Context, account T) ([]Claim, error)
	AddClaim(ctx context.Context, account T, claim Claim) error
	RemoveClaims(ctx context.Context, account T, claim Claim) error
}

// RoleStorer manages role membership. Roles are created on demand when first
// assigned.
type RoleStorer[K Key, T AccountModel[K]] interface {
	AddToRole(ctx context.Context, account T, roleName string) error
	RemoveFromRole(ctx context.Context, account T, roleName string) error
	GetRoles(ctx context.Context, account T) ([]string, error)
	IsInRole(ctx context.Context, account T, roleName string) (bool, error)
}

// Logger is the minimal logging surface the store needs.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(format string) string {
	if strings.HasSuffix(format, "\n") {
		return format
	}
	return format + "\n"
}
