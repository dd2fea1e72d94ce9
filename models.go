package identity

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/uptrace/bun"
)

// Key is the set of key schemes an account table may use. String keys default
// to generated GUIDs; integer keys are left to the storage engine to assign.
type Key interface {
	~string | ~int | ~int32 | ~int64
}

// Account is the persisted account record, parameterized by its key scheme.
// Custom account types embed it with the bun `extend` tag to add columns
// without forking the store:
//
//	type Member struct {
//		identity.Account[string] `bun:",extend"`
//		DisplayName string       `bun:"display_name"`
//	}
type Account[K Key] struct {
	bun.BaseModel `bun:"table:identity_accounts,alias:acct"`

	ID                K          `bun:"id,pk,nullzero" json:"id,omitempty"`
	Username          string     `bun:"username,notnull" json:"username,omitempty"`
	Email             string     `bun:"email" json:"email,omitempty"`
	EmailConfirmed    bool       `bun:"email_confirmed" json:"email_confirmed,omitempty"`
	PasswordHash      string     `bun:"password_hash" json:"-"`
	SecurityStamp     string     `bun:"security_stamp" json:"-"`
	LockoutEndAt      *time.Time `bun:"lockout_end_at,nullzero" json:"lockout_end_at,omitempty"`
	LockoutEnabled    bool       `bun:"lockout_enabled" json:"lockout_enabled,omitempty"`
	AccessFailedCount int        `bun:"access_failed_count" json:"access_failed_count,omitempty"`
	TwoFactorEnabled  bool       `bun:"two_factor_enabled" json:"two_factor_enabled,omitempty"`
	PhoneNumber       string     `bun:"phone_number" json:"phone_number,omitempty"`
	PhoneConfirmed    bool       `bun:"phone_confirmed" json:"phone_confirmed,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NewAccount returns a string-keyed account with a generated GUID key.
func NewAccount(username string) *Account[string] {
	return &Account[string]{
		ID:       NewKey(),
		Username: username,
	}
}

func (a *Account[K]) GetID() K { return a.ID }
func (a *Account[K]) SetID(id K) { a.ID = id }
func (a *Account[K]) GetUsername() string { return a.Username }
func (a *Account[K]) SetUsername(v string) { a.Username = v }
func (a *Account[K]) GetEmail() string { return a.Email }
func (a *Account[K]) SetEmail(v string) { a.Email = v }
func (a *Account[K]) GetEmailConfirmed() bool { return a.EmailConfirmed }
func (a *Account[K]) SetEmailConfirmed(v bool) { a.EmailConfirmed = v }
func (a *Account[K]) GetPasswordHash() string { return a.PasswordHash }
func (a *Account[K]) SetPasswordHash(v string) { a.PasswordHash = v }
func (a *Account[K]) GetSecurityStamp() string { return a.SecurityStamp }
func (a *Account[K]) SetSecurityStamp(v string) { a.SecurityStamp = v }
func (a *Account[K]) GetLockoutEnabled() bool { return a.LockoutEnabled }
func (a *Account[K]) SetLockoutEnabled(v bool) { a.LockoutEnabled = v }
func (a *Account[K]) GetAccessFailedCount() int { return a.AccessFailedCount }
func (a *Account[K]) SetAccessFailedCount(v int) { a.AccessFailedCount = v }
func (a *Account[K]) GetTwoFactorEnabled() bool { return a.TwoFactorEnabled }
func (a *Account[K]) SetTwoFactorEnabled(v bool) { a.TwoFactorEnabled = v }
func (a *Account[K]) GetPhoneNumber() string { return a.PhoneNumber }
func (a *Account[K]) SetPhoneNumber(v string) { a.PhoneNumber = v }
func (a *Account[K]) GetPhoneConfirmed() bool { return a.PhoneConfirmed }
func (a *Account[K]) SetPhoneConfirmed(v bool) { a.PhoneConfirmed = v }

// GetLockoutEndAt returns the lockout expiry in UTC. The zero time means the
// account has no lockout end date ("never").
func (a *Account[K]) GetLockoutEndAt() time.Time {
	if a.LockoutEndAt == nil {
		return time.Time{}
	}
	return a.LockoutEndAt.UTC()
}

// SetLockoutEndAt stores the lockout expiry normalized to UTC. The zero time
// maps back to an unset column rather than being stored literally, so "never"
// round-trips exactly.
func (a *Account[K]) SetLockoutEndAt(end time.Time) {
	if end.IsZero() {
		a.LockoutEndAt = nil
		return
	}
	utc := end.UTC()
	a.LockoutEndAt = &utc
}

// Touch refreshes the UpdatedAt timestamp.
func (a *Account[K]) Touch() {
	now := time.Now().UTC()
	a.UpdatedAt = &now
}

// AccountClaim is a claim type/value pair owned by exactly one account. Rows
// are removed with their owner by the schema's cascade rule.
type AccountClaim[K Key] struct {
	bun.BaseModel `bun:"table:identity_account_claims,alias:aclm"`

	ID         string `bun:"id,pk" json:"id,omitempty"`
	AccountID  K      `bun:"account_id,notnull" json:"account_id,omitempty"`
	ClaimType  string `bun:"claim_type,notnull" json:"claim_type,omitempty"`
	ClaimValue string `bun:"claim_value" json:"claim_value,omitempty"`
}

// AccountLogin associates an external provider identity with one account.
// The (provider, provider_key) pair is the lookup key that resolves an
// account from a federated login.
type AccountLogin[K Key] struct {
	bun.BaseModel `bun:"table:identity_account_logins,alias:algn"`

	ID          string `bun:"id,pk" json:"id,omitempty"`
	AccountID   K      `bun:"account_id,notnull" json:"account_id,omitempty"`
	Provider    string `bun:"provider,notnull" json:"provider,omitempty"`
	ProviderKey string `bun:"provider_key,notnull" json:"provider_key,omitempty"`
}

// Role is a named role, keyed independently of accounts.
type Role[K Key] struct {
	bun.BaseModel `bun:"table:identity_roles,alias:role"`

	ID   K      `bun:"id,pk,nullzero" json:"id,omitempty"`
	Name string `bun:"name,notnull" json:"name,omitempty"`
}

// AccountRole links accounts and roles many-to-many. It owns no state beyond
// the two references and its own identity.
type AccountRole[K Key] struct {
	bun.BaseModel `bun:"table:identity_account_roles,alias:arole"`

	ID        string `bun:"id,pk" json:"id,omitempty"`
	AccountID K      `bun:"account_id,notnull" json:"account_id,omitempty"`
	RoleID    K      `bun:"role_id,notnull" json:"role_id,omitempty"`
}

// LoginInfo is the external-login value pair used by the login capability.
type LoginInfo struct {
	Provider    string `json:"provider"`
	ProviderKey string `json:"provider_key"`
}

// Validate enforces that both halves of the login pair are present.
func (l LoginInfo) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Provider, validation.Required, validation.Length(1, 128)),
		validation.Field(&l.ProviderKey, validation.Required, validation.Length(1, 256)),
	)
}

// Claim is the claim value pair used by the claim capability.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Validate enforces that the claim carries a type.
func (c Claim) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required, validation.Length(1, 256)),
	)
}
