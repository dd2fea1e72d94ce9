package identity_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func setupStore(t *testing.T, opts ...identity.StoreOption) (*identity.Store[string, *identity.Account[string]], *bun.DB) {
	t.Helper()

	db := setupDB(t)
	require.NoError(t, identity.CreateAccountSchema(context.Background(), db))

	return identity.NewAccountStore(db, opts...), db
}

func newTestAccount(username, email string) *identity.Account[string] {
	account := identity.NewAccount(username)
	account.Email = email
	account.SecurityStamp = identity.NewSecurityStamp()
	account.LockoutEnabled = true
	return account
}

func TestCreateThenFindByIDRoundTrips(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	lockoutEnd := time.Date(2030, 6, 1, 12, 30, 0, 0, time.UTC)

	account := newTestAccount("ana", "ana@example.com")
	account.EmailConfirmed = true
	account.PasswordHash = "opaque-hash"
	account.AccessFailedCount = 3
	account.TwoFactorEnabled = true
	account.PhoneNumber = "+14155552671"
	account.PhoneConfirmed = true
	account.SetLockoutEndAt(lockoutEnd)

	require.NoError(t, store.Create(ctx, account))

	found, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)

	assert.Equal(t, account.ID, found.ID)
	assert.Equal(t, "ana", found.Username)
	assert.Equal(t, "ana@example.com", found.Email)
	assert.True(t, found.EmailConfirmed)
	assert.Equal(t, "opaque-hash", found.PasswordHash)
	assert.Equal(t, account.SecurityStamp, found.SecurityStamp)
	assert.True(t, found.LockoutEnabled)
	assert.Equal(t, 3, found.AccessFailedCount)
	assert.True(t, found.TwoFactorEnabled)
	assert.Equal(t, "+14155552671", found.PhoneNumber)
	assert.True(t, found.PhoneConfirmed)
	assert.True(t, found.GetLockoutEndAt().Equal(lockoutEnd))
}

func TestCreateRejectsNilAccount(t *testing.T) {
	store, _ := setupStore(t)

	err := store.Create(context.Background(), nil)
	assert.True(t, identity.IsInvalidArgument(err))
}

func TestCreateGeneratesMissingKey(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	account := &identity.Account[string]{Username: "keyless"}
	require.NoError(t, store.Create(ctx, account))
	assert.NotEmpty(t, account.ID)

	found, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "keyless", found.Username)
}

func TestUpdatePersistsScalarChanges(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	account := newTestAccount("bruno", "bruno@example.com")
	require.NoError(t, store.Create(ctx, account))

	account.Email = "bruno@new.example.com"
	account.EmailConfirmed = true
	account.AccessFailedCount = 2
	require.NoError(t, store.Update(ctx, account))

	found, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "bruno@new.example.com", found.Email)
	assert.True(t, found.EmailConfirmed)
	assert.Equal(t, 2, found.AccessFailedCount)
}

func TestDeleteRemovesAccount(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	account := newTestAccount("carla", "carla@example.com")
	require.NoError(t, store.Create(ctx, account))
	require.NoError(t, store.Delete(ctx, account))

	_, err := store.FindByID(ctx, account.ID)
	assert.True(t, identity.IsNotFound(err))
}

func TestDeleteCascadesOwnedRows(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()

	account := newTestAccount("dora", "dora@example.com")
	require.NoError(t, store.Create(ctx, account))
	require.NoError(t, store.AddLogin(ctx, account, identity.LoginInfo{Provider: "github", ProviderKey: "g-1"}))
	require.NoError(t, store.AddClaim(ctx, account, identity.Claim{Type: "scope", Value: "read"}))

	require.NoError(t, store.Delete(ctx, account))

	loginCount, err := db.NewSelect().
		Model((*identity.AccountLogin[string])(nil)).
		Where("account_id = ?", account.ID).
		Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, loginCount)

	claimCount, err := db.NewSelect().
		Model((*identity.AccountClaim[string])(nil)).
		Where("account_id = ?", account.ID).
		Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, claimCount)
}

func TestFindByIDRejectsZeroKey(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.FindByID(context.Background(), "")
	assert.True(t, identity.IsInvalidArgument(err))
}

func TestFindByUsername(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	account := newTestAccount("elena", "elena@example.com")
	require.NoError(t, store.Create(ctx, account))

	found, err := store.FindByUsername(ctx, "elena")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	_, err = store.FindByUsername(ctx, "nobody")
	assert.True(t, identity.IsNotFound(err))
}

func TestFindByEmail(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	account := newTestAccount("felix", "felix@example.com")
	require.NoError(t, store.Create(ctx, account))

	found, err := store.FindByEmail(ctx, "felix@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	_, err = store.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, identity.IsNotFound(err))
}

func TestAmbiguousUsernameIsIntegrityError(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestAccount("twin", "one@example.com")))
	require.NoError(t, store.Create(ctx, newTestAccount("twin", "two@example.com")))

	_, err := store.FindByUsername(ctx, "twin")
	assert.True(t, identity.IsIntegrity(err))
}

func TestIntegerKeyedStore(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	require.NoError(t, identity.CreateAccountSchemaFor[int64, *identity.Account[int64]](ctx, db))

	store := identity.NewStore(db, identity.ModelHandlers[int64, *identity.Account[int64]]{
		NewRecord: func() *identity.Account[int64] { return &identity.Account[int64]{} },
	})

	account := &identity.Account[int64]{ID: 42, Username: "intkey", Email: "intkey@example.com"}
	require.NoError(t, store.Create(ctx, account))

	found, err := store.FindByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), found.ID)
	assert.Equal(t, "intkey", found.Username)

	_, err = store.FindByID(ctx, 0)
	assert.True(t, identity.IsInvalidArgument(err))
}

func TestWithStoreReleasesOnExit(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, identity.CreateAccountSchema(ctx, db))

	handlers := identity.ModelHandlers[string, *identity.Account[string]]{
		NewRecord: func() *identity.Account[string] { return &identity.Account[string]{} },
		NewKey:    identity.NewKey,
	}

	var leaked *identity.Store[string, *identity.Account[string]]
	err := identity.WithStore(db, handlers, func(s *identity.Store[string, *identity.Account[string]]) error {
		leaked = s
		return s.Create(ctx, newTestAccount("gina", "gina@example.com"))
	})
	require.NoError(t, err)

	_, err = leaked.FindByUsername(ctx, "gina")
	assert.True(t, identity.IsDisposed(err))
}

func TestDisposedStoreFailsEveryOperation(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	account := newTestAccount("hugo", "hugo@example.com")
	login := identity.LoginInfo{Provider: "github", ProviderKey: "h-1"}

	require.NoError(t, store.Close())

	ops := map[string]func() error{
		"Create":         func() error { return store.Create(ctx, account) },
		"Update":         func() error { return store.Update(ctx, account) },
		"Delete":         func() error { return store.Delete(ctx, account) },
		"FindByID":       func() error { _, err := store.FindByID(ctx, account.ID); return err },
		"FindByUsername": func() error { _, err := store.FindByUsername(ctx, "hugo"); return err },
		"FindByEmail":    func() error { _, err := store.FindByEmail(ctx, "hugo@example.com"); return err },
		"GetPasswordHash": func() error {
			_, err := store.GetPasswordHash(ctx, account)
			return err
		},
		"SetPasswordHash": func() error { return store.SetPasswordHash(ctx, account, "h") },
		"HasPassword": func() error {
			_, err := store.HasPassword(ctx, account)
			return err
		},
		"GetEmail":          func() error { _, err := store.GetEmail(ctx, account); return err },
		"SetEmail":          func() error { return store.SetEmail(ctx, account, "x@example.com") },
		"GetEmailConfirmed": func() error { _, err := store.GetEmailConfirmed(ctx, account); return err },
		"SetEmailConfirmed": func() error { return store.SetEmailConfirmed(ctx, account, true) },
		"GetLockoutEndAt":   func() error { _, err := store.GetLockoutEndAt(ctx, account); return err },
		"SetLockoutEndAt":   func() error { return store.SetLockoutEndAt(ctx, account, time.Now()) },
		"GetLockoutEnabled": func() error { _, err := store.GetLockoutEnabled(ctx, account); return err },
		"SetLockoutEnabled": func() error { return store.SetLockoutEnabled(ctx, account, true) },
		"GetAccessFailedCount": func() error {
			_, err := store.GetAccessFailedCount(ctx, account)
			return err
		},
		"IncrementAccessFailedCount": func() error {
			_, err := store.IncrementAccessFailedCount(ctx, account)
			return err
		},
		"ResetAccessFailedCount": func() error { return store.ResetAccessFailedCount(ctx, account) },
		"GetTwoFactorEnabled":    func() error { _, err := store.GetTwoFactorEnabled(ctx, account); return err },
		"SetTwoFactorEnabled":    func() error { return store.SetTwoFactorEnabled(ctx, account, true) },
		"GetPhoneNumber":         func() error { _, err := store.GetPhoneNumber(ctx, account); return err },
		"SetPhoneNumber":         func() error { return store.SetPhoneNumber(ctx, account, "+14155552671") },
		"GetPhoneConfirmed":      func() error { _, err := store.GetPhoneConfirmed(ctx, account); return err },
		"SetPhoneConfirmed":      func() error { return store.SetPhoneConfirmed(ctx, account, true) },
		"GetSecurityStamp":       func() error { _, err := store.GetSecurityStamp(ctx, account); return err },
		"SetSecurityStamp":       func() error { return store.SetSecurityStamp(ctx, account, "stamp") },
		"AddLogin":               func() error { return store.AddLogin(ctx, account, login) },
		"RemoveLogin":            func() error { return store.RemoveLogin(ctx, account, login) },
		"GetLogins":              func() error { _, err := store.GetLogins(ctx, account); return err },
		"FindByLogin":            func() error { _, err := store.FindByLogin(ctx, login); return err },
		"GetClaims":              func() error { _, err := store.GetClaims(ctx, account); return err },
		"AddClaim":               func() error { return store.AddClaim(ctx, account, identity.Claim{Type: "t"}) },
		"RemoveClaims":           func() error { return store.RemoveClaims(ctx, account, identity.Claim{Type: "t"}) },
		"AddToRole":              func() error { return store.AddToRole(ctx, account, "admin") },
		"RemoveFromRole":         func() error { return store.RemoveFromRole(ctx, account, "admin") },
		"GetRoles":               func() error { _, err := store.GetRoles(ctx, account); return err },
		"IsInRole":               func() error { _, err := store.IsInRole(ctx, account, "admin"); return err },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.True(t, identity.IsDisposed(op()), "expected disposed error")
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	store, _ := setupStore(t)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
