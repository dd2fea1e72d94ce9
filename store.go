package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/uptrace/bun"
)

// Store is the generic account store. One instance is bound to one
// connection, which it owns for its lifetime; the connection is the
// serialization point, so a store is not meant to be shared across
// concurrent callers without external synchronization.
//
// The store is stateless between calls. Its only lifecycle state is the
// dispose flag: once Close runs, every operation fails with ErrStoreDisposed
// before attempting I/O.
type Store[K Key, T AccountModel[K]] struct {
	db       *bun.DB
	handlers ModelHandlers[K, T]
	disposed atomic.Bool

	storeConfig
}

type storeConfig struct {
	logger        Logger
	validatePhone bool
	phoneRegion   string
}

// StoreOption customizes store behavior.
type StoreOption func(*storeConfig)

// WithLogger replaces the default logger.
func WithLogger(l Logger) StoreOption {
	return func(c *storeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPhoneValidation makes SetPhoneNumber validate and normalize numbers to
// E.164 using the given default region (e.g. "US"). Off by default: the
// store treats phone numbers as opaque.
func WithPhoneValidation(region string) StoreOption {
	return func(c *storeConfig) {
		c.validatePhone = true
		c.phoneRegion = region
	}
}

// NewStore builds a store for a custom key scheme and account type.
func NewStore[K Key, T AccountModel[K]](db *bun.DB, handlers ModelHandlers[K, T], opts ...StoreOption) *Store[K, T] {
	if handlers.NewRecord == nil {
		panic("identity: ModelHandlers.NewRecord is required")
	}

	s := &Store[K, T]{
		db:       db,
		handlers: handlers,
		storeConfig: storeConfig{
			logger: defLogger{},
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s.storeConfig)
		}
	}
	return s
}

// NewAccountStore builds a store for the built-in string-keyed account with
// generated GUID keys.
func NewAccountStore(db *bun.DB, opts ...StoreOption) *Store[string, *Account[string]] {
	return NewStore(db, ModelHandlers[string, *Account[string]]{
		NewRecord: func() *Account[string] { return &Account[string]{} },
		NewKey:    NewKey,
	}, opts...)
}

// WithStore runs fn with a store bound to db and releases the store on every
// exit path, including panics and fn errors.
func WithStore[K Key, T AccountModel[K]](db *bun.DB, handlers ModelHandlers[K, T], fn func(*Store[K, T]) error, opts ...StoreOption) error {
	s := NewStore(db, handlers, opts...)
	defer s.Close()
	return fn(s)
}

// Close disposes the store and releases the underlying connection. Closing
// an already disposed store is a no-op.
func (s *Store[K, T]) Close() error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return wrapStorage(err, "close connection")
	}
	return nil
}

// RunInTx executes fn inside a transaction. The transaction commits only if
// fn returns nil; any error leaves it uncommitted.
func (s *Store[K, T]) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	if err := s.guard(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.db.RunInTx(ctx, opts, fn)
	}
}

// Create persists the account inside a transaction. If the underlying save
// fails the transaction is discarded and no partial state is observable.
func (s *Store[K, T]) Create(ctx context.Context, account T) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}

	s.prepareDefaults(account)

	return s.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(account).Exec(ctx); err != nil {
			s.logger.Error("create account failed: %v", err)
			return wrapStorage(err, "persist account")
		}
		return nil
	})
}

// Update persists all scalar field changes. A single row write needs no
// extra transaction.
func (s *Store[K, T]) Update(ctx context.Context, account T) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}

	if t, ok := any(account).(interface{ Touch() }); ok {
		t.Touch()
	}

	if _, err := s.db.NewUpdate().Model(account).WherePK().Exec(ctx); err != nil {
		return wrapStorage(err, "update account")
	}
	return nil
}

// Delete removes the account row. Cascading removal of claims, logins, and
// role links is declared in the schema, not re-implemented here.
func (s *Store[K, T]) Delete(ctx context.Context, account T) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}

	if _, err := s.db.NewDelete().Model(account).WherePK().Exec(ctx); err != nil {
		return wrapStorage(err, "delete account")
	}
	return nil
}

// FindByID loads an account by key. A zero key is rejected before I/O; a
// missing row yields ErrNotFound so callers can distinguish it from a
// system error.
func (s *Store[K, T]) FindByID(ctx context.Context, id K) (T, error) {
	var zero T
	if err := s.guard(); err != nil {
		return zero, err
	}

	var zeroKey K
	if id == zeroKey {
		return zero, ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "id",
		})
	}

	record := s.handlers.NewRecord()
	record.SetID(id)

	err := s.db.NewSelect().Model(record).WherePK().Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound.Clone().WithMetadata(map[string]any{
				"id": fmt.Sprintf("%v", id),
			})
		}
		return zero, wrapStorage(err, "load account by id")
	}
	return record, nil
}

// FindByUsername resolves an account by exact username match. Exactly zero
// or one row may match; more than one is an integrity violation.
func (s *Store[K, T]) FindByUsername(ctx context.Context, username string) (T, error) {
	var zero T
	if err := s.guard(); err != nil {
		return zero, err
	}
	if username == "" {
		return zero, ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "username",
		})
	}
	return s.findOne(ctx, "username", username)
}

// FindByEmail resolves an account by exact email match, with the same
// uniqueness contract as FindByUsername.
func (s *Store[K, T]) FindByEmail(ctx context.Context, email string) (T, error) {
	var zero T
	if err := s.guard(); err != nil {
		return zero, err
	}
	if email == "" {
		return zero, ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "email",
		})
	}
	return s.findOne(ctx, "email", email)
}

func (s *Store[K, T]) findOne(ctx context.Context, column string, value any) (T, error) {
	var zero T

	records := make([]T, 0, 2)
	err := s.db.NewSelect().
		Model(&records).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(2).
		Scan(ctx)
	if err != nil {
		return zero, wrapStorage(err, "query accounts by "+column)
	}

	switch len(records) {
	case 0:
		return zero, ErrNotFound.Clone().WithMetadata(map[string]any{
			column: value,
		})
	case 1:
		return records[0], nil
	default:
		return zero, ErrIntegrity.Clone().WithMetadata(map[string]any{
			column: value,
		})
	}
}

func (s *Store[K, T]) prepareDefaults(account T) {
	if s.handlers.NewKey == nil {
		return
	}
	var zeroKey K
	if account.GetID() == zeroKey {
		account.SetID(s.handlers.NewKey())
	}
}

func (s *Store[K, T]) guard() error {
	if s.disposed.Load() {
		return ErrStoreDisposed
	}
	return nil
}

func (s *Store[K, T]) guardAccount(account T) error {
	if err := s.guard(); err != nil {
		return err
	}
	if isNilRecord(account) {
		return ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "account",
		})
	}
	return nil
}

func isNilRecord(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

var (
	_ AccountStorer[string, *Account[string]]       = (*Store[string, *Account[string]])(nil)
	_ PasswordStorer[string, *Account[string]]      = (*Store[string, *Account[string]])(nil)
	_ EmailStorer[string, *Account[string]]         = (*Store[string, *Account[string]])(nil)
	_ LockoutStorer[string, *Account[string]]       = (*Store[string, *Account[string]])(nil)
	_ TwoFactorStorer[string, *Account[string]]     = (*Store[string, *Account[string]])(nil)
	_ PhoneStorer[string, *Account[string]]         = (*Store[string, *Account[string]])(nil)
	_ LoginStorer[string, *Account[string]]         = (*Store[string, *Account[string]])(nil)
	_ SecurityStampStorer[string, *Account[string]] = (*Store[string, *Account[string]])(nil)
	_ ClaimStorer[string, *Account[string]]         = (*Store[string, *Account[string]])(nil)
	_ RoleStorer[string, *Account[string]]          = (*Store[string, *Account[string]])(nil)
	_ AccountStorer[int64, *Account[int64]]         = (*Store[int64, *Account[int64]])(nil)
)
