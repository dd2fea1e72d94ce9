package identity

import (
	"context"
)

// AddLogin persists an external-login association immediately, unlike field
// setters which defer to Update. The account must already have a key.
func (s *Store[K, T]) AddLogin(ctx context.Context, account T, login LoginInfo) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	if err := login.Validate(); err != nil {
		return wrapInvalid(err, "invalid login")
	}

	var zeroKey K
	if account.GetID() == zeroKey {
		return ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "account.id",
		})
	}

	record := &AccountLogin[K]{
		ID:          NewKey(),
		AccountID:   account.GetID(),
		Provider:    login.Provider,
		ProviderKey: login.ProviderKey,
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return wrapStorage(err, "persist login")
	}
	return nil
}

// RemoveLogin deletes the matching association, failing with ErrNotFound
// when the account has no such login.
func (s *Store[K, T]) RemoveLogin(ctx context.Context, account T, login LoginInfo) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	if err := login.Validate(); err != nil {
		return wrapInvalid(err, "invalid login")
	}

	res, err := s.db.NewDelete().
		Model((*AccountLogin[K])(nil)).
		Where("account_id = ? AND provider = ? AND provider_key = ?",
			account.GetID(), login.Provider, login.ProviderKey).
		Exec(ctx)
	if err != nil {
		return wrapStorage(err, "delete login")
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return wrapStorage(err, "delete login")
	}
	if deleted == 0 {
		return ErrNotFound.Clone().WithMetadata(map[string]any{
			"provider":     login.Provider,
			"provider_key": login.ProviderKey,
		})
	}
	return nil
}

// GetLogins returns every external-login association for the account as
// provider/key pairs.
func (s *Store[K, T]) GetLogins(ctx context.Context, account T) ([]LoginInfo, error) {
	if err := s.guardAccount(account); err != nil {
		return nil, err
	}

	var records []AccountLogin[K]
	err := s.db.NewSelect().
		Model(&records).
		Where("account_id = ?", account.GetID()).
		Order("provider ASC", "provider_key ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrapStorage(err, "query logins")
	}

	logins := make([]LoginInfo, len(records))
	for i, r := range records {
		logins[i] = LoginInfo{Provider: r.Provider, ProviderKey: r.ProviderKey}
	}
	return logins, nil
}

// FindByLogin resolves an account from a federated login by joining through
// the logins table. No match is ErrNotFound; two accounts claiming the same
// external identity is an integrity violation.
func (s *Store[K, T]) FindByLogin(ctx context.Context, login LoginInfo) (T, error) {
	var zero T
	if err := s.guard(); err != nil {
		return zero, err
	}
	if err := login.Validate(); err != nil {
		return zero, wrapInvalid(err, "invalid login")
	}

	records := make([]AccountLogin[K], 0, 2)
	err := s.db.NewSelect().
		Model(&records).
		Where("provider = ? AND provider_key = ?", login.Provider, login.ProviderKey).
		Limit(2).
		Scan(ctx)
	if err != nil {
		return zero, wrapStorage(err, "query login")
	}

	switch len(records) {
	case 0:
		return zero, ErrNotFound.Clone().WithMetadata(map[string]any{
			"provider":     login.Provider,
			"provider_key": login.ProviderKey,
		})
	case 1:
		return s.FindByID(ctx, records[0].AccountID)
	default:
		return zero, ErrIntegrity.Clone().WithMetadata(map[string]any{
			"provider":     login.Provider,
			"provider_key": login.ProviderKey,
		})
	}
}
