package identity

import (
	"context"
)

// GetClaims returns every claim attached to the account.
func (s *Store[K, T]) GetClaims(ctx context.Context, account T) ([]Claim, error) {
	if err := s.guardAccount(account); err != nil {
		return nil, err
	}

	var records []AccountClaim[K]
	err := s.db.NewSelect().
		Model(&records).
		Where("account_id = ?", account.GetID()).
		Order("claim_type ASC", "claim_value ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrapStorage(err, "query claims")
	}

	claims := make([]Claim, len(records))
	for i, r := range records {
		claims[i] = Claim{Type: r.ClaimType, Value: r.ClaimValue}
	}
	return claims, nil
}

// AddClaim attaches a claim to the account and persists it immediately.
func (s *Store[K, T]) AddClaim(ctx context.Context, account T, claim Claim) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	if err := claim.Validate(); err != nil {
		return wrapInvalid(err, "invalid claim")
	}

	var zeroKey K
	if account.GetID() == zeroKey {
		return ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "account.id",
		})
	}

	record := &AccountClaim[K]{
		ID:         NewKey(),
		AccountID:  account.GetID(),
		ClaimType:  claim.Type,
		ClaimValue: claim.Value,
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return wrapStorage(err, "persist claim")
	}
	return nil
}

// RemoveClaims deletes every claim matching the given type and value.
// Removing a claim the account never had is a no-op.
func (s *Store[K, T]) RemoveClaims(ctx context.Context, account T, claim Claim) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	if err := claim.Validate(); err != nil {
		return wrapInvalid(err, "invalid claim")
	}

	_, err := s.db.NewDelete().
		Model((*AccountClaim[K])(nil)).
		Where("account_id = ? AND claim_type = ? AND claim_value = ?",
			account.GetID(), claim.Type, claim.Value).
		Exec(ctx)
	if err != nil {
		return wrapStorage(err, "delete claims")
	}
	return nil
}
