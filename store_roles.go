package identity

import (
	"context"

	"github.com/uptrace/bun"
)

// AddToRole links the account to the named role, creating the role on first
// use. Linking an account to a role it already has is a no-op. The operation
// may touch two tables, so it runs inside a transaction.
func (s *Store[K, T]) AddToRole(ctx context.Context, account T, roleName string) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	if roleName == "" {
		return ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "roleName",
		})
	}

	return s.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		role, err := s.findRole(ctx, tx, roleName)
		if err != nil {
			if !IsNotFound(err) {
				return err
			}
			role = &Role[K]{Name: roleName}
			if s.handlers.NewKey != nil {
				role.ID = s.handlers.NewKey()
			}
			if _, err := tx.NewInsert().Model(role).Exec(ctx); err != nil {
				return wrapStorage(err, "persist role")
			}
			// Re-read so storage-assigned keys are visible for the link row.
			if role, err = s.findRole(ctx, tx, roleName); err != nil {
				return err
			}
		}

		linked, err := s.hasRoleLink(ctx, tx, account.GetID(), role.ID)
		if err != nil {
			return err
		}
		if linked {
			return nil
		}

		link := &AccountRole[K]{
			ID:        NewKey(),
			AccountID: account.GetID(),
			RoleID:    role.ID,
		}
		if _, err := tx.NewInsert().Model(link).Exec(ctx); err != nil {
			return wrapStorage(err, "persist role link")
		}
		return nil
	})
}

// RemoveFromRole unlinks the account from the named role. A missing role or
// a missing membership is ErrNotFound.
func (s *Store[K, T]) RemoveFromRole(ctx context.Context, account T, roleName string) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	if roleName == "" {
		return ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "roleName",
		})
	}

	role, err := s.findRole(ctx, s.db, roleName)
	if err != nil {
		return err
	}

	res, err := s.db.NewDelete().
		Model((*AccountRole[K])(nil)).
		Where("account_id = ? AND role_id = ?", account.GetID(), role.ID).
		Exec(ctx)
	if err != nil {
		return wrapStorage(err, "delete role link")
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return wrapStorage(err, "delete role link")
	}
	if deleted == 0 {
		return ErrNotFound.Clone().WithMetadata(map[string]any{
			"role": roleName,
		})
	}
	return nil
}

// GetRoles returns the names of every role the account belongs to.
func (s *Store[K, T]) GetRoles(ctx context.Context, account T) ([]string, error) {
	if err := s.guardAccount(account); err != nil {
		return nil, err
	}

	var links []AccountRole[K]
	err := s.db.NewSelect().
		Model(&links).
		Where("account_id = ?", account.GetID()).
		Scan(ctx)
	if err != nil {
		return nil, wrapStorage(err, "query role links")
	}
	if len(links) == 0 {
		return []string{}, nil
	}

	ids := make([]K, len(links))
	for i, l := range links {
		ids[i] = l.RoleID
	}

	var roles []Role[K]
	err = s.db.NewSelect().
		Model(&roles).
		Where("id IN (?)", bun.In(ids)).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrapStorage(err, "query roles")
	}

	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names, nil
}

// IsInRole reports whether the account belongs to the named role. An unknown
// role is simply "not a member", not an error.
func (s *Store[K, T]) IsInRole(ctx context.Context, account T, roleName string) (bool, error) {
	if err := s.guardAccount(account); err != nil {
		return false, err
	}

	role, err := s.findRole(ctx, s.db, roleName)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return s.hasRoleLink(ctx, s.db, account.GetID(), role.ID)
}

func (s *Store[K, T]) findRole(ctx context.Context, db bun.IDB, roleName string) (*Role[K], error) {
	roles := make([]Role[K], 0, 2)
	err := db.NewSelect().
		Model(&roles).
		Where("name = ?", roleName).
		Limit(2).
		Scan(ctx)
	if err != nil {
		return nil, wrapStorage(err, "query role by name")
	}

	switch len(roles) {
	case 0:
		return nil, ErrNotFound.Clone().WithMetadata(map[string]any{
			"role": roleName,
		})
	case 1:
		return &roles[0], nil
	default:
		return nil, ErrIntegrity.Clone().WithMetadata(map[string]any{
			"role": roleName,
		})
	}
}

func (s *Store[K, T]) hasRoleLink(ctx context.Context, db bun.IDB, accountID, roleID K) (bool, error) {
	count, err := db.NewSelect().
		Model((*AccountRole[K])(nil)).
		Where("account_id = ? AND role_id = ?", accountID, roleID).
		Count(ctx)
	if err != nil {
		return false, wrapStorage(err, "query role link")
	}
	return count > 0, nil
}
