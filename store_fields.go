package identity

import (
	"context"
	"time"

	"github.com/nyaruka/phonenumbers"
)

// Field-level capability operations. Setters mutate the in-memory entity
// only; the caller persists the batch with a single Update. Auto-persisting
// here would multiply round-trips and break batched-update callers, so the
// two-step contract is deliberate.

// GetPasswordHash returns the opaque password hash, empty when none is set.
func (s *Store[K, T]) GetPasswordHash(ctx context.Context, account T) (string, error) {
	if err := s.guardAccount(account); err != nil {
		return "", err
	}
	return account.GetPasswordHash(), nil
}

// SetPasswordHash stores the opaque hash. Hashing is the caller's
// responsibility; an empty hash is rejected.
func (s *Store[K, T]) SetPasswordHash(ctx context.Context, account T, hash string) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	if hash == "" {
		return ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "hash",
		})
	}
	account.SetPasswordHash(hash)
	return nil
}

// HasPassword reports whether the account has a password hash set.
func (s *Store[K, T]) HasPassword(ctx context.Context, account T) (bool, error) {
	if err := s.guardAccount(account); err != nil {
		return false, err
	}
	return account.GetPasswordHash() != "", nil
}

// GetEmail returns the account email.
func (s *Store[K, T]) GetEmail(ctx context.Context, account T) (string, error) {
	if err := s.guardAccount(account); err != nil {
		return "", err
	}
	return account.GetEmail(), nil
}

// SetEmail updates the in-memory email.
func (s *Store[K, T]) SetEmail(ctx context.Context, account T, email string) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	account.SetEmail(email)
	return nil
}

// GetEmailConfirmed returns the email confirmation flag.
func (s *Store[K, T]) GetEmailConfirmed(ctx context.Context, account T) (bool, error) {
	if err := s.guardAccount(account); err != nil {
		return false, err
	}
	return account.GetEmailConfirmed(), nil
}

// SetEmailConfirmed updates the email confirmation flag.
func (s *Store[K, T]) SetEmailConfirmed(ctx context.Context, account T, confirmed bool) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	account.SetEmailConfirmed(confirmed)
	return nil
}

// GetLockoutEndAt returns the lockout expiry in UTC. The zero time means
// "never": the stored column is unset.
func (s *Store[K, T]) GetLockoutEndAt(ctx context.Context, account T) (time.Time, error) {
	if err := s.guardAccount(account); err != nil {
		return time.Time{}, err
	}
	return account.GetLockoutEndAt(), nil
}

// SetLockoutEndAt sets the lockout expiry. The zero time maps back to an
// unset column, so the "never" sentinel round-trips exactly; other values
// are normalized to UTC.
func (s *Store[K, T]) SetLockoutEndAt(ctx context.Context, account T, end time.Time) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	account.SetLockoutEndAt(end)
	return nil
}

// GetLockoutEnabled returns the lockout-enabled flag.
func (s *Store[K, T]) GetLockoutEnabled(ctx context.Context, account T) (bool, error) {
	if err := s.guardAccount(account); err != nil {
		return false, err
	}
	return account.GetLockoutEnabled(), nil
}

// SetLockoutEnabled updates the lockout-enabled flag.
func (s *Store[K, T]) SetLockoutEnabled(ctx context.Context, account T, enabled bool) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	account.SetLockoutEnabled(enabled)
	return nil
}

// GetAccessFailedCount returns the failed-access counter.
func (s *Store[K, T]) GetAccessFailedCount(ctx context.Context, account T) (int, error) {
	if err := s.guardAccount(account); err != nil {
		return 0, err
	}
	return account.GetAccessFailedCount(), nil
}

// IncrementAccessFailedCount bumps the in-memory counter and returns the new
// value. Nothing is persisted until the caller runs Update.
func (s *Store[K, T]) IncrementAccessFailedCount(ctx context.Context, account T) (int, error) {
	if err := s.guardAccount(account); err != nil {
		return 0, err
	}
	count := account.GetAccessFailedCount() + 1
	account.SetAccessFailedCount(count)
	return count, nil
}

// ResetAccessFailedCount zeroes the in-memory counter regardless of its
// prior value.
func (s *Store[K, T]) ResetAccessFailedCount(ctx context.Context, account T) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	account.SetAccessFailedCount(0)
	return nil
}

// GetTwoFactorEnabled returns the two-factor flag.
func (s *Store[K, T]) GetTwoFactorEnabled(ctx context.Context, account T) (bool, error) {
	if err := s.guardAccount(account); err != nil {
		return false, err
	}
	return account.GetTwoFactorEnabled(), nil
}

// SetTwoFactorEnabled updates the two-factor flag.
func (s *Store[K, T]) SetTwoFactorEnabled(ctx context.Context, account T, enabled bool) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	account.SetTwoFactorEnabled(enabled)
	return nil
}

// GetPhoneNumber returns the phone number, empty when unset.
func (s *Store[K, T]) GetPhoneNumber(ctx context.Context, account T) (string, error) {
	if err := s.guardAccount(account); err != nil {
		return "", err
	}
	return account.GetPhoneNumber(), nil
}

// SetPhoneNumber updates the in-memory phone number. With WithPhoneValidation
// the number is validated and normalized to E.164 first; an empty number
// always clears the field.
func (s *Store[K, T]) SetPhoneNumber(ctx context.Context, account T, number string) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}

	if number != "" && s.validatePhone {
		parsed, err := phonenumbers.Parse(number, s.phoneRegion)
		if err != nil || !phonenumbers.IsValidNumber(parsed) {
			return ErrInvalidArgument.Clone().WithMetadata(map[string]any{
				"argument": "number",
				"value":    number,
			})
		}
		number = phonenumbers.Format(parsed, phonenumbers.E164)
	}

	account.SetPhoneNumber(number)
	return nil
}

// GetPhoneConfirmed returns the phone confirmation flag.
func (s *Store[K, T]) GetPhoneConfirmed(ctx context.Context, account T) (bool, error) {
	if err := s.guardAccount(account); err != nil {
		return false, err
	}
	return account.GetPhoneConfirmed(), nil
}

// SetPhoneConfirmed updates the phone confirmation flag.
func (s *Store[K, T]) SetPhoneConfirmed(ctx context.Context, account T, confirmed bool) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	account.SetPhoneConfirmed(confirmed)
	return nil
}

// GetSecurityStamp returns the opaque security stamp.
func (s *Store[K, T]) GetSecurityStamp(ctx context.Context, account T) (string, error) {
	if err := s.guardAccount(account); err != nil {
		return "", err
	}
	return account.GetSecurityStamp(), nil
}

// SetSecurityStamp updates the in-memory security stamp. Callers rotate it
// on credential changes to invalidate stale sessions.
func (s *Store[K, T]) SetSecurityStamp(ctx context.Context, account T, stamp string) error {
	if err := s.guardAccount(account); err != nil {
		return err
	}
	account.SetSecurityStamp(stamp)
	return nil
}
