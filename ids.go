package identity

import (
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// NewKey returns a generated GUID string key.
func NewKey() string {
	return uuid.New().String()
}

// DeterministicKey derives a stable GUID string key from a seed such as an
// email address, so re-imported records keep their identity.
func DeterministicKey(seed string) (string, error) {
	if seed == "" {
		return "", ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "seed",
		})
	}
	id, err := hashid.NewUUID(seed)
	if err != nil {
		return "", wrapInvalid(err, "derive key from seed")
	}
	return id.String(), nil
}

// NewSecurityStamp returns a fresh opaque security stamp. Callers set it on
// credential changes to invalidate stale sessions.
func NewSecurityStamp() string {
	return uuid.New().String()
}
