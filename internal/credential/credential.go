// Package credential resolves connection passwords from the OS keyring so
// profiles on disk never need to store one in plain text. Entries are keyed
// by profile name under one service name.
package credential

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "dualdb"

// Lookup returns the stored password for a profile. The bool is false when
// no entry exists; a missing entry is not an error.
func Lookup(profile string) (string, bool, error) {
	secret, err := keyring.Get(service, profile)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("keyring get %q: %w", profile, err)
	}
	return secret, true, nil
}

// Store saves or replaces the password for a profile.
func Store(profile, secret string) error {
	if err := keyring.Set(service, profile, secret); err != nil {
		return fmt.Errorf("keyring set %q: %w", profile, err)
	}
	return nil
}

// Delete removes the stored password for a profile. Deleting an absent entry
// is not an error.
func Delete(profile string) error {
	err := keyring.Delete(service, profile)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %q: %w", profile, err)
	}
	return nil
}
