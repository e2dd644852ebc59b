// Package secrets resolves credentials from the environment first and the
// OS keychain second.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service groups the tool's secrets in the OS keychain.
	KeyringService = "job-digest"

	AccountLINEToken     = "line:channel-access-token"
	AccountTelegramToken = "telegram:bot-token"
	AccountJobAPIToken   = "job-api:token"
)

var ErrNotFound = errors.New("secret not found")

// IMAPAccount names the keychain entry for an IMAP login.
func IMAPAccount(user, host string) string {
	return fmt.Sprintf("imap:%s@%s", user, host)
}

// Resolve returns current when it is set, otherwise the keychain value.
func Resolve(current, account string) (string, error) {
	if strings.TrimSpace(current) != "" {
		return current, nil
	}
	if strings.TrimSpace(account) == "" {
		return "", ErrNotFound
	}
	v, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, account)
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", account, err)
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, account)
	}
	return v, nil
}

// Fill resolves *dst in place; a missing secret leaves it empty.
func Fill(dst *string, account string) error {
	v, err := Resolve(*dst, account)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}
