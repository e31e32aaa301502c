//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os/exec"
)

// security(1) exits 44 when the item does not exist.
const securityItemNotFound = 44

func keychainGet(service, account string) ([]byte, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w").Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == securityItemNotFound {
		return nil, fmt.Errorf("%w: %s/%s", ErrSecretNotFound, service, account)
	}
	return out, err
}

func keychainSet(service, account, value string) error {
	if err := exec.Command("security", "add-generic-password", "-U", "-s", service, "-a", account, "-w", value).Run(); err != nil {
		return fmt.Errorf("writing keychain item %s/%s: %w", service, account, err)
	}
	return nil
}
