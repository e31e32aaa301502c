//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// secrets.json maps service → account → value. It sits in the data dir with
// mode 0600 since there is no portable keychain.
type secretsFile map[string]map[string]string

func secretsFilePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "lifexp", "secrets.json")
}

func readSecrets() (secretsFile, error) {
	data, err := os.ReadFile(secretsFilePath())
	if os.IsNotExist(err) {
		return secretsFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	var s secretsFile
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	if s == nil {
		s = secretsFile{}
	}
	return s, nil
}

func keychainGet(service, account string) ([]byte, error) {
	s, err := readSecrets()
	if err != nil {
		return nil, err
	}
	val, ok := s[service][account]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrSecretNotFound, service, account)
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	s, err := readSecrets()
	if err != nil {
		return err
	}
	if s[service] == nil {
		s[service] = make(map[string]string)
	}
	s[service][account] = value

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(secretsFilePath(), data)
}
