package config

import "errors"

// ConfigBackend is where `lifexp config set` persists values: UserDefaults
// on macOS, a JSON file elsewhere. Durations are stored as strings.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
	// Location names the store for display, e.g. a file path.
	Location() string
}

// ErrSecretNotFound is returned by the secret store when no value exists
// for a service and account.
var ErrSecretNotFound = errors.New("secret not found")
