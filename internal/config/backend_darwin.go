//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.lifexp.app"

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", "lifexp")
	}
	return "lifexp-data"
}

// defaultsBackend stores config in the com.lifexp.app UserDefaults domain.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &defaultsBackend{domain: defaultsDomain}
}

func (b *defaultsBackend) Location() string { return "defaults domain " + b.domain }

// run invokes defaults(1). A missing key makes `defaults read` and
// `defaults delete` exit 1; that is reported as found == false.
func (b *defaultsBackend) run(args ...string) (out string, found bool, err error) {
	raw, err := exec.Command("defaults", args...).CombinedOutput()
	out = strings.TrimSpace(string(raw))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults %s: %w: %s", args[0], err, out)
	}
	return out, true, nil
}

func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	return b.run("read", b.domain, key)
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.run("read", b.domain, key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (b *defaultsBackend) SetString(key, val string) error {
	_, _, err := b.run("write", b.domain, key, "-string", val)
	return err
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	_, _, err := b.run("write", b.domain, key, "-int", strconv.Itoa(val))
	return err
}

func (b *defaultsBackend) Delete(key string) error {
	_, _, err := b.run("delete", b.domain, key)
	return err
}
