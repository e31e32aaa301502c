package storage

import (
	"database/sql"
	"time"
)

func (s *Store) loadCookies(scope string) ([]storedCookie, error) {
	rows, err := s.db.Query(
		`SELECT name, value, path, domain, secure, http_only, expires_at FROM cookies WHERE scope = ? ORDER BY name`, scope,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storedCookie
	for rows.Next() {
		var (
			c       storedCookie
			expires sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Path, &c.Domain, &c.Secure, &c.HttpOnly, &expires); err != nil {
			return nil, err
		}
		if expires.Valid {
			t, err := parseTime("expires_at", expires.String)
			if err != nil {
				return nil, err
			}
			c.ExpiresAt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) putCookie(scope string, c storedCookie) error {
	var expires sql.NullString
	if c.ExpiresAt != nil {
		expires = sql.NullString{String: formatTime(*c.ExpiresAt), Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO cookies (scope, name, value, path, domain, secure, http_only, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope, name) DO UPDATE SET
			value = excluded.value, path = excluded.path, domain = excluded.domain,
			secure = excluded.secure, http_only = excluded.http_only,
			expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		scope, c.Name, c.Value, c.Path, c.Domain, c.Secure, c.HttpOnly, expires, formatTime(time.Now()),
	)
	return err
}

func (s *Store) deleteCookie(scope, name string) error {
	_, err := s.db.Exec(`DELETE FROM cookies WHERE scope = ? AND name = ?`, scope, name)
	return err
}

func (s *Store) deleteCookies(scope string) error {
	_, err := s.db.Exec(`DELETE FROM cookies WHERE scope = ?`, scope)
	return err
}
