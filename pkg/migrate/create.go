package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// migrationName turns free text into the snake_case suffix of a migration file.
func migrationName(raw string) string {
	name := unsafeNameChars.ReplaceAllString(strings.ToLower(raw), "_")
	return strings.Trim(name, "_")
}

func migrationBody(name string) string {
	return "-- +goose Up\n" +
		"-- +goose StatementBegin\n" +
		"-- " + name + "\n" +
		"-- +goose StatementEnd\n" +
		"\n" +
		"-- +goose Down\n" +
		"-- +goose StatementBegin\n" +
		"-- revert " + name + "\n" +
		"-- +goose StatementEnd\n"
}

// CreateSQLMigration writes an empty goose migration named
// <dir>/<YYYYMMDDHHMMSS>_<name>.sql and returns its path.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	safe := migrationName(name)
	if safe == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create migrations dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.sql", time.Now().UTC().Format(versionLayout), safe)
	full := filepath.Join(dir, filename)
	body := migrationBody(safe)
	if err := checkMigration(filename, body); err != nil {
		return "", err
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("migration already exists: %s", full)
	}
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	if _, err := f.WriteString(body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write migration: %w", err)
	}
	return full, f.Close()
}
