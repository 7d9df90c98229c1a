package migration

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

// Migration files must look like 001_initial_schema.sql.
var migrationFilePattern = regexp.MustCompile(`^(\d{3})_([a-z0-9_]+)\.sql$`)

// Scanner reads migration files from a filesystem, typically an embed.FS.
type Scanner struct {
	source fs.FS
}

// NewScanner constructs a scanner over the provided filesystem.
func NewScanner(source fs.FS) *Scanner {
	return &Scanner{source: source}
}

// ScanMigrations reads every migration under dir, validates naming, and
// returns them ordered by version. Duplicate versions are rejected.
func (s *Scanner) ScanMigrations(dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(s.source, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory %s: %w", dir, err)
	}

	migrations := make([]Migration, 0, len(entries))
	seen := make(map[string]string, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		matches := migrationFilePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			return nil, NewMigrationError("", entry.Name(), "validate file name", ErrInvalidMigrationFile)
		}

		version := matches[1]
		if prior, ok := seen[version]; ok {
			return nil, NewMigrationError(version, entry.Name(), "validate version",
				fmt.Errorf("%w: %s and %s", ErrDuplicateVersion, prior, entry.Name()))
		}
		seen[version] = entry.Name()

		path := dir + "/" + entry.Name()
		content, err := fs.ReadFile(s.source, path)
		if err != nil {
			return nil, NewMigrationError(version, path, "read file", err)
		}
		if strings.TrimSpace(string(content)) == "" {
			return nil, NewMigrationError(version, path, "read file", ErrInvalidMigrationFile)
		}

		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(matches[2], "_", " "),
			SQL:         string(content),
			FilePath:    path,
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}
