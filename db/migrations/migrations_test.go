package migrations

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// findProjectRoot searches for the project root directory (where go.mod is located)
// starting from the current working directory and moving upwards.
func findProjectRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err, "Failed to get working directory")

	for i := 0; i < 5; i++ { // Limit search to 5 levels up
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd
		}
		prevWd := wd
		wd = filepath.Dir(wd)
		if wd == prevWd { // Reached the root of the filesystem
			break
		}
	}
	t.Fatalf("Failed to find project root (go.mod)")
	return ""
}

func migrationFiles(t *testing.T) []string {
	t.Helper()
	rootPath := findProjectRoot(t)
	migrationsPath := filepath.Join(rootPath, "db", "migrations")

	entries, err := os.ReadDir(migrationsPath)
	require.NoError(t, err, "Failed to read migrations directory: %s", migrationsPath)

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	require.NotEmpty(t, names, "No .sql migration files found in %s", migrationsPath)
	return names
}

// TestMigrationsNotEmpty ensures that all migration .sql files are not empty.
// This is a basic sanity check to catch accidental empty files.
func TestMigrationsNotEmpty(t *testing.T) {
	rootPath := findProjectRoot(t)
	migrationsPath := filepath.Join(rootPath, "db", "migrations")

	for _, fileName := range migrationFiles(t) {
		filePath := filepath.Join(migrationsPath, fileName)
		content, err := os.ReadFile(filePath)
		require.NoError(t, err, "Failed to read migration file: %s", filePath)
		require.NotEmpty(t, content, "Migration file is empty: %s", fileName)
	}
}

// TestMigrationFileNames ensures that all migration files follow the
// golang-migrate naming convention "NNNNNN_description.up.sql" or
// "NNNNNN_description.down.sql" where NNNNNN is the schema version.
func TestMigrationFileNames(t *testing.T) {
	for _, fileName := range migrationFiles(t) {
		isUp := strings.HasSuffix(fileName, ".up.sql")
		isDown := strings.HasSuffix(fileName, ".down.sql")
		require.True(t, isUp || isDown, "File name %q must end in .up.sql or .down.sql", fileName)

		baseName := strings.TrimSuffix(strings.TrimSuffix(fileName, ".up.sql"), ".down.sql")
		parts := strings.Split(baseName, "_")
		require.True(t, len(parts) >= 2, "File name %q does not match format NNNNNN_description", fileName)

		_, err := strconv.Atoi(parts[0])
		require.NoError(t, err, "File name %q does not start with a schema version: %v", fileName, err)
	}
}

// TestMigrationPairs ensures every up migration has a matching down migration
// so the schema can be rolled back release by release.
func TestMigrationPairs(t *testing.T) {
	ups := make(map[string]bool)
	downs := make(map[string]bool)
	for _, fileName := range migrationFiles(t) {
		switch {
		case strings.HasSuffix(fileName, ".up.sql"):
			ups[strings.TrimSuffix(fileName, ".up.sql")] = true
		case strings.HasSuffix(fileName, ".down.sql"):
			downs[strings.TrimSuffix(fileName, ".down.sql")] = true
		}
	}

	for base := range ups {
		require.True(t, downs[base], "Migration %q has no matching down migration", base)
	}
	for base := range downs {
		require.True(t, ups[base], "Migration %q has no matching up migration", base)
	}
}
