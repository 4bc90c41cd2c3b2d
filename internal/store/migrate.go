package store

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Migration is one versioned SQL file named NNN_description.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Ledger is the backend side of schema migration: it records which versions
// have run and applies one migration atomically with its ledger row.
type Ledger interface {
	AppliedVersions(ctx context.Context) (map[int]bool, error)
	ApplyMigration(ctx context.Context, m Migration) error
}

// ReadMigrations loads the .sql files in dir, ordered by version. Duplicate
// versions are rejected.
func ReadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]string)
	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		v, err := parseMigrationVersion(e.Name())
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[v]; ok {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, e.Name(), v)
		}
		seen[v] = e.Name()
		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Version: v, Name: e.Name(), SQL: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// RunMigrations applies every migration in dir that the ledger has not seen
// and returns the names applied.
func RunMigrations(ctx context.Context, l Ledger, fsys fs.FS, dir string) ([]string, error) {
	migs, err := ReadMigrations(fsys, dir)
	if err != nil {
		return nil, err
	}
	done, err := l.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	var applied []string
	for _, m := range migs {
		if done[m.Version] {
			continue
		}
		if err := l.ApplyMigration(ctx, m); err != nil {
			return applied, fmt.Errorf("migration %s: %w", m.Name, err)
		}
		slog.Debug("schema migration applied", "name", m.Name, "version", m.Version)
		applied = append(applied, m.Name)
	}
	return applied, nil
}

func parseMigrationVersion(name string) (int, error) {
	prefix, _, _ := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
	v, err := strconv.Atoi(prefix)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid migration version in %s", name)
	}
	return v, nil
}
