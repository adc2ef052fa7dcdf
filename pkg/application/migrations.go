package application

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationManager collects the SQL schemas modules embed and applies them in
// registration order. Schemas are written idempotently (CREATE ... IF NOT
// EXISTS) so repeated runs are safe.
type MigrationManager interface {
	RegisterSchema(fsys *embed.FS)
	Run(ctx context.Context) error
}

func NewMigrationManager(pool *pgxpool.Pool) MigrationManager {
	return &migrationManager{pool: pool}
}

type migrationManager struct {
	pool    *pgxpool.Pool
	schemas []*embed.FS
}

func (m *migrationManager) RegisterSchema(fsys *embed.FS) {
	m.schemas = append(m.schemas, fsys)
}

func (m *migrationManager) Run(ctx context.Context) error {
	for _, fsys := range m.schemas {
		files, err := listSQLFiles(fsys)
		if err != nil {
			return err
		}
		for _, file := range files {
			contents, err := fsys.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading schema %s: %w", file, err)
			}
			if _, err := m.pool.Exec(ctx, string(contents)); err != nil {
				return fmt.Errorf("applying schema %s: %w", file, err)
			}
		}
	}
	return nil
}

func listSQLFiles(fsys *embed.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
