package repository

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql/schema"
)

// Migrate creates or updates the tables declared in db/ent/schema. Columns and
// indexes are never dropped.
func (d *DB) Migrate(ctx context.Context) error {
	start := time.Now()
	d.logger.Info("repository.migrate.start", "dialect", d.Dialect())
	m, err := schema.NewMigrate(d.Driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		d.logger.Error("repository.migrate.failed", "error", err)
		return fmt.Errorf("migrate schema: %w", err)
	}
	d.logger.Info("repository.migrate.ok", "tables", len(Tables), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}
