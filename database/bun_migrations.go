package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// BunMigration tracks applied schema versions
type BunMigration struct {
	bun.BaseModel `bun:"table:bun_schema_migrations"`

	ID        int    `bun:"id,pk,autoincrement"`
	Version   string `bun:"version,notnull,unique"`
	AppliedAt string `bun:"applied_at,nullzero,default:current_timestamp"`
}

// runMigrations runs all Bun migrations
func (b *BunDB) runMigrations(ctx context.Context) error {
	_, err := b.db.NewCreateTable().
		Model((*BunMigration)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Check which migrations have been applied
	var applied []BunMigration
	err = b.db.NewSelect().
		Model(&applied).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to check applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	// Run migrations in order
	migrations := []struct {
		version string
		name    string
		up      func(context.Context, *bun.DB) error
	}{
		{"001", "create_attachments_table", init001CreateAttachmentsTable},
		{"002", "create_page_images_table", init002CreatePageImagesTable},
		{"003", "create_slides_table", init003CreateSlidesTable},
		{"004", "create_server_config_table", init004CreateServerConfigTable},
	}

	for _, m := range migrations {
		if appliedMap[m.version] {
			continue
		}

		Logger.Info("Running migration", "version", m.version, "name", m.name)
		if err := m.up(ctx, b.db); err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", m.version, m.name, err)
		}

		_, err = b.db.NewInsert().
			Model(&BunMigration{Version: m.version}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.version, err)
		}
	}

	return nil
}

func init001CreateAttachmentsTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*BunAttachment)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func init002CreatePageImagesTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*BunPageImage)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return err
	}

	// Page lookups are always per attachment in page order
	_, err = db.NewCreateIndex().
		Model((*BunPageImage)(nil)).
		Index("idx_page_images_attachment").
		Column("attachment_ulid", "page_number").
		IfNotExists().
		Exec(ctx)
	return err
}

func init003CreateSlidesTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*BunSlide)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func init004CreateServerConfigTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*BunServerConfig)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}
