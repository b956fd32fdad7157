package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies the embedded schema migrations.
// direction is "up" or "down"; steps == 0 means all.
func Migrate(dsn, direction string, steps int) error {
	log := logger.GetLogger("db.migrate")

	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown migrate direction %q (want up or down)", direction)
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, driverURL(dsn))
	if err != nil {
		return fmt.Errorf("failed to init migrate: %w", err)
	}
	defer m.Close()

	switch {
	case direction == "up" && steps > 0:
		err = m.Steps(steps)
	case direction == "up":
		err = m.Up()
	case steps > 0:
		err = m.Steps(-steps)
	default:
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("Schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s failed: %w", direction, err)
	}

	version, dirty, _ := m.Version()
	log.Infof("Migrate %s done (version=%d, dirty=%v)", direction, version, dirty)
	return nil
}

// driverURL rewrites a postgres URL to the pgx5 migrate driver scheme
func driverURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
