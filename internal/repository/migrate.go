package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate применяет SQL-миграции из встроенной FS к уже открытой базе данных.
// Соединение db остается открытым и принадлежит вызывающему.
func Migrate(ctx context.Context, db *sqlx.DB, dialect Dialect, logger *zap.Logger) error {
	driver, closeDriver, err := migrationDriver(ctx, db, dialect)
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer func() {
		if closeErr := closeDriver(); closeErr != nil {
			logger.Warn("Ошибка закрытия драйвера миграций", zap.Error(closeErr))
		}
	}()

	source, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			logger.Warn("Ошибка закрытия источника миграций", zap.Error(closeErr))
		}
	}()

	// m.Close не вызывается: драйвер SQLite закрыл бы общий *sql.DB
	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		zap.String("dialect", string(dialect)),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// migrationDriver строит драйвер миграций поверх открытого соединения.
// Возвращаемая функция освобождает только то, что драйвер захватил сам.
func migrationDriver(ctx context.Context, db *sqlx.DB, dialect Dialect) (database.Driver, func() error, error) {
	switch dialect {
	case DialectPostgres:
		// Блокировка миграций в PostgreSQL привязана к одному соединению
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			return nil, nil, errors.Join(err, conn.Close())
		}
		return driver, driver.Close, nil

	case DialectSQLite:
		driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
		if err != nil {
			return nil, nil, err
		}
		return driver, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("неподдерживаемая СУБД: %q", dialect)
	}
}
