package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Драйвер PostgreSQL, импортируем для регистрации
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Драйвер SQLite без cgo
)

const (
	maxOpenConns    = 25              // Максимальное количество открытых соединений
	maxIdleConns    = 25              // Максимальное количество простаивающих соединений
	connMaxLifetime = 5 * time.Minute // Максимальное время жизни соединения
	connMaxIdleTime = 5 * time.Minute // Максимальное время простоя соединения

	sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
)

// Dialect - поддерживаемая СУБД.
type Dialect string

// Поддерживаемые СУБД.
const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func init() {
	// sqlx не знает имя драйвера modernc, поэтому задаем стиль плейсхолдеров явно.
	sqlx.BindDriver(string(DialectSQLite), sqlx.QUESTION)
}

// ParseDialect проверяет имя СУБД из конфигурации.
func ParseDialect(raw string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(raw))); d {
	case DialectPostgres, DialectSQLite:
		return d, nil
	case "postgresql":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("неподдерживаемая СУБД: %q (ожидается postgres или sqlite)", raw)
	}
}

// TxOptions возвращает параметры транзакции сохранения для СУБД.
// SQLite сериализует запись сама, уровень изоляции ей не передается.
func (d Dialect) TxOptions() *sql.TxOptions {
	if d == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

// NewDB создает и возвращает подключение к базе данных.
func NewDB(dialect Dialect, dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	logger.Info("Подключение к базе данных...", zap.String("dialect", string(dialect)))

	switch dialect {
	case DialectPostgres:
		db, err := sqlx.Connect(string(DialectPostgres), dsn)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
		}
		// Настройка пула соединений
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxLifetime(connMaxLifetime)
		db.SetConnMaxIdleTime(connMaxIdleTime)
		logger.Info("Подключение к PostgreSQL успешно установлено")
		return db, nil

	case DialectSQLite:
		db, err := sqlx.Connect(string(DialectSQLite), sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия SQLite '%s': %w", dsn, err)
		}
		// Один писатель: транзакции сохранения выполняются последовательно.
		db.SetMaxOpenConns(1)
		logger.Info("База SQLite открыта", zap.String("path", dsn))
		return db, nil

	default:
		return nil, fmt.Errorf("неподдерживаемая СУБД: %q", dialect)
	}
}

// sqliteDSN добавляет обязательные pragma, если они не заданы явно.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}
