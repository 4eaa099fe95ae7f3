package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Transactor выполняет функцию в одной транзакции.
// Репозитории, вызванные с переданным контекстом, работают внутри этой транзакции.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Ключ контекста для текущей транзакции.
type txKey struct{}

// executor - общее подмножество *sqlx.DB и *sqlx.Tx, нужное репозиториям.
type executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type sqlxTransactor struct {
	db   *sqlx.DB
	opts *sql.TxOptions
}

// Убедимся, что sqlxTransactor удовлетворяет интерфейсу Transactor.
var _ Transactor = (*sqlxTransactor)(nil)

// NewTransactor создает Transactor поверх подключения.
// opts может быть nil - тогда используются параметры драйвера по умолчанию.
func NewTransactor(db *sqlx.DB, opts *sql.TxOptions) Transactor {
	return &sqlxTransactor{db: db, opts: opts}
}

// WithinTx начинает транзакцию, вызывает fn и фиксирует результат.
// Если fn вернула ошибку или запаниковала, транзакция откатывается.
// Вложенный вызов присоединяется к уже открытой транзакции.
func (t *sqlxTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return runInTx(ctx, t.db, t.opts, fn)
}

func runInTx(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("ошибка отката транзакции: %w", rbErr))
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// executorFrom возвращает транзакцию из контекста или само подключение.
func executorFrom(ctx context.Context, db *sqlx.DB) executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
