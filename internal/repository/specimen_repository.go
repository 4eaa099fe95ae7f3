package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/MaximValov/spc-inventory/internal/models"
)

// SpecimenRepository определяет методы для работы с образцами.
type SpecimenRepository interface {
	GetAll(ctx context.Context) ([]models.Specimen, error)
	GetByID(ctx context.Context, id int64) (*models.Specimen, error)
	Insert(ctx context.Context, specimen *models.Specimen) (int64, error)
	Update(ctx context.Context, specimen *models.Specimen) error
	Delete(ctx context.Context, id int64) error
	SetLegacyPDFPath(ctx context.Context, id int64, path string) error
	ListContracts(ctx context.Context) ([]string, error)
}

const specimenColumns = `id, status, test_name, dogovor, location, amount, notes, status_update_time, photo_path, pdf_path`

// notEarlierUpdateTime не дает времени изменения уйти назад, если системные
// часы перевели. Принимает текущее время дважды.
const notEarlierUpdateTime = `CASE WHEN status_update_time > ? THEN status_update_time ELSE ? END`

// sqlSpecimenRepository реализует SpecimenRepository поверх sqlx.
type sqlSpecimenRepository struct {
	db        *sqlx.DB
	locations models.LocationSet
	now       func() time.Time
	logger    *zap.Logger
}

// NewSpecimenRepository создает новый экземпляр репозитория образцов.
func NewSpecimenRepository(db *sqlx.DB, locations models.LocationSet, logger *zap.Logger) SpecimenRepository {
	return &sqlSpecimenRepository{
		db:        db,
		locations: locations,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With(zap.String("component", "specimen_repo")),
	}
}

// GetAll возвращает все образцы в порядке возрастания ID.
func (r *sqlSpecimenRepository) GetAll(ctx context.Context) ([]models.Specimen, error) {
	exec := executorFrom(ctx, r.db)
	query := `SELECT ` + specimenColumns + ` FROM specimens_table ORDER BY id`

	specimens := make([]models.Specimen, 0)
	if err := exec.SelectContext(ctx, &specimens, query); err != nil {
		r.logger.Error("Ошибка при получении списка образцов", zap.Error(err))
		return nil, fmt.Errorf("ошибка выполнения запроса на получение образцов: %w", err)
	}

	r.logger.Debug("Получен список образцов", zap.Int("count", len(specimens)))
	return specimens, nil
}

// GetByID находит образец по ID.
// Возвращает образец или ошибку (включая ErrSpecimenNotFound).
func (r *sqlSpecimenRepository) GetByID(ctx context.Context, id int64) (*models.Specimen, error) {
	exec := executorFrom(ctx, r.db)
	query := exec.Rebind(`SELECT ` + specimenColumns + ` FROM specimens_table WHERE id = ?`)

	var specimen models.Specimen
	if err := exec.GetContext(ctx, &specimen, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("Образец не найден", zap.Int64("id", id))
			return nil, fmt.Errorf("%w: id %d", ErrSpecimenNotFound, id)
		}
		r.logger.Error("Ошибка при поиске образца", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка выполнения запроса на получение образца: %w", err)
	}
	return &specimen, nil
}

// Insert создает образец и возвращает назначенный хранилищем ID.
// Время изменения статуса выставляется текущим.
func (r *sqlSpecimenRepository) Insert(ctx context.Context, specimen *models.Specimen) (int64, error) {
	if err := specimen.Validate(r.locations); err != nil {
		return 0, err
	}
	exec := executorFrom(ctx, r.db)
	query := exec.Rebind(`INSERT INTO specimens_table
	          (status, test_name, dogovor, location, amount, notes, status_update_time)
	          VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	now := r.now()

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		specimen.Status, specimen.TestName, specimen.Dogovor, specimen.Location,
		specimen.Amount, specimen.Notes, now,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Ошибка при создании образца", zap.String("test_name", specimen.TestName), zap.Error(err))
		return 0, fmt.Errorf("ошибка выполнения запроса на создание образца: %w", err)
	}

	specimen.ID = id
	specimen.StatusUpdateTime = now
	r.logger.Info("Образец создан", zap.Int64("id", id), zap.String("status", string(specimen.Status)))
	return id, nil
}

// Update заменяет редактируемые поля образца и обновляет время изменения.
func (r *sqlSpecimenRepository) Update(ctx context.Context, specimen *models.Specimen) error {
	if err := specimen.Validate(r.locations); err != nil {
		return err
	}
	exec := executorFrom(ctx, r.db)
	query := exec.Rebind(`UPDATE specimens_table
	          SET status = ?, test_name = ?, dogovor = ?, location = ?, amount = ?, notes = ?,
	              status_update_time = ` + notEarlierUpdateTime + `
	          WHERE id = ?`)
	now := r.now()

	res, err := exec.ExecContext(ctx, query,
		specimen.Status, specimen.TestName, specimen.Dogovor, specimen.Location,
		specimen.Amount, specimen.Notes, now, now, specimen.ID,
	)
	if err != nil {
		r.logger.Error("Ошибка при обновлении образца", zap.Int64("id", specimen.ID), zap.Error(err))
		return fmt.Errorf("ошибка выполнения запроса на обновление образца: %w", err)
	}
	if err = expectAffected(res, specimen.ID); err != nil {
		return err
	}

	specimen.StatusUpdateTime = now
	r.logger.Info("Образец обновлен", zap.Int64("id", specimen.ID), zap.String("status", string(specimen.Status)))
	return nil
}

// Delete удаляет образец вместе с записями о его файлах.
// Удаление отсутствующего образца ошибкой не считается.
func (r *sqlSpecimenRepository) Delete(ctx context.Context, id int64) error {
	return runInTx(ctx, r.db, nil, func(ctx context.Context) error {
		exec := executorFrom(ctx, r.db)

		files, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM specimen_files WHERE specimen_id = ?`), id)
		if err != nil {
			r.logger.Error("Ошибка при удалении файлов образца", zap.Int64("id", id), zap.Error(err))
			return fmt.Errorf("ошибка выполнения запроса на удаление файлов образца: %w", err)
		}
		res, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM specimens_table WHERE id = ?`), id)
		if err != nil {
			r.logger.Error("Ошибка при удалении образца", zap.Int64("id", id), zap.Error(err))
			return fmt.Errorf("ошибка выполнения запроса на удаление образца: %w", err)
		}

		removedFiles, _ := files.RowsAffected()
		if n, _ := res.RowsAffected(); n == 0 {
			r.logger.Debug("Образец для удаления не найден", zap.Int64("id", id))
			return nil
		}
		r.logger.Info("Образец удален", zap.Int64("id", id), zap.Int64("files", removedFiles))
		return nil
	})
}

// SetLegacyPDFPath заполняет устаревшее поле pdf_path, только если оно еще пустое.
func (r *sqlSpecimenRepository) SetLegacyPDFPath(ctx context.Context, id int64, path string) error {
	exec := executorFrom(ctx, r.db)
	query := exec.Rebind(`UPDATE specimens_table
	          SET pdf_path = COALESCE(pdf_path, ?), status_update_time = ` + notEarlierUpdateTime + `
	          WHERE id = ?`)
	now := r.now()

	res, err := exec.ExecContext(ctx, query, path, now, now, id)
	if err != nil {
		r.logger.Error("Ошибка при сохранении пути PDF", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("ошибка выполнения запроса на сохранение пути PDF: %w", err)
	}
	return expectAffected(res, id)
}

// ListContracts возвращает различные непустые номера договоров.
func (r *sqlSpecimenRepository) ListContracts(ctx context.Context) ([]string, error) {
	exec := executorFrom(ctx, r.db)
	query := `SELECT DISTINCT dogovor FROM specimens_table WHERE dogovor <> '' ORDER BY dogovor`

	contracts := make([]string, 0)
	if err := exec.SelectContext(ctx, &contracts, query); err != nil {
		r.logger.Error("Ошибка при получении списка договоров", zap.Error(err))
		return nil, fmt.Errorf("ошибка выполнения запроса на получение договоров: %w", err)
	}
	return contracts, nil
}

func expectAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа измененных строк: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrSpecimenNotFound, id)
	}
	return nil
}

// Кастомные ошибки репозитория.
var (
	ErrSpecimenNotFound = fmt.Errorf("образец не найден: %w", models.ErrNotFound)
)
