package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/MaximValov/spc-inventory/internal/models"
)

// Коды ошибок PostgreSQL.
const (
	pgForeignKeyViolationCode = "23503"
)

// FileRepository определяет методы для работы с файлами образцов.
type FileRepository interface {
	ListBySpecimen(ctx context.Context, specimenID int64) ([]models.SpecimenFile, error)
	GetByID(ctx context.Context, id int64) (*models.SpecimenFile, error)
	Insert(ctx context.Context, file *models.SpecimenFile) (int64, error)
	Delete(ctx context.Context, id int64) error
	CountByPath(ctx context.Context, path string) (int, error)
}

const fileColumns = `id, specimen_id, file_type, file_path, original_filename, upload_time`

// sqlFileRepository реализует FileRepository поверх sqlx.
type sqlFileRepository struct {
	db     *sqlx.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewFileRepository создает новый экземпляр репозитория файлов.
func NewFileRepository(db *sqlx.DB, logger *zap.Logger) FileRepository {
	return &sqlFileRepository{
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(zap.String("component", "file_repo")),
	}
}

// ListBySpecimen возвращает файлы образца, начиная с самого свежего.
func (r *sqlFileRepository) ListBySpecimen(ctx context.Context, specimenID int64) ([]models.SpecimenFile, error) {
	exec := executorFrom(ctx, r.db)
	query := exec.Rebind(`SELECT ` + fileColumns + `
	          FROM specimen_files
	          WHERE specimen_id = ?
	          ORDER BY upload_time DESC, id DESC`)

	files := make([]models.SpecimenFile, 0)
	if err := exec.SelectContext(ctx, &files, query, specimenID); err != nil {
		r.logger.Error("Ошибка при получении файлов образца", zap.Int64("specimen_id", specimenID), zap.Error(err))
		return nil, fmt.Errorf("ошибка выполнения запроса на получение файлов: %w", err)
	}

	r.logger.Debug("Получены файлы образца", zap.Int64("specimen_id", specimenID), zap.Int("count", len(files)))
	return files, nil
}

// GetByID находит запись о файле по ID.
func (r *sqlFileRepository) GetByID(ctx context.Context, id int64) (*models.SpecimenFile, error) {
	exec := executorFrom(ctx, r.db)
	query := exec.Rebind(`SELECT ` + fileColumns + ` FROM specimen_files WHERE id = ?`)

	var file models.SpecimenFile
	if err := exec.GetContext(ctx, &file, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrFileNotFound, id)
		}
		r.logger.Error("Ошибка при поиске файла", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка выполнения запроса на получение файла: %w", err)
	}
	return &file, nil
}

// Insert регистрирует файл образца. Время загрузки выставляется текущим.
func (r *sqlFileRepository) Insert(ctx context.Context, file *models.SpecimenFile) (int64, error) {
	if _, err := models.ParseFileType(string(file.FileType)); err != nil {
		return 0, err
	}
	if strings.TrimSpace(file.FilePath) == "" {
		return 0, fmt.Errorf("%w: не указан путь к файлу", models.ErrValidation)
	}
	if file.SpecimenID <= 0 {
		return 0, fmt.Errorf("%w: не указан образец", models.ErrValidation)
	}

	exec := executorFrom(ctx, r.db)
	query := exec.Rebind(`INSERT INTO specimen_files
	          (specimen_id, file_type, file_path, original_filename, upload_time)
	          VALUES (?, ?, ?, ?, ?) RETURNING id`)
	now := r.now()

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		file.SpecimenID, file.FileType, file.FilePath, file.OriginalFilename, now,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			r.logger.Warn("Попытка прикрепить файл к несуществующему образцу", zap.Int64("specimen_id", file.SpecimenID))
			return 0, fmt.Errorf("%w: id %d", ErrSpecimenNotFound, file.SpecimenID)
		}
		r.logger.Error("Ошибка при регистрации файла", zap.String("path", file.FilePath), zap.Error(err))
		return 0, fmt.Errorf("ошибка выполнения запроса на регистрацию файла: %w", err)
	}

	file.ID = id
	file.UploadTime = now
	r.logger.Info("Файл зарегистрирован",
		zap.Int64("id", id),
		zap.Int64("specimen_id", file.SpecimenID),
		zap.String("file_type", string(file.FileType)),
	)
	return id, nil
}

// Delete удаляет запись о файле. Файл на диске не трогает.
func (r *sqlFileRepository) Delete(ctx context.Context, id int64) error {
	exec := executorFrom(ctx, r.db)
	res, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM specimen_files WHERE id = ?`), id)
	if err != nil {
		r.logger.Error("Ошибка при удалении записи о файле", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("ошибка выполнения запроса на удаление файла: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа удаленных строк: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrFileNotFound, id)
	}
	r.logger.Info("Запись о файле удалена", zap.Int64("id", id))
	return nil
}

// CountByPath возвращает число записей, ссылающихся на файл path.
func (r *sqlFileRepository) CountByPath(ctx context.Context, path string) (int, error) {
	exec := executorFrom(ctx, r.db)
	var n int
	err := exec.GetContext(ctx, &n, exec.Rebind(`SELECT COUNT(*) FROM specimen_files WHERE file_path = ?`), path)
	if err != nil {
		r.logger.Error("Ошибка при подсчете ссылок на файл", zap.String("path", path), zap.Error(err))
		return 0, fmt.Errorf("ошибка выполнения запроса на подсчет ссылок на файл: %w", err)
	}
	return n, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolationCode
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// Кастомные ошибки репозитория файлов.
var (
	ErrFileNotFound = fmt.Errorf("файл не найден: %w", models.ErrNotFound)
)
