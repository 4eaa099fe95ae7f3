package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MaximValov/spc-inventory/internal/models"
	"github.com/MaximValov/spc-inventory/internal/repository"
)

var fileRowColumns = []string{"id", "specimen_id", "file_type", "file_path", "original_filename", "upload_time"}

func setupFileRepoMock(t *testing.T) (repository.FileRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return repository.NewFileRepository(db, zap.NewNop()), mock
}

func TestFileRepository_ListBySpecimen(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	name := "photo1.jpg"
	query := regexp.QuoteMeta(`SELECT id, specimen_id, file_type, file_path, original_filename, upload_time ` +
		`FROM specimen_files WHERE specimen_id = $1 ORDER BY upload_time DESC, id DESC`)

	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expected    []models.SpecimenFile
		expectedErr string
	}{
		{
			name: "Сначала самые свежие",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(fileRowColumns).
					AddRow(int64(12), int64(7), "photo", "/u/Tensile-1_C-100_photo1.jpg", name, now).
					AddRow(int64(11), int64(7), "pdf", "/u/specimen_7_20250101000000.pdf", nil, now.Add(-time.Hour))
				mock.ExpectQuery(query).WithArgs(int64(7)).WillReturnRows(rows)
			},
			expected: []models.SpecimenFile{
				{
					ID: 12, SpecimenID: 7, FileType: models.FileTypePhoto,
					FilePath: "/u/Tensile-1_C-100_photo1.jpg", OriginalFilename: &name, UploadTime: now,
				},
				{
					ID: 11, SpecimenID: 7, FileType: models.FileTypePDF,
					FilePath: "/u/specimen_7_20250101000000.pdf", UploadTime: now.Add(-time.Hour),
				},
			},
		},
		{
			name: "Нет файлов",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs(int64(7)).WillReturnRows(sqlmock.NewRows(fileRowColumns))
			},
			expected: []models.SpecimenFile{},
		},
		{
			name: "Ошибка базы данных",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs(int64(7)).WillReturnError(errors.New("timeout"))
			},
			expectedErr: "ошибка выполнения запроса на получение файлов",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupFileRepoMock(t)
			tt.mockSetup(mock)

			files, err := repo.ListBySpecimen(context.Background(), 7)
			if tt.expectedErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, files)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFileRepository_Insert(t *testing.T) {
	name := "photo1.jpg"
	query := regexp.QuoteMeta(`INSERT INTO specimen_files ` +
		`(specimen_id, file_type, file_path, original_filename, upload_time) ` +
		`VALUES ($1, $2, $3, $4, $5) RETURNING id`)

	tests := []struct {
		name          string
		file          models.SpecimenFile
		mockSetup     func(mock sqlmock.Sqlmock)
		expectedID    int64
		expectedErrIs error
		expectedErr   string
	}{
		{
			name: "Успешная регистрация",
			file: models.SpecimenFile{
				SpecimenID: 7, FileType: models.FileTypePhoto, FilePath: "/u/a.jpg", OriginalFilename: &name,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).
					WithArgs(int64(7), "photo", "/u/a.jpg", "photo1.jpg", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))
			},
			expectedID: 21,
		},
		{
			name: "PDF без исходного имени",
			file: models.SpecimenFile{SpecimenID: 7, FileType: models.FileTypePDF, FilePath: "/u/s.pdf"},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).
					WithArgs(int64(7), "pdf", "/u/s.pdf", nil, sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(22)))
			},
			expectedID: 22,
		},
		{
			name:          "Неизвестный тип",
			file:          models.SpecimenFile{SpecimenID: 7, FileType: "video", FilePath: "/u/a.mp4"},
			mockSetup:     func(sqlmock.Sqlmock) {},
			expectedErrIs: models.ErrValidation,
		},
		{
			name:          "Пустой путь",
			file:          models.SpecimenFile{SpecimenID: 7, FileType: models.FileTypeDocument},
			mockSetup:     func(sqlmock.Sqlmock) {},
			expectedErrIs: models.ErrValidation,
		},
		{
			name: "Образец не существует",
			file: models.SpecimenFile{SpecimenID: 404, FileType: models.FileTypeDocument, FilePath: "/u/a.doc"},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WillReturnError(&pq.Error{Code: "23503"})
			},
			expectedErrIs: repository.ErrSpecimenNotFound,
		},
		{
			name: "Другая ошибка базы данных",
			file: models.SpecimenFile{SpecimenID: 7, FileType: models.FileTypeDocument, FilePath: "/u/a.doc"},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WillReturnError(errors.New("disk full"))
			},
			expectedErr: "ошибка выполнения запроса на регистрацию файла",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupFileRepoMock(t)
			tt.mockSetup(mock)

			file := tt.file
			id, err := repo.Insert(context.Background(), &file)

			assert.Equal(t, tt.expectedID, id)
			switch {
			case tt.expectedErrIs != nil:
				assert.ErrorIs(t, err, tt.expectedErrIs)
			case tt.expectedErr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expectedID, file.ID)
				assert.False(t, file.UploadTime.IsZero())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFileRepository_GetByIDAndDelete(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	getQuery := regexp.QuoteMeta(`SELECT id, specimen_id, file_type, file_path, original_filename, upload_time ` +
		`FROM specimen_files WHERE id = $1`)
	deleteQuery := regexp.QuoteMeta(`DELETE FROM specimen_files WHERE id = $1`)

	t.Run("Поиск", func(t *testing.T) {
		repo, mock := setupFileRepoMock(t)
		mock.ExpectQuery(getQuery).WithArgs(int64(5)).WillReturnRows(
			sqlmock.NewRows(fileRowColumns).AddRow(int64(5), int64(7), "document", "/u/a.doc", "a.doc", now),
		)
		f, err := repo.GetByID(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, models.FileTypeDocument, f.FileType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Поиск отсутствующего", func(t *testing.T) {
		repo, mock := setupFileRepoMock(t)
		mock.ExpectQuery(getQuery).WithArgs(int64(6)).WillReturnRows(sqlmock.NewRows(fileRowColumns))
		_, err := repo.GetByID(context.Background(), 6)
		assert.ErrorIs(t, err, repository.ErrFileNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Удаление", func(t *testing.T) {
		repo, mock := setupFileRepoMock(t)
		mock.ExpectExec(deleteQuery).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Delete(context.Background(), 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Удаление отсутствующего", func(t *testing.T) {
		repo, mock := setupFileRepoMock(t)
		mock.ExpectExec(deleteQuery).WithArgs(int64(6)).WillReturnResult(sqlmock.NewResult(0, 0))
		err := repo.Delete(context.Background(), 6)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFileRepository_CountByPath(t *testing.T) {
	countQuery := regexp.QuoteMeta(`SELECT COUNT(*) FROM specimen_files WHERE file_path = $1`)

	t.Run("Успех", func(t *testing.T) {
		repo, mock := setupFileRepoMock(t)
		mock.ExpectQuery(countQuery).WithArgs("/u/a.jpg").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		n, err := repo.CountByPath(context.Background(), "/u/a.jpg")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка БД", func(t *testing.T) {
		repo, mock := setupFileRepoMock(t)
		mock.ExpectQuery(countQuery).WithArgs("/u/a.jpg").WillReturnError(sql.ErrConnDone)
		_, err := repo.CountByPath(context.Background(), "/u/a.jpg")
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
