package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MaximValov/spc-inventory/internal/models"
	"github.com/MaximValov/spc-inventory/internal/naming"
	"github.com/MaximValov/spc-inventory/internal/repository"
	"github.com/MaximValov/spc-inventory/internal/storage"
)

// AttachmentService определяет интерфейс для работы с вложениями образцов.
type AttachmentService interface {
	// UploadAttachment сохраняет файл в каталог загрузок и регистрирует его.
	UploadAttachment(ctx context.Context, specimenID int64, r io.Reader, originalFilename, contentType string) (int64, error)
	// UploadLegacyPDF сохраняет PDF под именем с меткой времени и заполняет pdf_path образца.
	UploadLegacyPDF(ctx context.Context, specimenID int64, r io.Reader) (int64, error)
	ListAttachments(ctx context.Context, specimenID int64, fileType *models.FileType) ([]models.SpecimenFile, error)
	// OpenAttachment возвращает запись о файле и его содержимое. ReadCloser нужно закрыть.
	OpenAttachment(ctx context.Context, fileID int64) (*models.SpecimenFile, io.ReadCloser, error)
	DeleteAttachment(ctx context.Context, fileID int64) error
}

// Убедимся, что attachmentService удовлетворяет интерфейсу AttachmentService.
var _ AttachmentService = (*attachmentService)(nil)

type attachmentService struct {
	specimens repository.SpecimenRepository
	files     repository.FileRepository
	tx        repository.Transactor
	storage   storage.FileStorage
	now       func() time.Time
	logger    *zap.Logger
}

// NewAttachmentService создает новый экземпляр сервиса вложений.
func NewAttachmentService(
	specimens repository.SpecimenRepository,
	files repository.FileRepository,
	tx repository.Transactor,
	fileStorage storage.FileStorage,
	logger *zap.Logger,
) AttachmentService {
	return &attachmentService{
		specimens: specimens,
		files:     files,
		tx:        tx,
		storage:   fileStorage,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "attachment_service")),
	}
}

// UploadAttachment сначала записывает файл, затем регистрирует его.
// Если запись не удалась, ничего не регистрируется. Если не удалась регистрация,
// файл остается на диске без записи в базе.
func (s *attachmentService) UploadAttachment(
	ctx context.Context,
	specimenID int64,
	r io.Reader,
	originalFilename, contentType string,
) (int64, error) {
	if strings.TrimSpace(originalFilename) == "" {
		return 0, fmt.Errorf("%w: не указано имя файла", models.ErrValidation)
	}

	specimen, err := s.specimens.GetByID(ctx, specimenID)
	if err != nil {
		return 0, err
	}

	fileType := naming.ClassifyContentType(contentType)
	name := naming.BuildAttachmentName(specimen.TestName, specimen.Dogovor, originalFilename)

	path, err := s.storage.Save(ctx, name, r)
	if err != nil {
		s.logger.Error("Ошибка записи вложения",
			zap.Int64("specimen_id", specimenID), zap.String("name", name), zap.Error(err))
		uploadsTotal.WithLabelValues(string(fileType), resultError).Inc()
		return 0, err
	}

	file := &models.SpecimenFile{
		SpecimenID:       specimenID,
		FileType:         fileType,
		FilePath:         path,
		OriginalFilename: &originalFilename,
	}
	id, err := s.files.Insert(ctx, file)
	if err != nil {
		s.logger.Error("Файл записан, но не зарегистрирован",
			zap.Int64("specimen_id", specimenID), zap.String("path", path), zap.Error(err))
		uploadsTotal.WithLabelValues(string(fileType), resultError).Inc()
		return 0, err
	}

	uploadsTotal.WithLabelValues(string(fileType), resultSuccess).Inc()
	s.logger.Info("Вложение загружено",
		zap.Int64("id", id),
		zap.Int64("specimen_id", specimenID),
		zap.String("file_type", string(fileType)),
		zap.String("path", path),
	)
	return id, nil
}

// UploadLegacyPDF сохраняет PDF под именем specimen_{id}_{время}.pdf.
// Регистрация файла и заполнение pdf_path выполняются в одной транзакции,
// уже заполненный pdf_path не перезаписывается.
func (s *attachmentService) UploadLegacyPDF(ctx context.Context, specimenID int64, r io.Reader) (int64, error) {
	if _, err := s.specimens.GetByID(ctx, specimenID); err != nil {
		return 0, err
	}

	name := naming.BuildTimestampedPDFName(specimenID, s.now())
	path, err := s.storage.Save(ctx, name, r)
	if err != nil {
		s.logger.Error("Ошибка записи PDF", zap.Int64("specimen_id", specimenID), zap.Error(err))
		uploadsTotal.WithLabelValues(string(models.FileTypePDF), resultError).Inc()
		return 0, err
	}

	var id int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.files.Insert(ctx, &models.SpecimenFile{
			SpecimenID: specimenID,
			FileType:   models.FileTypePDF,
			FilePath:   path,
		})
		if err != nil {
			return err
		}
		return s.specimens.SetLegacyPDFPath(ctx, specimenID, path)
	})
	if err != nil {
		s.logger.Error("PDF записан, но не зарегистрирован",
			zap.Int64("specimen_id", specimenID), zap.String("path", path), zap.Error(err))
		uploadsTotal.WithLabelValues(string(models.FileTypePDF), resultError).Inc()
		return 0, err
	}

	uploadsTotal.WithLabelValues(string(models.FileTypePDF), resultSuccess).Inc()
	s.logger.Info("PDF загружен", zap.Int64("id", id), zap.Int64("specimen_id", specimenID), zap.String("path", path))
	return id, nil
}

// ListAttachments возвращает вложения образца, начиная с самого свежего.
// fileType == nil означает все типы.
func (s *attachmentService) ListAttachments(
	ctx context.Context,
	specimenID int64,
	fileType *models.FileType,
) ([]models.SpecimenFile, error) {
	if _, err := s.specimens.GetByID(ctx, specimenID); err != nil {
		return nil, err
	}
	files, err := s.files.ListBySpecimen(ctx, specimenID)
	if err != nil {
		return nil, err
	}
	if fileType == nil {
		return files, nil
	}

	filtered := make([]models.SpecimenFile, 0, len(files))
	for _, f := range files {
		if f.FileType == *fileType {
			filtered = append(filtered, f)
		}
	}
	return filtered, nil
}

// OpenAttachment находит запись о файле и открывает его содержимое.
func (s *attachmentService) OpenAttachment(ctx context.Context, fileID int64) (*models.SpecimenFile, io.ReadCloser, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.storage.Open(ctx, file.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("Файл зарегистрирован, но отсутствует на диске",
				zap.Int64("id", fileID), zap.String("path", file.FilePath))
		}
		return nil, nil, err
	}
	return file, rc, nil
}

// DeleteAttachment удаляет запись о файле, затем сам файл, если на него
// больше не ссылается ни одна запись. Ошибка удаления файла с диска только
// логируется: запись уже удалена.
func (s *attachmentService) DeleteAttachment(ctx context.Context, fileID int64) error {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}

	var refs int
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.files.Delete(ctx, fileID); err != nil {
			return err
		}
		var err error
		refs, err = s.files.CountByPath(ctx, file.FilePath)
		return err
	})
	if err != nil {
		return err
	}

	if refs > 0 {
		s.logger.Info("Файл оставлен на диске: на него ссылаются другие записи",
			zap.Int64("id", fileID), zap.String("path", file.FilePath), zap.Int("refs", refs))
	} else if err = s.storage.Remove(ctx, file.FilePath); err != nil {
		s.logger.Warn("Не удалось удалить файл вложения с диска",
			zap.Int64("id", fileID), zap.String("path", file.FilePath), zap.Error(err))
	}
	s.logger.Info("Вложение удалено", zap.Int64("id", fileID), zap.Int64("specimen_id", file.SpecimenID))
	return nil
}
