package services

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/MaximValov/spc-inventory/internal/export"
	"github.com/MaximValov/spc-inventory/internal/models"
	"github.com/MaximValov/spc-inventory/internal/repository"
)

// CatalogService определяет интерфейс для чтения каталога образцов.
type CatalogService interface {
	ListSpecimens(ctx context.Context, filter models.SpecimenFilter) ([]models.Specimen, error)
	GetSpecimen(ctx context.Context, id int64) (*models.Specimen, error)
	ListContracts(ctx context.Context) ([]string, error)
	// ExportXLSX записывает отфильтрованную таблицу в формате XLSX.
	ExportXLSX(ctx context.Context, filter models.SpecimenFilter, w io.Writer) error
}

// Убедимся, что catalogService удовлетворяет интерфейсу CatalogService.
var _ CatalogService = (*catalogService)(nil)

type catalogService struct {
	specimens repository.SpecimenRepository
	logger    *zap.Logger
}

// NewCatalogService создает новый экземпляр сервиса каталога.
func NewCatalogService(specimens repository.SpecimenRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		specimens: specimens,
		logger:    logger.With(zap.String("component", "catalog_service")),
	}
}

// ListSpecimens возвращает образцы, прошедшие фильтр, в порядке возрастания ID.
func (s *catalogService) ListSpecimens(ctx context.Context, filter models.SpecimenFilter) ([]models.Specimen, error) {
	all, err := s.specimens.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.Specimen, 0, len(all))
	for _, sp := range all {
		if filter.Match(sp) {
			result = append(result, sp)
		}
	}
	s.logger.Debug("Список образцов отфильтрован", zap.Int("total", len(all)), zap.Int("matched", len(result)))
	return result, nil
}

func (s *catalogService) GetSpecimen(ctx context.Context, id int64) (*models.Specimen, error) {
	return s.specimens.GetByID(ctx, id)
}

func (s *catalogService) ListContracts(ctx context.Context) ([]string, error) {
	return s.specimens.ListContracts(ctx)
}

func (s *catalogService) ExportXLSX(ctx context.Context, filter models.SpecimenFilter, w io.Writer) error {
	specimens, err := s.ListSpecimens(ctx, filter)
	if err != nil {
		return err
	}
	if err = export.WriteSpecimensXLSX(w, specimens); err != nil {
		s.logger.Error("Ошибка выгрузки каталога", zap.Error(err))
		return fmt.Errorf("ошибка выгрузки каталога: %w", err)
	}
	s.logger.Info("Каталог выгружен", zap.Int("rows", len(specimens)))
	return nil
}
