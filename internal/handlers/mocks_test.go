package handlers_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/MaximValov/spc-inventory/internal/models"
)

// MockCatalogService is a mock implementation of CatalogService interface.
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListSpecimens(ctx context.Context, filter models.SpecimenFilter) ([]models.Specimen, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Specimen), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockCatalogService) GetSpecimen(ctx context.Context, id int64) (*models.Specimen, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Specimen), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockCatalogService) ListContracts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockCatalogService) ExportXLSX(ctx context.Context, filter models.SpecimenFilter, w io.Writer) error {
	args := m.Called(ctx, filter, w)
	if args.Error(0) == nil {
		_, _ = io.WriteString(w, "xlsx-bytes")
	}
	return args.Error(0)
}

// MockReconcileService is a mock implementation of ReconcileService interface.
type MockReconcileService struct {
	mock.Mock
}

func (m *MockReconcileService) Save(
	ctx context.Context,
	original, edited []models.Specimen,
	deleted []int,
) (models.SaveResult, error) {
	args := m.Called(ctx, original, edited, deleted)
	return args.Get(0).(models.SaveResult), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

// MockAttachmentService is a mock implementation of AttachmentService interface.
type MockAttachmentService struct {
	mock.Mock
}

func (m *MockAttachmentService) UploadAttachment(
	ctx context.Context,
	specimenID int64,
	r io.Reader,
	originalFilename, contentType string,
) (int64, error) {
	// Consume the reader to simulate writing the file
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	args := m.Called(ctx, specimenID, string(data), originalFilename, contentType)
	return args.Get(0).(int64), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockAttachmentService) UploadLegacyPDF(ctx context.Context, specimenID int64, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	args := m.Called(ctx, specimenID, string(data))
	return args.Get(0).(int64), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockAttachmentService) ListAttachments(
	ctx context.Context,
	specimenID int64,
	fileType *models.FileType,
) ([]models.SpecimenFile, error) {
	args := m.Called(ctx, specimenID, fileType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SpecimenFile), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockAttachmentService) OpenAttachment(ctx context.Context, fileID int64) (*models.SpecimenFile, io.ReadCloser, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.SpecimenFile), args.Get(1).(io.ReadCloser), args.Error(2) //nolint:errcheck // Acceptable for mocks
}

func (m *MockAttachmentService) DeleteAttachment(ctx context.Context, fileID int64) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}
