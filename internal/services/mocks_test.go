package services_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/MaximValov/spc-inventory/internal/models"
)

// MockSpecimenRepository is a mock implementation of repository.SpecimenRepository.
type MockSpecimenRepository struct {
	mock.Mock
}

func (m *MockSpecimenRepository) GetAll(ctx context.Context) ([]models.Specimen, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Specimen), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockSpecimenRepository) GetByID(ctx context.Context, id int64) (*models.Specimen, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Specimen), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockSpecimenRepository) Insert(ctx context.Context, specimen *models.Specimen) (int64, error) {
	args := m.Called(ctx, specimen)
	id := args.Get(0).(int64) //nolint:errcheck // Acceptable for mocks
	if args.Error(1) == nil {
		specimen.ID = id
	}
	return id, args.Error(1)
}

func (m *MockSpecimenRepository) Update(ctx context.Context, specimen *models.Specimen) error {
	args := m.Called(ctx, specimen)
	return args.Error(0)
}

func (m *MockSpecimenRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSpecimenRepository) SetLegacyPDFPath(ctx context.Context, id int64, path string) error {
	args := m.Called(ctx, id, path)
	return args.Error(0)
}

func (m *MockSpecimenRepository) ListContracts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

// MockFileRepository is a mock implementation of repository.FileRepository.
type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) ListBySpecimen(ctx context.Context, specimenID int64) ([]models.SpecimenFile, error) {
	args := m.Called(ctx, specimenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SpecimenFile), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockFileRepository) GetByID(ctx context.Context, id int64) (*models.SpecimenFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpecimenFile), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockFileRepository) Insert(ctx context.Context, file *models.SpecimenFile) (int64, error) {
	args := m.Called(ctx, file)
	return args.Get(0).(int64), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockFileRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFileRepository) CountByPath(ctx context.Context, path string) (int, error) {
	args := m.Called(ctx, path)
	return args.Int(0), args.Error(1)
}

// MockFileStorage is a mock implementation of storage.FileStorage.
type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Save(ctx context.Context, name string, reader io.Reader) (string, error) {
	args := m.Called(ctx, name, reader)
	// Consume the reader to simulate writing the file
	_, _ = io.Copy(io.Discard, reader)
	return args.String(0), args.Error(1)
}

func (m *MockFileStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockFileStorage) Remove(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// fakeTransactor вызывает fn без настоящей транзакции и запоминает число вызовов.
type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}
