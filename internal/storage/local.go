package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MaximValov/spc-inventory/internal/models"
)

// FileStorage определяет интерфейс для работы с каталогом загрузок.
type FileStorage interface {
	// Save записывает содержимое под именем name и возвращает полный путь к файлу.
	Save(ctx context.Context, name string, reader io.Reader) (string, error)
	// Open открывает ранее сохраненный файл. ReadCloser нужно закрыть после использования.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Remove удаляет файл. Отсутствующий файл ошибкой не считается.
	Remove(ctx context.Context, path string) error
}

const (
	dirPerm        = 0o755
	filePerm       = 0o644
	tempFilePrefix = ".upload-"
)

// LocalStorage реализует FileStorage поверх локального каталога.
// Все файлы лежат в одном каталоге, без подкаталогов на образец.
type LocalStorage struct {
	root   string
	logger *zap.Logger
}

// Убедимся, что LocalStorage удовлетворяет интерфейсу FileStorage.
var _ FileStorage = (*LocalStorage)(nil)

// NewLocalStorage создает хранилище с корнем root, создавая каталог при необходимости.
func NewLocalStorage(root string, logger *zap.Logger) (*LocalStorage, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("не указан каталог для загрузок")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("ошибка определения пути каталога загрузок '%s': %w", root, err)
	}
	if err = os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога загрузок '%s': %w", abs, err)
	}
	logger.Info("Каталог загрузок готов", zap.String("root", abs))
	return &LocalStorage{root: abs, logger: logger.With(zap.String("component", "local_storage"))}, nil
}

// Root возвращает абсолютный путь каталога загрузок.
func (s *LocalStorage) Root() string {
	return s.root
}

// Save пишет данные во временный файл и переименовывает его в целевой.
// На любом пути выхода временный файл закрывается, при ошибке удаляется,
// так что частично записанный файл под целевым именем не появляется.
func (s *LocalStorage) Save(ctx context.Context, name string, reader io.Reader) (path string, err error) {
	if err = validateName(name); err != nil {
		return "", err
	}
	dest := filepath.Join(s.root, name)
	if _, statErr := os.Stat(dest); statErr == nil {
		s.logger.Warn("Файл с таким именем уже существует и будет перезаписан", zap.String("path", dest))
	}

	tmpPath := filepath.Join(s.root, tempFilePrefix+uuid.NewString())
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return "", fmt.Errorf("%w: ошибка создания файла '%s': %w", models.ErrIO, name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && err == nil {
			err = fmt.Errorf("%w: ошибка закрытия файла '%s': %w", models.ErrIO, name, closeErr)
		}
		if err != nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				s.logger.Warn("Не удалось удалить временный файл", zap.String("path", tmpPath), zap.Error(rmErr))
			}
		}
	}()

	written, err := io.Copy(f, &contextReader{ctx: ctx, r: reader})
	if err != nil {
		return "", fmt.Errorf("%w: ошибка записи файла '%s': %w", models.ErrIO, name, err)
	}
	if err = f.Sync(); err != nil {
		return "", fmt.Errorf("%w: ошибка сброса файла '%s' на диск: %w", models.ErrIO, name, err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("%w: ошибка закрытия файла '%s': %w", models.ErrIO, name, err)
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("%w: ошибка перемещения файла '%s': %w", models.ErrIO, name, err)
	}

	s.logger.Info("Файл сохранен", zap.String("path", dest), zap.Int64("size", written))
	return dest, nil
}

// Open открывает файл внутри каталога загрузок.
func (s *LocalStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	if err := s.checkInsideRoot(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("%w: ошибка открытия файла '%s': %w", models.ErrIO, path, err)
	}
	return f, nil
}

// Remove удаляет файл внутри каталога загрузок.
func (s *LocalStorage) Remove(_ context.Context, path string) error {
	if err := s.checkInsideRoot(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: ошибка удаления файла '%s': %w", models.ErrIO, path, err)
	}
	s.logger.Info("Файл удален", zap.String("path", path))
	return nil
}

func (s *LocalStorage) checkInsideRoot(path string) error {
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: путь '%s' вне каталога загрузок", models.ErrValidation, path)
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, tempFilePrefix) {
		return fmt.Errorf("%w: недопустимое имя файла '%s'", models.ErrValidation, name)
	}
	return nil
}

// contextReader прерывает копирование при отмене контекста.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// Кастомная ошибка хранилища.
var (
	ErrObjectNotFound = fmt.Errorf("файл не найден в каталоге загрузок: %w", models.ErrNotFound)
)
