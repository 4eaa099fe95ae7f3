package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MaximValov/spc-inventory/internal/handlers"
	"github.com/MaximValov/spc-inventory/internal/logger"
	appmiddleware "github.com/MaximValov/spc-inventory/internal/middleware"
	"github.com/MaximValov/spc-inventory/internal/models"
	"github.com/MaximValov/spc-inventory/internal/repository"
	"github.com/MaximValov/spc-inventory/internal/services"
	"github.com/MaximValov/spc-inventory/internal/storage"
)

const (
	serviceName = "spc-inventory"

	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 5 * time.Minute // Загрузка и выгрузка крупных файлов
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 15 * time.Second
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db              *sqlx.DB
	specimenHandler *handlers.SpecimenHandler
	fileHandler     *handlers.FileHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.LookupEnv, os.Stdout); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop уже вызван
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run(ctx context.Context, args []string, lookupEnv func(string) (string, bool), out io.Writer) error {
	cfg, err := parseFlags(args, lookupEnv)
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	// Режим выпуска токена для оператора
	if cfg.IssueTokenFor != "" {
		token, err := appmiddleware.IssueToken(cfg.JWTSecret, cfg.IssueTokenFor, cfg.TokenTTL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, token)
		return err
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return fmt.Errorf("ошибка инициализации логгера: %w", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("Запуск сервера каталога образцов...")

	deps, err := setupDependencies(ctx, cfg, zlog)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	// Отложенное закрытие соединения с БД
	defer func() {
		if closeErr := deps.db.Close(); closeErr != nil {
			zlog.Error("Ошибка закрытия соединения с БД", zap.Error(closeErr))
		}
	}()

	r := setupRouter(deps.specimenHandler, deps.fileHandler, cfg.JWTSecret, zlog)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}
	return serve(ctx, server, cfg, zlog)
}

// serve запускает сервер и останавливает его при отмене ctx.
func serve(ctx context.Context, server *http.Server, cfg *config, zlog *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSEnabled() {
			zlog.Info("Запуск HTTPS-сервера",
				zap.String("port", cfg.Port),
				zap.String("cert_file", cfg.CertFile),
				zap.String("key_file", cfg.KeyFile),
			)
			err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			zlog.Info("Запуск HTTP-сервера", zap.String("port", cfg.Port))
			err = server.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка запуска сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
		zlog.Info("Получен сигнал остановки, завершаем работу...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	zlog.Info("Сервер остановлен")
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(ctx context.Context, cfg *config, zlog *zap.Logger) (*dependencies, error) {
	dialect, err := repository.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	// 1. Подключение к БД
	db, err := repository.NewDB(dialect, cfg.DatabaseDSN, zlog)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}

	// 2. Схема БД
	if err = repository.Migrate(ctx, db, dialect, zlog); err != nil {
		if dbCloseErr := db.Close(); dbCloseErr != nil {
			zlog.Error("Ошибка закрытия соединения с БД при ошибке миграции", zap.Error(dbCloseErr))
		}
		return nil, fmt.Errorf("ошибка миграции БД: %w", err)
	}

	// 3. Каталог загрузок
	fileStorage, err := storage.NewLocalStorage(cfg.UploadDir, zlog)
	if err != nil {
		if dbCloseErr := db.Close(); dbCloseErr != nil {
			zlog.Error("Ошибка закрытия соединения с БД при ошибке хранилища", zap.Error(dbCloseErr))
		}
		return nil, fmt.Errorf("ошибка инициализации каталога загрузок: %w", err)
	}

	// 4. Репозитории
	locations := models.NewLocationSet(cfg.Locations)
	specimenRepo := repository.NewSpecimenRepository(db, locations, zlog)
	fileRepo := repository.NewFileRepository(db, zlog)
	transactor := repository.NewTransactor(db, dialect.TxOptions())

	// 5. Сервисы
	catalogService := services.NewCatalogService(specimenRepo, zlog)
	reconcileService := services.NewReconcileService(specimenRepo, transactor, zlog)
	attachmentService := services.NewAttachmentService(specimenRepo, fileRepo, transactor, fileStorage, zlog)

	// 6. Обработчики
	return &dependencies{
		db:              db,
		specimenHandler: handlers.NewSpecimenHandler(catalogService, reconcileService, zlog),
		fileHandler:     handlers.NewFileHandler(attachmentService, cfg.MaxUploadBytes(), zlog),
	}, nil
}

// setupRouter настраивает и возвращает роутер chi.
// Пустой jwtSecret отключает аутентификацию для /api.
func setupRouter(
	specimenHandler *handlers.SpecimenHandler,
	fileHandler *handlers.FileHandler,
	jwtSecret string,
	zlog *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmiddleware.RequestLogger(zlog))
	r.Use(appmiddleware.Metrics)
	r.Use(middleware.Recoverer)

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(appmiddleware.Authenticator(jwtSecret, zlog))
		} else {
			zlog.Warn("Ключ JWT не задан, аутентификация отключена")
		}

		r.Get("/contracts", specimenHandler.Contracts)

		r.Route("/specimens", func(r chi.Router) {
			r.Get("/", specimenHandler.List)
			r.Get("/export.xlsx", specimenHandler.Export)
			r.Post("/save", specimenHandler.Save)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", specimenHandler.Get)
				r.Get("/files", fileHandler.List)
				r.Post("/files", fileHandler.Upload)
				r.Post("/pdf", fileHandler.UploadPDF)
			})
		})

		r.Route("/files/{fileID}", func(r chi.Router) {
			r.Get("/download", fileHandler.Download)
			r.Delete("/", fileHandler.Delete)
		})
	})
	return r
}
