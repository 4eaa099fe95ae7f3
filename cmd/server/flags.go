package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MaximValov/spc-inventory/internal/models"
	"github.com/MaximValov/spc-inventory/internal/repository"
)

const (
	defaultServerPort     = "8080"
	defaultDBDriver       = "sqlite"
	defaultDatabaseDSN    = "specimens.db"
	defaultUploadDir      = "specimen_uploads"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultMaxUploadMB    = 50
	defaultTokenTTL       = 30 * 24 * time.Hour
	bytesInMegabyte       = 1 << 20
	locationsEnvSeparator = ","

	// Переменные окружения.
	envConfigFile  = "CONFIG_FILE"
	envServerPort  = "SERVER_PORT"
	envTLSCertFile = "TLS_CERT_FILE"
	envTLSKeyFile  = "TLS_KEY_FILE"
	envDBDriver    = "DB_DRIVER"
	envDatabaseDSN = "DATABASE_DSN"
	envUploadDir   = "UPLOAD_DIR"
	envLocations   = "LOCATIONS"
	envJWTSecret   = "JWT_SECRET" //nolint:gosec // Имя переменной окружения, а не секрет
	envLogLevel    = "LOG_LEVEL"
	envLogFormat   = "LOG_FORMAT"
	envMaxUploadMB = "MAX_UPLOAD_MB"
)

// config хранит конфигурацию сервера.
type config struct {
	Port        string   `yaml:"port"`
	CertFile    string   `yaml:"cert_file"`
	KeyFile     string   `yaml:"key_file"`
	DBDriver    string   `yaml:"db_driver"`
	DatabaseDSN string   `yaml:"database_dsn"`
	UploadDir   string   `yaml:"upload_dir"`
	Locations   []string `yaml:"locations"`
	JWTSecret   string   `yaml:"jwt_secret"`
	LogLevel    string   `yaml:"log_level"`
	LogFormat   string   `yaml:"log_format"`
	MaxUploadMB int      `yaml:"max_upload_mb"`

	// Режим выпуска токена: сервер не запускается.
	IssueTokenFor string        `yaml:"-"`
	TokenTTL      time.Duration `yaml:"-"`
}

// TLSEnabled сообщает, что заданы сертификат и ключ.
func (c *config) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// MaxUploadBytes возвращает лимит размера загрузки в байтах.
func (c *config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * bytesInMegabyte
}

func defaultConfig() *config {
	return &config{
		Port:        defaultServerPort,
		DBDriver:    defaultDBDriver,
		DatabaseDSN: defaultDatabaseDSN,
		UploadDir:   defaultUploadDir,
		Locations:   append([]string(nil), models.DefaultLocations...),
		LogLevel:    defaultLogLevel,
		LogFormat:   defaultLogFormat,
		MaxUploadMB: defaultMaxUploadMB,
		TokenTTL:    defaultTokenTTL,
	}
}

// parseFlags собирает конфигурацию. Приоритет: флаги, переменные окружения,
// YAML-файл (-config или CONFIG_FILE), значения по умолчанию.
func parseFlags(args []string, lookupEnv func(string) (string, bool)) (*config, error) {
	cfg := defaultConfig()
	flags := &config{}
	var configFile, locations string

	fs := flag.NewFlagSet("spc-server", flag.ContinueOnError)
	fs.StringVar(&configFile, "config", "",
		fmt.Sprintf("Путь к YAML-файлу конфигурации (env: %s)", envConfigFile))
	fs.StringVar(&flags.Port, "port", "",
		fmt.Sprintf("Порт HTTP(S)-сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	fs.StringVar(&flags.CertFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата (env: %s)", envTLSCertFile))
	fs.StringVar(&flags.KeyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа (env: %s)", envTLSKeyFile))
	fs.StringVar(&flags.DBDriver, "db-driver", "",
		fmt.Sprintf("СУБД: postgres или sqlite (env: %s, default: %s)", envDBDriver, defaultDBDriver))
	fs.StringVar(&flags.DatabaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения или путь к файлу SQLite (env: %s, default: %s)", envDatabaseDSN, defaultDatabaseDSN))
	fs.StringVar(&flags.UploadDir, "upload-dir", "",
		fmt.Sprintf("Каталог для вложений (env: %s, default: %s)", envUploadDir, defaultUploadDir))
	fs.StringVar(&locations, "locations", "",
		fmt.Sprintf("Места хранения через запятую (env: %s)", envLocations))
	fs.StringVar(&flags.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Ключ подписи JWT, пустой отключает аутентификацию (env: %s)", envJWTSecret))
	fs.StringVar(&flags.LogLevel, "log-level", "",
		fmt.Sprintf("Уровень логирования (env: %s, default: %s)", envLogLevel, defaultLogLevel))
	fs.StringVar(&flags.LogFormat, "log-format", "",
		fmt.Sprintf("Формат логов json или console (env: %s, default: %s)", envLogFormat, defaultLogFormat))
	fs.IntVar(&flags.MaxUploadMB, "max-upload-mb", 0,
		fmt.Sprintf("Максимальный размер загрузки в МБ (env: %s, default: %d)", envMaxUploadMB, defaultMaxUploadMB))
	fs.StringVar(&cfg.IssueTokenFor, "issue-token", "",
		"Выпустить JWT для указанного оператора и завершить работу")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", defaultTokenTTL, "Срок жизни выпускаемого токена")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configFile == "" {
		configFile, _ = lookupEnv(envConfigFile)
	}
	if configFile != "" {
		if err := applyYAML(cfg, configFile); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}

	// Применяем только явно заданные флаги
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = flags.Port
		case "cert-file":
			cfg.CertFile = flags.CertFile
		case "key-file":
			cfg.KeyFile = flags.KeyFile
		case "db-driver":
			cfg.DBDriver = flags.DBDriver
		case "database-dsn":
			cfg.DatabaseDSN = flags.DatabaseDSN
		case "upload-dir":
			cfg.UploadDir = flags.UploadDir
		case "locations":
			cfg.Locations = splitList(locations)
		case "jwt-secret":
			cfg.JWTSecret = flags.JWTSecret
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "log-format":
			cfg.LogFormat = flags.LogFormat
		case "max-upload-mb":
			cfg.MaxUploadMB = flags.MaxUploadMB
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyYAML(cfg *config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла конфигурации '%s': %w", path, err)
	}
	// Поля, которых нет в файле, сохраняют значения по умолчанию
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("ошибка разбора файла конфигурации '%s': %w", path, err)
	}
	return nil
}

func applyEnv(cfg *config, lookupEnv func(string) (string, bool)) error {
	strVars := map[string]*string{
		envServerPort:  &cfg.Port,
		envTLSCertFile: &cfg.CertFile,
		envTLSKeyFile:  &cfg.KeyFile,
		envDBDriver:    &cfg.DBDriver,
		envDatabaseDSN: &cfg.DatabaseDSN,
		envUploadDir:   &cfg.UploadDir,
		envJWTSecret:   &cfg.JWTSecret,
		envLogLevel:    &cfg.LogLevel,
		envLogFormat:   &cfg.LogFormat,
	}
	for key, dst := range strVars {
		if value, ok := lookupEnv(key); ok {
			*dst = value
		}
	}
	if value, ok := lookupEnv(envLocations); ok {
		cfg.Locations = splitList(value)
	}
	if value, ok := lookupEnv(envMaxUploadMB); ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("некорректное значение %s=%q: %w", envMaxUploadMB, value, err)
		}
		cfg.MaxUploadMB = n
	}
	return nil
}

func (c *config) validate() error {
	if _, err := repository.ParseDialect(c.DBDriver); err != nil {
		return err
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		return errors.New("не указан каталог для вложений (--upload-dir или " + envUploadDir + ")")
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("для HTTPS нужны и сертификат (--cert-file), и ключ (--key-file)")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("максимальный размер загрузки должен быть положительным, получено %d", c.MaxUploadMB)
	}
	if len(c.Locations) == 0 {
		return errors.New("список мест хранения пуст")
	}
	if c.IssueTokenFor != "" && c.JWTSecret == "" {
		return errors.New("для выпуска токена нужен ключ подписи (--jwt-secret или " + envJWTSecret + ")")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, locationsEnvSeparator) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
