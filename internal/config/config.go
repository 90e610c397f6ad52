package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/riskibarqy/understat-loader/internal/platform/logging"
	"github.com/spf13/viper"
)

const (
	SinkInsert = "insert"
	SinkCopy   = "copy"
	SinkMemory = "memory"
)

// Config stores runtime configuration for the loader process.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       logging.Level

	DBConfigFile    string
	DBConfigSection string
	Postgres        PostgresConfig
	DBURL           string
	SinkMode        string
	InsertChunkSize int

	Leagues []string
	Seasons []string

	UnderstatBaseURL               string
	UnderstatTimeout               time.Duration
	UnderstatMaxRetries            int
	UnderstatWorkers               int
	UnderstatCircuitEnabled        bool
	UnderstatCircuitFailureCount   int
	UnderstatCircuitOpenTimeout    time.Duration
	UnderstatCircuitHalfOpenMaxReq int

	IngestWorkers int

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeUploadRate    time.Duration
}

// PostgresConfig is the key-value section naming the destination database.
type PostgresConfig struct {
	DBName   string `mapstructure:"dbname" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host" validate:"required,hostname_rfc1123|ip"`
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:          appEnv,
		ServiceName:     getEnv("APP_SERVICE_NAME", "understat-loader"),
		ServiceVersion:  getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:        parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		DBConfigFile:    strings.TrimSpace(getEnv("DB_CONFIG_FILE", "config.ini")),
		DBConfigSection: strings.TrimSpace(getEnv("DB_CONFIG_SECTION", "postgresql")),
		Leagues:         splitCSV(getEnv("UNDERSTAT_LEAGUES", "ENG-Premier League")),
		Seasons:         splitCSV(getEnv("UNDERSTAT_SEASONS", "2023/2024")),
	}
	if len(cfg.Leagues) == 0 {
		return Config{}, fmt.Errorf("UNDERSTAT_LEAGUES cannot be empty")
	}
	if len(cfg.Seasons) == 0 {
		return Config{}, fmt.Errorf("UNDERSTAT_SEASONS cannot be empty")
	}

	cfg.SinkMode = strings.ToLower(strings.TrimSpace(getEnv("LOADER_SINK", SinkInsert)))
	switch cfg.SinkMode {
	case SinkInsert, SinkCopy, SinkMemory:
	default:
		return Config{}, fmt.Errorf("invalid LOADER_SINK %q: valid values are %s, %s, %s", cfg.SinkMode, SinkInsert, SinkCopy, SinkMemory)
	}

	cfg.InsertChunkSize, err = getEnvAsInt("LOADER_INSERT_CHUNK_SIZE", 500)
	if err != nil {
		return Config{}, fmt.Errorf("parse LOADER_INSERT_CHUNK_SIZE: %w", err)
	}
	if cfg.InsertChunkSize < 1 {
		return Config{}, fmt.Errorf("LOADER_INSERT_CHUNK_SIZE must be >= 1")
	}

	if cfg.SinkMode != SinkMemory {
		dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
		if dbURL == "" {
			pg, err := LoadPostgresSection(cfg.DBConfigFile, cfg.DBConfigSection)
			if err != nil {
				return Config{}, err
			}
			cfg.Postgres = pg
			dbURL = pg.URL()
		}
		cfg.DBURL = dbURL
	}

	cfg.UnderstatBaseURL = strings.TrimSpace(getEnv("UNDERSTAT_BASE_URL", "https://understat.com"))
	cfg.UnderstatTimeout, err = time.ParseDuration(getEnv("UNDERSTAT_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UNDERSTAT_TIMEOUT: %w", err)
	}
	if cfg.UnderstatTimeout <= 0 {
		return Config{}, fmt.Errorf("UNDERSTAT_TIMEOUT must be > 0")
	}
	cfg.UnderstatMaxRetries, err = getEnvAsInt("UNDERSTAT_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse UNDERSTAT_MAX_RETRIES: %w", err)
	}
	if cfg.UnderstatMaxRetries < 0 {
		return Config{}, fmt.Errorf("UNDERSTAT_MAX_RETRIES must be >= 0")
	}
	cfg.UnderstatWorkers, err = getEnvAsInt("UNDERSTAT_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse UNDERSTAT_WORKERS: %w", err)
	}
	if cfg.UnderstatWorkers < 1 {
		return Config{}, fmt.Errorf("UNDERSTAT_WORKERS must be >= 1")
	}
	cfg.UnderstatCircuitEnabled, err = strconv.ParseBool(getEnv("UNDERSTAT_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UNDERSTAT_CIRCUIT_ENABLED: %w", err)
	}
	cfg.UnderstatCircuitFailureCount, err = getEnvAsInt("UNDERSTAT_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse UNDERSTAT_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if cfg.UnderstatCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("UNDERSTAT_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	cfg.UnderstatCircuitOpenTimeout, err = time.ParseDuration(getEnv("UNDERSTAT_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UNDERSTAT_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if cfg.UnderstatCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("UNDERSTAT_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	cfg.UnderstatCircuitHalfOpenMaxReq, err = getEnvAsInt("UNDERSTAT_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse UNDERSTAT_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if cfg.UnderstatCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("UNDERSTAT_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	cfg.IngestWorkers, err = getEnvAsInt("INGEST_WORKERS", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse INGEST_WORKERS: %w", err)
	}
	if cfg.IngestWorkers < 1 {
		return Config{}, fmt.Errorf("INGEST_WORKERS must be >= 1")
	}

	cfg.UptraceEnabled, err = strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	cfg.PyroscopeEnabled, err = strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeUploadRate, err = time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if cfg.PyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	return cfg, nil
}

// LoadPostgresSection reads the database section of an INI file.
func LoadPostgresSection(path, section string) (PostgresConfig, error) {
	if strings.TrimSpace(path) == "" {
		return PostgresConfig{}, fmt.Errorf("DB_CONFIG_FILE is required when DB_URL is not set")
	}
	if strings.TrimSpace(section) == "" {
		section = "postgresql"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return PostgresConfig{}, fmt.Errorf("read db config file %s: %w", path, err)
	}

	sub := v.Sub(section)
	if sub == nil {
		return PostgresConfig{}, fmt.Errorf("db config file %s has no [%s] section", path, section)
	}

	var out PostgresConfig
	if err := sub.Unmarshal(&out); err != nil {
		return PostgresConfig{}, fmt.Errorf("decode [%s] section: %w", section, err)
	}
	out.DBName = strings.TrimSpace(out.DBName)
	out.User = strings.TrimSpace(out.User)
	out.Host = strings.TrimSpace(out.Host)

	if err := structValidator.Struct(out); err != nil {
		return PostgresConfig{}, fmt.Errorf("invalid [%s] section: %w", section, err)
	}
	return out, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
