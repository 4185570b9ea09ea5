package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Supported storage engines and sql drivers.
const (
	EngineSQL      = "sql"
	EngineBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverSQLite   = "sqlite"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string           `yaml:"git_commit" envconfig:"LIBR_GIT_COMMIT"`
	GitTag                  string           `yaml:"git_tag" envconfig:"LIBR_GIT_TAG"`
	BuildTime               string           `yaml:"build_time" envconfig:"LIBR_BUILD_TIME"`
	IsProduction            bool             `yaml:"is_production" envconfig:"LIBR_IS_PRODUCTION"`
	LogLevel                zapcore.Level    `yaml:"log_level" envconfig:"LIBR_LOG_LEVEL"`
	LogFolder               string           `yaml:"log_folder" envconfig:"LIBR_LOG_FOLDER"`
	LogMaxSize              int              `yaml:"log_max_size" envconfig:"LIBR_LOG_MAX_SIZE"` // in megabytes
	OpsEndpointsEnable      bool             `yaml:"ops_endpoints_enable" envconfig:"LIBR_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool             `yaml:"profiler_endpoints_enable" envconfig:"LIBR_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig     `yaml:"server"`
	Storage                 StorageConfig    `yaml:"storage"`
	Database                DatabaseConfig   `yaml:"database"`
	Redis                   RedisConfig      `yaml:"redis"`
	BoltDB                  BoltDBConfig     `yaml:"boltdb"`
	Pagination              PaginationConfig `yaml:"pagination"`
	RateLimit               RateLimitConfig  `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"LIBR_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"LIBR_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"LIBR_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"LIBR_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"LIBR_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"LIBR_SERVER_SHUTDOWN_TIMEOUT"`
}

type StorageConfig struct {
	Engine string `yaml:"engine" envconfig:"LIBR_STORAGE_ENGINE"` // sql or bolt
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" envconfig:"LIBR_DATABASE_DRIVER"` // postgres, pgx or sqlite
	DSN             string        `yaml:"dsn" envconfig:"LIBR_DATABASE_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"LIBR_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"LIBR_DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"LIBR_DATABASE_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" envconfig:"LIBR_DATABASE_CONN_MAX_IDLE_TIME"`
	Migrate         bool          `yaml:"migrate" envconfig:"LIBR_DATABASE_MIGRATE"`
}

type RedisConfig struct {
	Enabled       bool          `yaml:"enabled" envconfig:"LIBR_REDIS_ENABLED"`
	Host          string        `yaml:"host" envconfig:"LIBR_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"LIBR_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"LIBR_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"LIBR_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"LIBR_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"LIBR_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"LIBR_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"LIBR_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"LIBR_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"LIBR_REDIS_DATABASE_INDEX"`
	CacheTTL      time.Duration `yaml:"cache_ttl" envconfig:"LIBR_REDIS_CACHE_TTL"`
}

type BoltDBConfig struct {
	FilePath string        `yaml:"filepath" envconfig:"LIBR_BOLTDB_FILE_PATH"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"LIBR_BOLTDB_TIMEOUT"`
}

type PaginationConfig struct {
	DefaultSize int `yaml:"default_size" envconfig:"LIBR_PAGINATION_DEFAULT_SIZE"`
	MaxSize     int `yaml:"max_size" envconfig:"LIBR_PAGINATION_MAX_SIZE"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled" envconfig:"LIBR_RATE_LIMIT_ENABLED"`
	RPS     float64       `yaml:"rps" envconfig:"LIBR_RATE_LIMIT_RPS"`
	Burst   int           `yaml:"burst" envconfig:"LIBR_RATE_LIMIT_BURST"`
	Expiry  time.Duration `yaml:"expiry" envconfig:"LIBR_RATE_LIMIT_EXPIRY"` // idle time before a client limiter is dropped
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.LogFolder == "" {
		config.LogFolder = "logs"
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = 30 * time.Second
	}

	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Storage.Engine == "" {
		config.Storage.Engine = EngineSQL
	}

	switch config.Storage.Engine {
	case EngineSQL:
		switch config.Database.Driver {
		case DriverPostgres, DriverPGX, DriverSQLite:
		default:
			return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
		}
		if len(config.Database.DSN) == 0 {
			return errors.New("make sure to set valid database dsn in configuration file")
		}
	case EngineBolt:
		if len(config.BoltDB.FilePath) == 0 {
			return errors.New("make sure to set valid boltdb file path in configuration file")
		}
		if config.BoltDB.Timeout <= 0 {
			config.BoltDB.Timeout = 5 * time.Second
		}
	default:
		return fmt.Errorf("unsupported storage engine %q", config.Storage.Engine)
	}

	if config.Redis.Enabled && (len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0) {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	if config.Redis.CacheTTL <= 0 {
		config.Redis.CacheTTL = 5 * time.Minute
	}

	if config.Pagination.DefaultSize <= 0 {
		config.Pagination.DefaultSize = 20
	}

	if config.Pagination.MaxSize <= 0 {
		config.Pagination.MaxSize = 100
	}

	if config.Pagination.MaxSize < config.Pagination.DefaultSize {
		config.Pagination.MaxSize = config.Pagination.DefaultSize
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.RPS <= 0 {
			config.RateLimit.RPS = 10
		}
		if config.RateLimit.Burst <= 0 {
			config.RateLimit.Burst = 20
		}
		if config.RateLimit.Expiry <= 0 {
			config.RateLimit.Expiry = 3 * time.Minute
		}
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	err = godotenv.Load("./config.env")
	if err != nil {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `LIBR`.
	err = LoadConfigEnvs("LIBR", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
