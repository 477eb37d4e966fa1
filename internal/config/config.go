package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Zoning    ZoningConfig    `yaml:"zoning" mapstructure:"zoning"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CacheConfig configures the lookup cache backend.
type CacheConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"`
	RedisAddr  string `yaml:"redis_addr" mapstructure:"redis_addr"`
	PoolSize   int    `yaml:"pool_size" mapstructure:"pool_size"`
	MemorySize int    `yaml:"memory_size" mapstructure:"memory_size"`
}

// ProvidersConfig holds upstream geodata API credentials and endpoints.
type ProvidersConfig struct {
	ProxyBaseURL string  `yaml:"proxy_base_url" mapstructure:"proxy_base_url"`
	VWorldKey    string  `yaml:"vworld_key" mapstructure:"vworld_key"`
	VWorldDomain string  `yaml:"vworld_domain" mapstructure:"vworld_domain"`
	DataGoKey    string  `yaml:"datago_key" mapstructure:"datago_key"`
	KakaoKey     string  `yaml:"kakao_key" mapstructure:"kakao_key"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ZoningConfig points at an optional regulation table override.
type ZoningConfig struct {
	TablePath string `yaml:"table_path" mapstructure:"table_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LANDMASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "landmass.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.memory_size", 4096)
	v.SetDefault("providers.proxy_base_url", "")
	v.SetDefault("providers.vworld_key", "")
	v.SetDefault("providers.vworld_domain", "localhost")
	v.SetDefault("providers.datago_key", "")
	v.SetDefault("providers.kakao_key", "")
	v.SetDefault("zoning.table_path", "")
	v.SetDefault("providers.timeout_secs", 15)
	v.SetDefault("providers.rate_per_sec", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode.
// Modes: "resolve" needs at least one upstream provider; "serve" additionally
// needs a listenable port.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			missing = append(missing, "server.port must be between 1 and 65535")
		}
		fallthrough
	case "resolve":
		if c.Providers.ProxyBaseURL == "" && c.Providers.VWorldKey == "" {
			missing = append(missing, "providers.proxy_base_url or providers.vworld_key is required")
		}
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required for postgres")
		}
		if c.Providers.RatePerSec <= 0 {
			missing = append(missing, "providers.rate_per_sec must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
