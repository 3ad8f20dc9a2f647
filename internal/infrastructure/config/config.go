package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	sharedConfig "supportdesk/internal/shared/config"
	"supportdesk/internal/shared/utils"
)

type Config struct {
	Server       sharedConfig.ServerConfig       `mapstructure:"server"`
	Logger       sharedConfig.LoggerConfig       `mapstructure:"logger"`
	Store        sharedConfig.StoreConfig        `mapstructure:"store"`
	Sync         sharedConfig.SyncConfig         `mapstructure:"sync"`
	Notification sharedConfig.NotificationConfig `mapstructure:"notification"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml (optional), .env and SUPPORTDESK_* environment variables.
// A non-empty env overrides server.mode.
func Load(env string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	v.SetEnvPrefix("SUPPORTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := utils.ValidateStruct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 60)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis.host", "localhost")
	v.SetDefault("store.redis.port", 6379)
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", "supportdesk")
	v.SetDefault("store.database.dialect", "sqlite")
	v.SetDefault("store.database.path", "supportdesk.db")
	v.SetDefault("store.database.host", "localhost")
	v.SetDefault("store.database.port", 3306)
	v.SetDefault("store.database.username", "root")
	v.SetDefault("store.database.database", "supportdesk")
	v.SetDefault("store.database.max_idle_conns", 10)
	v.SetDefault("store.database.max_open_conns", 50)
	v.SetDefault("store.database.conn_max_lifetime", 60)

	v.SetDefault("sync.poll_interval", 5*time.Second)

	v.SetDefault("notification.transport", "log")
	v.SetDefault("notification.timeout", 10*time.Second)
	v.SetDefault("notification.email.smtp_host", "localhost")
	v.SetDefault("notification.email.smtp_port", 1025)
	v.SetDefault("notification.email.from_address", "support@supportdesk.local")
	v.SetDefault("notification.email.from_name", "Support")
}
