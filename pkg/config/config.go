package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
	AI       AIConfig
	Pipeline PipelineConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AIConfig controls the generative engine. An empty APIKey means every
// pipeline operation is served by the rule-based engine.
type AIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type PipelineConfig struct {
	DefaultDepartment string
	MaxSelfHelp       int
	MaxSources        int
	MaxSimilar        int
	MaxFollowups      int
	HistoryLimit      int
	CacheTTLSec       int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/inquiry-triage")

	viper.SetEnvPrefix("TRIAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/triage.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("ai.apiKey", "")
	viper.SetDefault("ai.model", "gpt-4")
	viper.SetDefault("ai.temperature", 0.2)
	viper.SetDefault("ai.maxTokens", 1024)
	viper.SetDefault("ai.timeoutSec", 30)

	viper.SetDefault("pipeline.defaultDepartment", "総務課")
	viper.SetDefault("pipeline.maxSelfHelp", 3)
	viper.SetDefault("pipeline.maxSources", 5)
	viper.SetDefault("pipeline.maxSimilar", 5)
	viper.SetDefault("pipeline.maxFollowups", 3)
	viper.SetDefault("pipeline.historyLimit", 50)
	viper.SetDefault("pipeline.cacheTTLSec", 300)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
