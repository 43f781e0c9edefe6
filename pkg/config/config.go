package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials 缺少外部服务凭证，周期在做任何工作前直接失败
var ErrMissingCredentials = errors.New("缺少外部服务凭证")

const (
	// DefaultThreshold 用户没有设置时使用的跌幅阈值
	DefaultThreshold = 5
	// MaxDailyQuota 每用户每个UTC日最多推送数，配置只能调低
	MaxDailyQuota = 5
)

// Config 应用配置，进程启动时构建一次，之后只读
type Config struct {
	App struct {
		Name string `yaml:"name"`
		Env  string `yaml:"env"`
	} `yaml:"app"`

	QuoteProvider struct {
		BaseURL        string        `yaml:"base_url"`
		APIKey         string        `yaml:"api_key"`
		BatchSize      int           `yaml:"batch_size"`
		MaxConcurrency int           `yaml:"max_concurrency"`
		Timeout        time.Duration `yaml:"timeout"`
	} `yaml:"quote_provider"`

	Push struct {
		Provider        string        `yaml:"provider"` // onesignal, fcm
		BaseURL         string        `yaml:"base_url"`
		AppID           string        `yaml:"app_id"`
		APIKey          string        `yaml:"api_key"`
		CredentialsFile string        `yaml:"credentials_file"`
		Timeout         time.Duration `yaml:"timeout"`
	} `yaml:"push"`

	Alerting struct {
		DefaultThreshold    int    `yaml:"default_threshold"`
		DailyQuota          int    `yaml:"daily_quota"`
		DispatchConcurrency int    `yaml:"dispatch_concurrency"`
		Schedule            string `yaml:"schedule"`
		RunAtStart          bool   `yaml:"run_at_start"`
	} `yaml:"alerting"`

	Database struct {
		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"postgres"`
	} `yaml:"database"`

	NATS struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"nats"`

	API struct {
		Port         string        `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"api"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// LoadConfig 从文件加载配置
func LoadConfig(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	overrideFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse 解析YAML并填充默认值
func Parse(data []byte) (*Config, error) {
	// 在默认值上解析，文件中出现的键才会覆盖，0 也是合法取值
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Default 返回只包含默认值的配置
func Default() *Config {
	cfg := &Config{}
	cfg.Alerting.DefaultThreshold = DefaultThreshold
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 填充未设置的字段
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "stockpulse"
	}
	if c.App.Env == "" {
		c.App.Env = "dev"
	}

	if c.QuoteProvider.BaseURL == "" {
		c.QuoteProvider.BaseURL = "https://financialmodelingprep.com/api/v3"
	}
	if c.QuoteProvider.BatchSize <= 0 {
		c.QuoteProvider.BatchSize = 10
	}
	if c.QuoteProvider.MaxConcurrency <= 0 {
		c.QuoteProvider.MaxConcurrency = 3
	}
	if c.QuoteProvider.Timeout <= 0 {
		c.QuoteProvider.Timeout = 12 * time.Second
	}

	if c.Push.Provider == "" {
		c.Push.Provider = "onesignal"
	}
	if c.Push.BaseURL == "" && c.Push.Provider == "onesignal" {
		c.Push.BaseURL = "https://onesignal.com/api/v1"
	}
	if c.Push.Timeout <= 0 {
		c.Push.Timeout = 10 * time.Second
	}

	if c.Alerting.DailyQuota <= 0 {
		c.Alerting.DailyQuota = MaxDailyQuota
	}
	if c.Alerting.DispatchConcurrency <= 0 {
		c.Alerting.DispatchConcurrency = 4
	}
	if c.Alerting.Schedule == "" {
		c.Alerting.Schedule = "@every 5m"
	}

	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}

	if c.API.Port == "" {
		c.API.Port = "8080"
	}
	if c.API.ReadTimeout <= 0 {
		c.API.ReadTimeout = 15 * time.Second
	}
	// 同步执行一个周期可能较慢
	if c.API.WriteTimeout <= 0 {
		c.API.WriteTimeout = 2 * time.Minute
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	if c.Alerting.DefaultThreshold < 0 || c.Alerting.DefaultThreshold > 100 {
		return fmt.Errorf("默认阈值超出范围[0,100]: %d", c.Alerting.DefaultThreshold)
	}
	if c.Alerting.DailyQuota > MaxDailyQuota {
		return fmt.Errorf("每日推送上限不能超过 %d: %d", MaxDailyQuota, c.Alerting.DailyQuota)
	}
	switch c.Push.Provider {
	case "onesignal", "fcm":
	default:
		return fmt.Errorf("不支持的推送服务: %s", c.Push.Provider)
	}
	return nil
}

// ValidateCredentials 检查行情和推送服务凭证
func (c *Config) ValidateCredentials() error {
	if c.QuoteProvider.APIKey == "" {
		return fmt.Errorf("%w: quote_provider.api_key", ErrMissingCredentials)
	}
	switch c.Push.Provider {
	case "fcm":
		if c.Push.CredentialsFile == "" {
			return fmt.Errorf("%w: push.credentials_file", ErrMissingCredentials)
		}
	default:
		if c.Push.AppID == "" || c.Push.APIKey == "" {
			return fmt.Errorf("%w: push.app_id/push.api_key", ErrMissingCredentials)
		}
	}
	return nil
}

// DSN 数据库连接字符串
func (c *Config) DSN() string {
	pg := c.Database.Postgres
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode,
	)
}

// overrideFromEnv 使用环境变量覆盖配置
func overrideFromEnv(config *Config) {
	if env := os.Getenv("APP_NAME"); env != "" {
		config.App.Name = env
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.App.Env = env
	}

	// 行情服务
	if env := os.Getenv("QUOTE_API_KEY"); env != "" {
		config.QuoteProvider.APIKey = env
	}
	if env := os.Getenv("QUOTE_BASE_URL"); env != "" {
		config.QuoteProvider.BaseURL = env
	}

	// 推送服务
	if env := os.Getenv("PUSH_PROVIDER"); env != "" {
		config.Push.Provider = env
	}
	if env := os.Getenv("PUSH_APP_ID"); env != "" {
		config.Push.AppID = env
	}
	if env := os.Getenv("PUSH_API_KEY"); env != "" {
		config.Push.APIKey = env
	}
	if env := os.Getenv("PUSH_CREDENTIALS_FILE"); env != "" {
		config.Push.CredentialsFile = env
	}

	// 数据库配置
	if env := os.Getenv("DB_HOST"); env != "" {
		config.Database.Postgres.Host = env
	}
	if env := os.Getenv("DB_PORT"); env != "" {
		if port, err := strconv.Atoi(env); err == nil && port > 0 {
			config.Database.Postgres.Port = port
		}
	}
	if env := os.Getenv("DB_USER"); env != "" {
		config.Database.Postgres.User = env
	}
	if env := os.Getenv("DB_PASSWORD"); env != "" {
		config.Database.Postgres.Password = env
	}
	if env := os.Getenv("DB_NAME"); env != "" {
		config.Database.Postgres.DBName = env
	}

	// NATS配置
	if env := os.Getenv("NATS_URL"); env != "" {
		config.NATS.URL = env
		config.NATS.Enabled = true
	}

	if env := os.Getenv("API_PORT"); env != "" {
		config.API.Port = env
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		config.Log.Level = env
	}
}

// GetDefaultConfigPath 获取默认配置文件路径
func GetDefaultConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev" // 默认开发环境
	}

	return fmt.Sprintf("configs/%s/app.yaml", env)
}
