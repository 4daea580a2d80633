package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
		// Collector ships aggregated error logs to kafka.collector_topic.
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"5m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"20s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"30s"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"5"`
			Burst int     `yaml:"burst" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Backend struct {
		// kafka, clickhouse or none; where forecast runs are recorded.
		Type         string        `yaml:"type" default:"none"`
		BufferSize   int           `yaml:"buffer_size" default:"256"`
		BatchSize    int           `yaml:"batch_size" default:"20"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s"`
	} `yaml:"backend"`
	Forecast struct {
		Model           string        `yaml:"model" default:"trend"`
		LookbackYears   int           `yaml:"lookback_years" default:"8"`
		MinObservations int           `yaml:"min_observations" default:"30"`
		MaxHorizonDays  int           `yaml:"max_horizon_days" default:"730"`
		MaxMonths       int           `yaml:"max_months" default:"24"`
		Anchor          string        `yaml:"anchor" default:"USD"`
		Tradable        []string      `yaml:"tradable"`
		SyntheticVolPct float64       `yaml:"synthetic_vol_pct" default:"0.02"`
		CacheTTL        time.Duration `yaml:"cache_ttl" default:"6h"`
		RequestTimeout  time.Duration `yaml:"request_timeout" default:"4m"`
		Seed            uint64        `yaml:"seed"`
		Trend           struct {
			Window         int     `yaml:"window" default:"30"`
			NoiseAmplitude float64 `yaml:"noise_amplitude" default:"0.1"`
		} `yaml:"trend"`
		Sequence struct {
			InputChunk   int     `yaml:"input_chunk" default:"365"`
			OutputChunk  int     `yaml:"output_chunk" default:"180"`
			HiddenSize   int     `yaml:"hidden_size" default:"64"`
			Epochs       int     `yaml:"epochs" default:"50"`
			BatchSize    int     `yaml:"batch_size" default:"64"`
			LearningRate float64 `yaml:"learning_rate" default:"0.001"`
			Seed         uint64  `yaml:"seed" default:"42"`
		} `yaml:"sequence"`
		Pool struct {
			Workers       int           `yaml:"workers" default:"2"`
			QueueSize     int           `yaml:"queue_size" default:"16"`
			SubmitTimeout time.Duration `yaml:"submit_timeout"`
		} `yaml:"pool"`
		Warm struct {
			Enabled  bool     `yaml:"enabled"`
			Schedule string   `yaml:"schedule" default:"0 0 3 * * *"`
			Pairs    []string `yaml:"pairs"`
			Months   int      `yaml:"months" default:"12"`
		} `yaml:"warm"`
	} `yaml:"forecast"`
	Yahoo struct {
		BaseURL string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		Timeout time.Duration `yaml:"timeout" default:"20s"`
	} `yaml:"yahoo"`
	Rates struct {
		BaseURL string        `yaml:"base_url" default:"https://open.er-api.com"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
		TTL     time.Duration `yaml:"ttl" default:"1h"`
	} `yaml:"rates"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix" default:"travelfx"`
		L1TTL    time.Duration `yaml:"l1_ttl" default:"5m"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		Topic          string   `yaml:"topic" default:"fx.forecast.runs"`
		RequestTopic   string   `yaml:"request_topic" default:"fx.forecast.requests"`
		CollectorTopic string   `yaml:"collector_topic" default:"fx.logs.errors"`
		RequiredAcks   int      `yaml:"required_acks" default:"1"`
		Compression    string   `yaml:"compression" default:"snappy"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"travelfx-warmers"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"500ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"10s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"fx.forecast.requests.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"fx"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

// DefaultTradable are the codes the market data provider quotes directly.
var DefaultTradable = []string{"USD", "EUR", "GBP", "JPY", "AUD", "CAD", "CHF", "CNY", "HKD", "NZD", "SEK", "SGD"}

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	c.normalize()
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.ApplyEnv(os.Getenv)
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("OPEN_EXCHANGE_RATES_API_KEY"); v != "" {
		c.Rates.APIKey = v
	}
	if v := getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("FORECAST_MODEL"); v != "" {
		c.Forecast.Model = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) normalize() {
	c.Forecast.Anchor = strings.ToUpper(strings.TrimSpace(c.Forecast.Anchor))
	c.Forecast.Model = strings.ToLower(strings.TrimSpace(c.Forecast.Model))
	c.Backend.Type = strings.ToLower(strings.TrimSpace(c.Backend.Type))
	if len(c.Forecast.Tradable) == 0 {
		c.Forecast.Tradable = append([]string(nil), DefaultTradable...)
	}
	for i, code := range c.Forecast.Tradable {
		c.Forecast.Tradable[i] = strings.ToUpper(strings.TrimSpace(code))
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("backend.type must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when backend.type is kafka")
	}
	if c.Kafka.Consumer.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka.consumer.enabled is set")
	}
	switch c.Forecast.Model {
	case "trend", "sequence":
	default:
		return fmt.Errorf("forecast.model must be 'trend' or 'sequence', got '%s'", c.Forecast.Model)
	}
	if len(c.Forecast.Anchor) != 3 {
		return fmt.Errorf("forecast.anchor must be a 3-letter currency code")
	}
	if c.Forecast.LookbackYears <= 0 {
		return fmt.Errorf("forecast.lookback_years must be positive")
	}
	if c.Forecast.MinObservations < 2 {
		return fmt.Errorf("forecast.min_observations must be at least 2")
	}
	if c.Forecast.MaxHorizonDays <= 0 || c.Forecast.MaxMonths <= 0 {
		return fmt.Errorf("forecast.max_horizon_days and forecast.max_months must be positive")
	}
	if c.Forecast.Trend.Window < 2 {
		return fmt.Errorf("forecast.trend.window must be at least 2")
	}
	if c.Forecast.Trend.NoiseAmplitude < 0 {
		return fmt.Errorf("forecast.trend.noise_amplitude cannot be negative")
	}
	if c.Forecast.SyntheticVolPct < 0 {
		return fmt.Errorf("forecast.synthetic_vol_pct cannot be negative")
	}
	s := c.Forecast.Sequence
	if s.InputChunk <= 0 || s.OutputChunk <= 0 || s.HiddenSize <= 0 || s.Epochs <= 0 || s.BatchSize <= 0 {
		return fmt.Errorf("forecast.sequence sizes must be positive")
	}
	if c.Forecast.Pool.Workers <= 0 {
		return fmt.Errorf("forecast.pool.workers must be positive")
	}
	if c.Forecast.Warm.Enabled && len(c.Forecast.Warm.Pairs) == 0 {
		return fmt.Errorf("forecast.warm.pairs cannot be empty when warm-up is enabled")
	}
	return nil
}
