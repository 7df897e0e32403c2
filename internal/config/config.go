package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cron      CronConfig      `mapstructure:"cron"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Scan      ScanConfig      `mapstructure:"scan"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr" validate:"required"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding" validate:"omitempty,oneof=console json"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// RedisConfig leaves the ranked cache disabled when Addr is empty.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	DailyScan string `mapstructure:"daily_scan"`
}

type PipelineConfig struct {
	AutoStart            bool          `mapstructure:"auto_start"`
	IngestInterval       time.Duration `mapstructure:"ingest_interval" validate:"gt=0"`
	SymbolMaxLength      int           `mapstructure:"symbol_max_length" validate:"gt=0"`
	AnalysisIdle         time.Duration `mapstructure:"analysis_idle" validate:"gt=0"`
	AnalysisThrottle     time.Duration `mapstructure:"analysis_throttle" validate:"gte=0"`
	AnalysisErrorBackoff time.Duration `mapstructure:"analysis_error_backoff" validate:"gt=0"`
	RankingInterval      time.Duration `mapstructure:"ranking_interval" validate:"gt=0"`
	RankingErrorBackoff  time.Duration `mapstructure:"ranking_error_backoff" validate:"gt=0"`
	TopK                 int           `mapstructure:"top_k" validate:"gt=0"`
}

type AnalyzerConfig struct {
	MinMarketCap    float64       `mapstructure:"min_market_cap" validate:"gte=0"`
	MinVolume24h    float64       `mapstructure:"min_volume_24h" validate:"gte=0"`
	HolderCallDelay time.Duration `mapstructure:"holder_call_delay" validate:"gte=0"`
}

type ProvidersConfig struct {
	Listing   ProviderConfig `mapstructure:"listing"`
	Quote     ProviderConfig `mapstructure:"quote"`
	Liquidity ProviderConfig `mapstructure:"liquidity"`
	Holders   ProviderConfig `mapstructure:"holders"`
}

type ProviderConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gte=0"`
	// RateLimitWait is the first wait after an HTTP 429; later waits grow exponentially.
	RateLimitWait       time.Duration `mapstructure:"rate_limit_wait" validate:"gte=0"`
	MaxRateLimitRetries int           `mapstructure:"max_rate_limit_retries" validate:"gte=0"`
	Breaker             BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures" validate:"gt=0"`
}

type ScanConfig struct {
	DailyLimit int `mapstructure:"daily_limit" validate:"gt=0"`
	TestLimit  int `mapstructure:"test_limit" validate:"gt=0"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "best-bets")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.daily_scan", "0 0 0 * * *")

	v.SetDefault("pipeline.auto_start", true)
	v.SetDefault("pipeline.ingest_interval", "12h")
	v.SetDefault("pipeline.symbol_max_length", 50)
	v.SetDefault("pipeline.analysis_idle", "1s")
	v.SetDefault("pipeline.analysis_throttle", "2s")
	v.SetDefault("pipeline.analysis_error_backoff", "5s")
	v.SetDefault("pipeline.ranking_interval", "60s")
	v.SetDefault("pipeline.ranking_error_backoff", "5s")
	v.SetDefault("pipeline.top_k", 20)

	v.SetDefault("analyzer.min_market_cap", 10000)
	v.SetDefault("analyzer.min_volume_24h", 2000)
	v.SetDefault("analyzer.holder_call_delay", "1s")

	for _, name := range []string{"listing", "quote", "liquidity", "holders"} {
		v.SetDefault("providers."+name+".api_key", "")
		v.SetDefault("providers."+name+".rate_limit_wait", "60s")
		v.SetDefault("providers."+name+".max_rate_limit_retries", 0)
		v.SetDefault("providers."+name+".breaker.max_requests", 1)
		v.SetDefault("providers."+name+".breaker.interval", "60s")
		v.SetDefault("providers."+name+".breaker.timeout", "30s")
		v.SetDefault("providers."+name+".breaker.consecutive_failures", 5)
	}
	v.SetDefault("providers.listing.base_url", "https://api.jup.ag")
	v.SetDefault("providers.listing.timeout", "30s")
	v.SetDefault("providers.listing.requests_per_minute", 30)
	v.SetDefault("providers.quote.base_url", "https://api.dexscreener.com")
	v.SetDefault("providers.quote.timeout", "15s")
	v.SetDefault("providers.quote.requests_per_minute", 300)
	v.SetDefault("providers.quote.max_rate_limit_retries", 5)
	v.SetDefault("providers.liquidity.base_url", "https://solana-gateway.moralis.io")
	v.SetDefault("providers.liquidity.timeout", "15s")
	v.SetDefault("providers.liquidity.requests_per_minute", 60)
	v.SetDefault("providers.holders.base_url", "https://data.solanatracker.io")
	v.SetDefault("providers.holders.timeout", "15s")
	v.SetDefault("providers.holders.requests_per_minute", 60)
	v.SetDefault("scan.daily_limit", 100)
	v.SetDefault("scan.test_limit", 50)
}

var validate = validator.New()

// Validate reports the first invalid field, e.g. "pipeline.TopK failed on gt".
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid config: %s failed on %s", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag())
	}
	return err
}
