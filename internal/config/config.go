package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	KafkaBrokers   []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic     string   `mapstructure:"KAFKA_TOPIC"`
	ReportArchive  string   `mapstructure:"REPORT_ARCHIVE"`
	ReportBucket   string   `mapstructure:"REPORT_BUCKET"`
	AWSRegion      string   `mapstructure:"AWS_REGION"`
	S3Endpoint     string   `mapstructure:"S3_ENDPOINT"`
	WeekendDays    []string `mapstructure:"WEEKEND_DAYS"`
	LongStayDays   int      `mapstructure:"LONG_STAY_DAYS"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"REPORT_ARCHIVE", "REPORT_BUCKET", "AWS_REGION", "S3_ENDPOINT",
	"WEEKEND_DAYS", "LONG_STAY_DAYS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("KAFKA_TOPIC", "ward.events")
	v.SetDefault("REPORT_ARCHIVE", "memory")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("WEEKEND_DAYS", "friday,saturday")
	v.SetDefault("LONG_STAY_DAYS", 7)

	// Unmarshal only sees env vars that were bound explicitly.
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.WeekendDays = splitList(v.GetString("WEEKEND_DAYS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development); every request acts as the dev user.")
	}

	return cfg, nil
}

// splitList trims the comma separated env values viper splits without trimming.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Weekend resolves WEEKEND_DAYS into weekdays.
func (c *Config) Weekend() ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(c.WeekendDays))
	for _, name := range c.WeekendDays {
		d, ok := weekdays[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("WEEKEND_DAYS: unknown day %q", name)
		}
		days = append(days, d)
	}
	return days, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Validate checks that the configuration is safe to run. Outside development
// either AUTH_ISSUER or AUTH_SIGNING_KEY must be set so bearer tokens are
// actually verified.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	switch c.ReportArchive {
	case "none", "memory":
	case "s3":
		if c.ReportBucket == "" {
			return fmt.Errorf("REPORT_BUCKET is required when REPORT_ARCHIVE is \"s3\"")
		}
	default:
		return fmt.Errorf("REPORT_ARCHIVE must be \"none\", \"memory\" or \"s3\", got %q", c.ReportArchive)
	}
	if c.LongStayDays < 0 {
		return fmt.Errorf("LONG_STAY_DAYS must not be negative, got %d", c.LongStayDays)
	}
	if _, err := c.Weekend(); err != nil {
		return err
	}
	return nil
}
