package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultReportLinkBase is the public location the QR code on every report points into.
const DefaultReportLinkBase = "https://raw.githubusercontent.com/developmentof1/AarogyamLabReports/main"

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	ReportDir      string   `mapstructure:"REPORT_DIR"`
	LetterheadPath string   `mapstructure:"LETTERHEAD_PATH"`
	ReportLinkBase string   `mapstructure:"REPORT_LINK_BASE"`
	LabName        string   `mapstructure:"LAB_NAME"`
	LabAddress     string   `mapstructure:"LAB_ADDRESS"`
	LabPhone       string   `mapstructure:"LAB_PHONE"`
	S3Bucket       string   `mapstructure:"S3_BUCKET"`
	S3Prefix       string   `mapstructure:"S3_PREFIX"`
	KafkaBrokers   []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic     string   `mapstructure:"KAFKA_TOPIC"`
	OpenGenerated  bool     `mapstructure:"OPEN_GENERATED"`
	LogFile        string   `mapstructure:"LOG_FILE"`
	LogMaxSizeMB   int      `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups  int      `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays  int      `mapstructure:"LOG_MAX_AGE_DAYS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REPORT_DIR", os.TempDir())
	v.SetDefault("LETTERHEAD_PATH", "letterhead.pdf")
	v.SetDefault("REPORT_LINK_BASE", DefaultReportLinkBase)
	v.SetDefault("LAB_NAME", "Aarogyam Clinical Laboratory")
	v.SetDefault("LAB_ADDRESS", "Near Niltara Hotel, Ichalkaranji, Korochi - 416109")
	v.SetDefault("LAB_PHONE", "7875261778 / 7066261778")
	v.SetDefault("S3_PREFIX", "reports/")
	v.SetDefault("KAFKA_TOPIC", "lab-reports")
	v.SetDefault("LOG_MAX_SIZE_MB", 50)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
		"REPORT_DIR", "LETTERHEAD_PATH", "REPORT_LINK_BASE",
		"LAB_NAME", "LAB_ADDRESS", "LAB_PHONE",
		"S3_BUCKET", "S3_PREFIX", "KAFKA_BROKERS", "KAFKA_TOPIC", "OPEN_GENERATED",
		"LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.S3Bucket == "" {
		log.Println("WARNING: S3_BUCKET is empty; generated reports are only kept in REPORT_DIR.")
	}

	return cfg, nil
}

// splitList re-reads a comma-separated env value so entries are trimmed.
func splitList(current []string, raw string) []string {
	if raw == "" {
		return current
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
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

// LetterheadEnabled reports whether a letterhead template path is configured and
// readable. Generation with letterhead still fails loudly if the file later
// disappears.
func (c *Config) LetterheadEnabled() bool {
	if c.LetterheadPath == "" {
		return false
	}
	_, err := os.Stat(c.LetterheadPath)
	return err == nil
}

// Validate checks that the configuration is usable before the server starts.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "production" && c.Env != "test" {
		return fmt.Errorf("ENV must be \"development\", \"production\", or \"test\", got %q", c.Env)
	}
	if c.ReportDir == "" {
		return fmt.Errorf("REPORT_DIR must not be empty")
	}
	if !strings.HasPrefix(c.ReportLinkBase, "http://") && !strings.HasPrefix(c.ReportLinkBase, "https://") {
		return fmt.Errorf("REPORT_LINK_BASE must be an http(s) URL, got %q", c.ReportLinkBase)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
