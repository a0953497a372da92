package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis config (rate limiting + submission dedup)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// AWS Services
	AWSRegion    string
	SESFromEmail string

	// Staff notifications
	StaffAlertEmail string // inbox for new-submission alerts
	OpsTopicARN     string // optional SNS topic for ops pushes

	// Klaviyo marketing automation
	KlaviyoAPIKey string
	KlaviyoListID string

	// Secrets
	SessionSecret     string
	UnsubscribeSecret string

	// Public site
	SiteBaseURL string // used in unsubscribe links and admin deep links
	CORSOrigins []string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:     8080,
		LogLevel: "info",
		Env:      "development",

		// Local postgres defaults
		DBHost:     "localhost",
		DBPort:     5432,
		DBUser:     "solace",
		DBPassword: "",
		DBName:     "solace",
		DBSSLMode:  "disable",

		// Redis defaults
		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		AWSRegion:       "us-east-1",
		SESFromEmail:    "hello@solaceretreat.com",
		StaffAlertEmail: "care@solaceretreat.com",

		SiteBaseURL: "http://localhost:3000",
		CORSOrigins: []string{"http://localhost:3000"},
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = p
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	// Database config
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.DBPort = p
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}

	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}

	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DBSSLMode = sslmode
	}

	// Redis config
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}

	if port := os.Getenv("REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		cfg.RedisPort = p
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		d, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = d
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWSRegion = region
	}

	if from := os.Getenv("SES_FROM_EMAIL"); from != "" {
		cfg.SESFromEmail = from
	}

	if alert := os.Getenv("STAFF_ALERT_EMAIL"); alert != "" {
		cfg.StaffAlertEmail = alert
	}

	if arn := os.Getenv("OPS_TOPIC_ARN"); arn != "" {
		cfg.OpsTopicARN = arn
	}

	// Klaviyo config
	if key := os.Getenv("KLAVIYO_API_KEY"); key != "" {
		cfg.KlaviyoAPIKey = key
	}

	if list := os.Getenv("KLAVIYO_LIST_ID"); list != "" {
		cfg.KlaviyoListID = list
	}

	// Secrets
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.SessionSecret = secret
	}

	if secret := os.Getenv("UNSUBSCRIBE_SECRET"); secret != "" {
		cfg.UnsubscribeSecret = secret
	}

	if base := os.Getenv("SITE_BASE_URL"); base != "" {
		cfg.SiteBaseURL = strings.TrimRight(base, "/")
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = nil
		for _, p := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, trimmed)
			}
		}
	}

	return cfg, nil
}
