package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func loadEnvString(key string, result *string) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	*result = s
}

func loadEnvUint(key string, result *uint) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return
	}
	*result = uint(n)
}

/* Configuration */

/* PgSQL Configuration */
type pgSqlConfig struct {
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Database string `json:"database"`
	SslMode  string `json:"ssl_mode"`
	User     string `json:"user"`
	Password string `json:"password"`
}

func (p pgSqlConfig) ConnStr() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s", p.Host, p.Port, p.User, p.Password, p.Database, p.SslMode)
}

func defaultPgSql() pgSqlConfig {
	return pgSqlConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "database",
		User:     "",
		Password: "",
		SslMode:  "disable",
	}
}

func (p *pgSqlConfig) loadFromEnv() {
	loadEnvString("POSTGRES_HOST", &p.Host)
	loadEnvUint("POSTGRES_PORT", &p.Port)
	loadEnvString("POSTGRES_DB_NAME", &p.Database)
	loadEnvString("POSTGRES_SSLMODE", &p.SslMode)
	loadEnvString("POSTGRES_USERNAME", &p.User)
	loadEnvString("POSTGRES_PASSWORD", &p.Password)
}

/* Listen Configuration */

type listenConfig struct {
	Host string `json:"host"`
	Port uint   `json:"port"`
}

func (l listenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

func defaultListenConfig() listenConfig {
	return listenConfig{
		Host: "127.0.0.1",
		Port: 8080,
	}
}

func (l *listenConfig) loadFromEnv() {
	loadEnvString("LISTEN_HOST", &l.Host)
	loadEnvUint("LISTEN_PORT", &l.Port)
}

type hostConfig struct {
	Host string `json:"host"`
}

func (h *hostConfig) loadFromEnv() {
	loadEnvString("HOST", &h.Host)
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		Host: "localhost",
	}
}

type natsConfig struct {
	Host             string
	Port             uint
	Username         string
	Password         string
	JetStreamEnabled bool
	PortMonitoring   uint
}

func (c *natsConfig) loadFromEnv() {
	c.Host = getEnv("NATS_HOST", "localhost")

	// Load port with default 4222
	if portStr := getEnv("NATS_PORT", "4222"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Port = uint(port)
		} else {
			c.Port = 4222
		}
	} else {
		c.Port = 4222
	}

	c.Username = getEnv("NATS_USER", "")
	c.Password = getEnv("NATS_PASSWORD", "")

	// Load JetStream enabled flag
	if jsEnabled := getEnv("NATS_JETSTREAM_ENABLED", "true"); jsEnabled == "true" {
		c.JetStreamEnabled = true
	} else {
		c.JetStreamEnabled = false
	}

	// Load monitoring port
	if portMonitorStr := getEnv("NATS_PORT_MONITORING", "8222"); portMonitorStr != "" {
		if portMonitor, err := strconv.Atoi(portMonitorStr); err == nil {
			c.PortMonitoring = uint(portMonitor)
		} else {
			c.PortMonitoring = 8222
		}
	} else {
		c.PortMonitoring = 8222
	}
}

func (c *natsConfig) URL() string {
	return fmt.Sprintf("nats://%s:%d", c.Host, c.Port)
}

func defaultNatsConfig() natsConfig {
	return natsConfig{
		Host:             "localhost",
		Port:             4222,
		Username:         "",
		Password:         "",
		JetStreamEnabled: true,
		PortMonitoring:   8222,
	}
}

type securityConfig struct {
	BackendApiKey string
	ServerSalt    string
}

func (s *securityConfig) loadFromEnv() {
	s.BackendApiKey = getEnv("BACKEND_API_KEY", "")
	s.ServerSalt = getEnv("SERVER_SALT", "")
}

func defaultSecurityConfig() securityConfig {
	return securityConfig{
		BackendApiKey: "",
		ServerSalt:    "",
	}
}

type redisConfig struct {
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r *redisConfig) loadFromEnv() {
	loadEnvString("REDIS_HOST", &r.Host)
	loadEnvUint("REDIS_PORT", &r.Port)
	loadEnvString("REDIS_PASSWORD", &r.Password)

	// Load DB number with a default of 0
	if dbStr := getEnv("REDIS_DB", "0"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
	log.Info().Interface("redis", r).Msg("Redis config loaded")
}

func defaultRedisConfig() redisConfig {
	return redisConfig{
		Host:     "localhost",
		Port:     6379,
		Password: "",
		DB:       0,
	}
}

// GCSConfig configures the artifact store. Artifacts go to the GCS bucket
// when one is set, to LocalDir when only that is set, nowhere otherwise.
type GCSConfig struct {
	ProjectID       string
	CredentialsFile string
	Bucket          string
	LocalDir        string
}

func (g *GCSConfig) loadFromEnv() {
	g.ProjectID = getEnv("GCS_PROJECT_ID", "")
	g.CredentialsFile = getEnv("GCS_CREDENTIALS_FILE", "")
	g.Bucket = getEnv("GCS_STORAGE_BUCKET", "")
	g.LocalDir = getEnv("ARTIFACT_LOCAL_DIR", "")
}

func defaultGcsConfig() GCSConfig {
	return GCSConfig{
		ProjectID:       "",
		CredentialsFile: "",
		Bucket:          "",
		LocalDir:        "",
	}
}

type OracleConfig struct {
	BaseURL    string
	Model      string
	MaxRetries uint
}

func (o *OracleConfig) loadFromEnv() {
	loadEnvString("ORACLE_BASE_URL", &o.BaseURL)
	loadEnvString("ORACLE_MODEL", &o.Model)
	loadEnvUint("ORACLE_MAX_RETRIES", &o.MaxRetries)
}

func defaultOracleConfig() OracleConfig {
	return OracleConfig{
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta/openai",
		Model:      "gemini-2.0-flash",
		MaxRetries: 3,
	}
}

type SearchConfig struct {
	Endpoint string
	ApiKey   string
}

func (s *SearchConfig) loadFromEnv() {
	loadEnvString("SEARCH_ENDPOINT", &s.Endpoint)
	loadEnvString("SEARCH_API_KEY", &s.ApiKey)
}

func defaultSearchConfig() SearchConfig {
	return SearchConfig{
		Endpoint: "https://api.search.brave.com/res/v1/web/search",
		ApiKey:   "",
	}
}

type ScraperConfig struct {
	HopBudget           uint
	MaxAttempts         uint
	MaxPages            uint
	PageTimeoutSeconds  uint
	WorkflowTimeoutMins uint
	RetentionMins       uint
	DuplicateThreshold  float64
}

func (s *ScraperConfig) loadFromEnv() {
	loadEnvUint("SCRAPER_HOP_BUDGET", &s.HopBudget)
	loadEnvUint("SCRAPER_MAX_ATTEMPTS", &s.MaxAttempts)
	loadEnvUint("SCRAPER_MAX_PAGES", &s.MaxPages)
	loadEnvUint("SCRAPER_PAGE_TIMEOUT_SECONDS", &s.PageTimeoutSeconds)
	loadEnvUint("WORKFLOW_TIMEOUT_MINUTES", &s.WorkflowTimeoutMins)
	loadEnvUint("WORKFLOW_RETENTION_MINUTES", &s.RetentionMins)

	if ratioStr := getEnv("SCRAPER_DUPLICATE_THRESHOLD", ""); ratioStr != "" {
		if ratio, err := strconv.ParseFloat(ratioStr, 64); err == nil && ratio > 0 && ratio <= 1 {
			s.DuplicateThreshold = ratio
		}
	}
}

func defaultScraperConfig() ScraperConfig {
	return ScraperConfig{
		HopBudget:           5,
		MaxAttempts:         3,
		MaxPages:            20,
		PageTimeoutSeconds:  30,
		WorkflowTimeoutMins: 10,
		RetentionMins:       60,
		DuplicateThreshold:  0.5,
	}
}

type SchedulerConfig struct {
	Enabled        bool
	IntervalHours  uint
	RunTimeoutMins uint
	MaxConcurrent  uint
}

func (s *SchedulerConfig) loadFromEnv() {
	if enabled := getEnv("SCHEDULER_ENABLED", "true"); enabled == "true" {
		s.Enabled = true
	} else {
		s.Enabled = false
	}
	loadEnvUint("SCHEDULER_INTERVAL_HOURS", &s.IntervalHours)
	loadEnvUint("SCHEDULER_RUN_TIMEOUT_MINUTES", &s.RunTimeoutMins)
	loadEnvUint("SCHEDULER_MAX_CONCURRENT", &s.MaxConcurrent)
}

func defaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:        true,
		IntervalHours:  1,
		RunTimeoutMins: 30,
		MaxConcurrent:  3,
	}
}

type Config struct {
	Host      hostConfig
	Listen    listenConfig
	PgSql     pgSqlConfig
	Security  securityConfig
	Nats      natsConfig
	Redis     redisConfig
	GCS       GCSConfig
	Oracle    OracleConfig
	Search    SearchConfig
	Scraper   ScraperConfig
	Scheduler SchedulerConfig
}

func (c *Config) LoadFromEnv() {
	c.Host.loadFromEnv()
	c.Listen.loadFromEnv()
	c.PgSql.loadFromEnv()
	c.Security.loadFromEnv()
	c.Nats.loadFromEnv()
	c.Redis.loadFromEnv()
	c.GCS.loadFromEnv()
	c.Oracle.loadFromEnv()
	c.Search.loadFromEnv()
	c.Scraper.loadFromEnv()
	c.Scheduler.loadFromEnv()
}

func DefaultConfig() Config {
	return Config{
		Host:      defaultHostConfig(),
		Listen:    defaultListenConfig(),
		PgSql:     defaultPgSql(),
		Security:  defaultSecurityConfig(),
		Nats:      defaultNatsConfig(),
		Redis:     defaultRedisConfig(),
		GCS:       defaultGcsConfig(),
		Oracle:    defaultOracleConfig(),
		Search:    defaultSearchConfig(),
		Scraper:   defaultScraperConfig(),
		Scheduler: defaultSchedulerConfig(),
	}
}
