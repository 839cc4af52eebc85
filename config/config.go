package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort string `envconfig:"APP_PORT"`
	// Gin framework configuration
	GinMode string `envconfig:"GIN_MODE"`
	GinPath string `envconfig:"GIN_PATH"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL"`
	// IdentityHeader is injected by the hosting gateway and carries the caller's stable user identifier.
	IdentityHeader string `envconfig:"IDENTITY_HEADER"`
	// Timezone defines the calendar used for "today", "yesterday" and month boundaries.
	Timezone string         `envconfig:"APP_TIMEZONE"`
	Location *time.Location `ignored:"true"`

	// DBDriver is one of mysql, postgres, mongo.
	DBDriver      string `envconfig:"DB_DRIVER"`
	DatabaseURI   string `envconfig:"DATABASE_URI"`
	DBHost        string `envconfig:"DB_HOST"`
	DBPort        string `envconfig:"DB_PORT"`
	DBUser        string `envconfig:"DB_USER"`
	DBPassword    string `envconfig:"DB_PASSWORD"`
	DBName        string `envconfig:"DB_NAME"`
	DBSSLMode     string `envconfig:"DB_SSLMODE"`
	MongoURI      string `envconfig:"MONGO_URI"`
	MongoDatabase string `envconfig:"MONGO_DATABASE"`

	// Redis for caching and token revocation
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED"`
	RedisHost     string `envconfig:"REDIS_HOST"`
	RedisPort     int    `envconfig:"REDIS_PORT"`
	RedisDB       int    `envconfig:"REDIS_DB"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	// Logging configuration
	LogLevel      string `envconfig:"LOG_LEVEL"`
	LogPath       string `envconfig:"LOG_PATH"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS"`
	LogCompress   bool   `envconfig:"LOG_COMPRESS"`

	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE"`
	AllowedOrigins     []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	MakeUpMonthlyQuota int           `envconfig:"MAKEUP_MONTHLY_QUOTA"`
	StatsCacheTTL      time.Duration `envconfig:"STATS_CACHE_TTL"`
}

// fileConfig mirrors the grouped layout of config/config.json and config/config.yaml.
type fileConfig struct {
	App struct {
		AppPort            string   `json:"AppPort" yaml:"appPort"`
		JWTSecret          string   `json:"JWTSecret" yaml:"jwtSecret"`
		JWTTTL             string   `json:"JWTTTL" yaml:"jwtTTL"`
		IdentityHeader     string   `json:"IdentityHeader" yaml:"identityHeader"`
		Timezone           string   `json:"Timezone" yaml:"timezone"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute" yaml:"rateLimitPerMinute"`
		AllowedOrigins     []string `json:"AllowedOrigins" yaml:"allowedOrigins"`
		MakeUpMonthlyQuota int      `json:"MakeUpMonthlyQuota" yaml:"makeUpMonthlyQuota"`
		StatsCacheTTL      string   `json:"StatsCacheTTL" yaml:"statsCacheTTL"`
	} `json:"app" yaml:"app"`
	Gin struct {
		Mode    string `json:"Mode" yaml:"mode"`
		LogPath string `json:"LogPath" yaml:"logPath"`
	} `json:"gin" yaml:"gin"`
	Database struct {
		Driver        string `json:"Driver" yaml:"driver"`
		DatabaseURI   string `json:"DatabaseURI" yaml:"databaseURI"`
		DBHost        string `json:"DBHost" yaml:"host"`
		DBPort        string `json:"DBPort" yaml:"port"`
		DBUser        string `json:"DBUser" yaml:"user"`
		DBPassword    string `json:"DBPassword" yaml:"password"`
		DBName        string `json:"DBName" yaml:"name"`
		DBSSLMode     string `json:"DBSSLMode" yaml:"sslMode"`
		MongoURI      string `json:"MongoURI" yaml:"mongoURI"`
		MongoDatabase string `json:"MongoDatabase" yaml:"mongoDatabase"`
	} `json:"database" yaml:"database"`
	Redis struct {
		Enabled       bool   `json:"RedisEnabled" yaml:"enabled"`
		RedisHost     string `json:"RedisHost" yaml:"host"`
		RedisPort     int    `json:"RedisPort" yaml:"port"`
		RedisDB       int    `json:"RedisDB" yaml:"db"`
		RedisPassword string `json:"RedisPassword" yaml:"password"`
	} `json:"redis" yaml:"redis"`
	Log struct {
		Level      string `json:"Level" yaml:"level"`
		Path       string `json:"Path" yaml:"path"`
		MaxSizeMB  int    `json:"MaxSizeMB" yaml:"maxSizeMB"`
		MaxBackups int    `json:"MaxBackups" yaml:"maxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays" yaml:"maxAgeDays"`
		Compress   bool   `json:"Compress" yaml:"compress"`
	} `json:"log" yaml:"log"`
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	c, err := LoadFrom("config")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Used by tests and embedding programs.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// LoadFrom reads dir/config.json or dir/config.yaml, applies defaults and then environment overrides.
// Precedence: file -> defaults -> environment variables.
func LoadFrom(dir string) (AppConfig, error) {
	var c AppConfig

	fc, err := readConfigFile(dir)
	if err != nil {
		return c, err
	}
	if fc != nil {
		if err := fc.apply(&c); err != nil {
			return c, err
		}
	}

	applyDefaults(&c)

	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("env overrides: %w", err)
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// readConfigFile returns nil when neither config file exists.
func readConfigFile(dir string) (*fileConfig, error) {
	candidates := []string{"config.json", "config.yaml", "config.yml"}
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var fc fileConfig
		if strings.HasSuffix(name, ".json") {
			err = json.Unmarshal(data, &fc)
		} else {
			err = yaml.Unmarshal(data, &fc)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return &fc, nil
	}
	return nil, nil
}

func (fc *fileConfig) apply(c *AppConfig) error {
	c.AppPort = fc.App.AppPort
	c.JWTSecret = fc.App.JWTSecret
	c.IdentityHeader = fc.App.IdentityHeader
	c.Timezone = fc.App.Timezone
	c.RateLimitPerMinute = fc.App.RateLimitPerMinute
	c.AllowedOrigins = fc.App.AllowedOrigins
	c.MakeUpMonthlyQuota = fc.App.MakeUpMonthlyQuota
	if fc.App.JWTTTL != "" {
		d, err := time.ParseDuration(fc.App.JWTTTL)
		if err != nil {
			return fmt.Errorf("app.JWTTTL: %w", err)
		}
		c.JWTTTL = d
	}
	if fc.App.StatsCacheTTL != "" {
		d, err := time.ParseDuration(fc.App.StatsCacheTTL)
		if err != nil {
			return fmt.Errorf("app.StatsCacheTTL: %w", err)
		}
		c.StatsCacheTTL = d
	}

	c.GinMode = fc.Gin.Mode
	c.GinPath = fc.Gin.LogPath

	c.DBDriver = fc.Database.Driver
	c.DatabaseURI = fc.Database.DatabaseURI
	c.DBHost = fc.Database.DBHost
	c.DBPort = fc.Database.DBPort
	c.DBUser = fc.Database.DBUser
	c.DBPassword = fc.Database.DBPassword
	c.DBName = fc.Database.DBName
	c.DBSSLMode = fc.Database.DBSSLMode
	c.MongoURI = fc.Database.MongoURI
	c.MongoDatabase = fc.Database.MongoDatabase

	c.RedisEnabled = fc.Redis.Enabled
	c.RedisHost = fc.Redis.RedisHost
	c.RedisPort = fc.Redis.RedisPort
	c.RedisDB = fc.Redis.RedisDB
	c.RedisPassword = fc.Redis.RedisPassword

	c.LogLevel = fc.Log.Level
	c.LogPath = fc.Log.Path
	c.LogMaxSizeMB = fc.Log.MaxSizeMB
	c.LogMaxBackups = fc.Log.MaxBackups
	c.LogMaxAgeDays = fc.Log.MaxAgeDays
	c.LogCompress = fc.Log.Compress
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.JWTTTL == 0 {
		c.JWTTTL = 7 * 24 * time.Hour
	}
	if c.IdentityHeader == "" {
		c.IdentityHeader = "X-WX-OPENID"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Shanghai"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "quitmate"
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.MongoURI == "" {
		c.MongoURI = "mongodb://127.0.0.1:27017"
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = "quitmate"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.MakeUpMonthlyQuota == 0 {
		c.MakeUpMonthlyQuota = 3
	}
	if c.StatsCacheTTL == 0 {
		c.StatsCacheTTL = 10 * time.Minute
	}
}

// Validate checks required values and resolves the configured timezone.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "mongo":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.MakeUpMonthlyQuota < 0 {
		return errors.New("MAKEUP_MONTHLY_QUOTA must be >= 0")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc
	return nil
}
