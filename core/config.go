package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// Config carries all process-wide settings. It is built once at startup
	// and passed explicitly into every constructor that needs it.
	Config struct {
		Debug     bool
		TestMode  bool
		Env       string // DEV (default), TEST, QA, PROD
		AppName   string
		SecretKey string
		Build     string

		JWTExpirationDelta time.Duration

		DefaultFromEmail string
		FrontendBaseURL  string
		SendgridAPIKey   string
		RollbarToken     string

		Database DatabaseConfig
		Server   ServerConfig
		Uploads  UploadsConfig
	}

	DatabaseConfig struct {
		Engine string // postgres | sqlite
		DSN    string
	}

	ServerConfig struct {
		Host string
		Port int
	}

	UploadsConfig struct {
		Dir           string
		MaxRosterSize int64 // bytes
		MaxFileSize   int64 // bytes, per attachment
		MaxFiles      int
	}
)

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfig loads configuration from defaults, an optional config/.env.<env>
// file and environment variables (prefixed with the current ENV).
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "SmartSubmit")
	v.SetDefault("secretKey", "x3&f0r$t-l0g1n-0nly!ch4ng3-m3-1n-pr0d")
	v.SetDefault("build", "")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseUrl", "http://localhost:5173")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.dsn", "smartsubmit.db")
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("uploads.dir", filepath.Join(Getwd(), "uploads", "assignments"))
	v.SetDefault("uploads.maxRosterSize", int64(5<<20))
	v.SetDefault("uploads.maxFileSize", int64(10<<20))
	v.SetDefault("uploads.maxFiles", 10)

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, fmt.Errorf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:              v.GetBool("debug"),
		TestMode:           v.GetBool("testMode"),
		Env:                env,
		AppName:            v.GetString("appName"),
		SecretKey:          v.GetString("secretKey"),
		Build:              v.GetString("build"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		DefaultFromEmail:   v.GetString("defaultFromEmail"),
		FrontendBaseURL:    v.GetString("frontendBaseUrl"),
		SendgridAPIKey:     v.GetString("sendgridApiKey"),
		RollbarToken:       v.GetString("rollbarToken"),
		Database: DatabaseConfig{
			Engine: v.GetString("database.engine"),
			DSN:    v.GetString("database.dsn"),
		},
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Uploads: UploadsConfig{
			Dir:           v.GetString("uploads.dir"),
			MaxRosterSize: v.GetInt64("uploads.maxRosterSize"),
			MaxFileSize:   v.GetInt64("uploads.maxFileSize"),
			MaxFiles:      v.GetInt("uploads.maxFiles"),
		},
	}
	return conf, nil
}
