package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// insecureSecretKey is only ever accepted in DEV and TEST.
const insecureSecretKey = "dev-only-0r$u^y7c(b!k2m@xq9=h+w3vn8p-campus"

var (
	ErrMissingSecretKey     = errors.New("secretKey must be set outside DEV and TEST")
	ErrMissingCaptchaSecret = errors.New("captcha.secretKey must be set when captcha is enabled")
)

type (
	Config struct {
		Env             string
		Build           string
		Debug           bool
		TestMode        bool
		AppName         string
		SecretKey       string
		FrontendBaseURL string
		DefaultFromMail mail.Address
		RollbarToken    string
		SendgridApiKey  string
		WorkDir         string

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Captcha  CaptchaConfig
		Export   ExportConfig
		Worker   WorkerConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	CaptchaConfig struct {
		Enabled   bool
		SiteKey   string
		SecretKey string
		VerifyURL string
	}

	ExportConfig struct {
		Scale      int
		PageWidth  float64 // mm
		PageHeight float64 // mm
		CachePath  string  // empty disables the artifact cache
	}

	WorkerConfig struct {
		BatchLimit int
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Campus")
	v.SetDefault("secretKey", "")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "Campus")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "campus")
	v.SetDefault("database.user", "campus")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", false)

	v.SetDefault("captcha.enabled", false)
	v.SetDefault("captcha.siteKey", "")
	v.SetDefault("captcha.secretKey", "")
	v.SetDefault("captcha.verifyURL", "https://hcaptcha.com/siteverify")

	v.SetDefault("export.scale", 2)
	v.SetDefault("export.pageWidth", 210.0)
	v.SetDefault("export.pageHeight", 297.0)
	v.SetDefault("export.cachePath", "")

	v.SetDefault("worker.batchLimit", 8)
}

// NewConfig loads the configuration of the current environment (ENV: DEV (default), TEST, QA, PROD).
// Values come from the environment, optionally seeded by config/.env.<env>, and are prefixed by the env name,
// e.g. PROD_SERVER_PORT.
func NewConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := fromViper(v, env, wd)
	if err := conf.check(); err != nil {
		return nil, err
	}
	return conf, nil
}

// NewTestConfig returns the configuration used by tests. It never reads the environment.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	conf := fromViper(v, "TEST", "")
	conf.Debug = false
	conf.SecretKey = insecureSecretKey
	return conf
}

func fromViper(v *viper.Viper, env, wd string) *Config {
	return &Config{
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        env == "TEST",
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromMail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		WorkDir:                   wd,
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Port:                      v.GetInt("server.port"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Captcha: CaptchaConfig{
			Enabled:   v.GetBool("captcha.enabled"),
			SiteKey:   v.GetString("captcha.siteKey"),
			SecretKey: v.GetString("captcha.secretKey"),
			VerifyURL: v.GetString("captcha.verifyURL"),
		},
		Export: ExportConfig{
			Scale:      v.GetInt("export.scale"),
			PageWidth:  v.GetFloat64("export.pageWidth"),
			PageHeight: v.GetFloat64("export.pageHeight"),
			CachePath:  v.GetString("export.cachePath"),
		},
		Worker: WorkerConfig{
			BatchLimit: v.GetInt("worker.batchLimit"),
		},
	}
}

// check refuses to start with a missing secret outside of local environments.
func (c *Config) check() error {
	local := c.Env == "DEV" || c.Env == "TEST"
	if c.SecretKey == "" || c.SecretKey == insecureSecretKey {
		if !local {
			return ErrMissingSecretKey
		}
		c.SecretKey = insecureSecretKey
	}
	if c.Captcha.Enabled && c.Captcha.SecretKey == "" {
		return ErrMissingCaptchaSecret
	}
	return nil
}
