package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	private Private
}

type Public struct {
	Server   Server   `yaml:"server" validate:"required"`
	Api      Api      `yaml:"api" validate:"required"`
	Upload   Upload   `yaml:"upload"`
	Draft    Draft    `yaml:"draft"`
	Storage  Storage  `yaml:"storage" validate:"required"`
	Logging  Logging  `yaml:"logging"`
	Security Security `yaml:"security"`
}

type Server struct {
	Port              string        `yaml:"port" validate:"required"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	// ReadTimeout covers the whole body, attachment batches included; zero means none.
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type Api struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // REST calls only; chunk PUTs are unbounded
}

type Upload struct {
	MaxFilesPerRequest int  `yaml:"max_files_per_request"`
	Checkpoints        bool `yaml:"checkpoints"`
}

type Draft struct {
	IdleDelay        time.Duration `yaml:"idle_delay"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	SessionIdleTTL   time.Duration `yaml:"session_idle_ttl"`
}

type Storage struct {
	SqlitePath string `yaml:"sqlite_path" validate:"required"`
}

type Logging struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
}

type Security struct {
	SecureCookies   bool     `yaml:"secure_cookies"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	RequestsPerSec  float64  `yaml:"requests_per_second"`
	Burst           int      `yaml:"burst"`
	AttachmentCache int      `yaml:"attachment_cache_size"`
}

type Private struct {
	JwtKey string `yaml:"jwt_key" validate:"required"`
}

func (s *Config) JwtKey() string {
	return s.private.JwtKey
}

// applyDefaults fills in what an operator rarely changes.
func (p *Public) applyDefaults() {
	if p.Server.ReadHeaderTimeout == 0 {
		p.Server.ReadHeaderTimeout = 10 * time.Second
	}
	if p.Server.ShutdownTimeout == 0 {
		p.Server.ShutdownTimeout = 10 * time.Second
	}
	if p.Api.RequestTimeout == 0 {
		p.Api.RequestTimeout = 30 * time.Second
	}
	if p.Upload.MaxFilesPerRequest == 0 {
		p.Upload.MaxFilesPerRequest = 10
	}
	if p.Draft.IdleDelay == 0 {
		p.Draft.IdleDelay = 2 * time.Second
	}
	if p.Draft.AutosaveInterval == 0 {
		p.Draft.AutosaveInterval = 60 * time.Second
	}
	if p.Draft.SessionIdleTTL == 0 {
		p.Draft.SessionIdleTTL = time.Hour
	}
	if p.Logging.Level == "" {
		p.Logging.Level = "info"
	}
	if p.Security.RequestsPerSec == 0 {
		p.Security.RequestsPerSec = 10
	}
	if p.Security.Burst == 0 {
		p.Security.Burst = 30
	}
	if p.Security.AttachmentCache == 0 {
		p.Security.AttachmentCache = 1024
	}
}

// applyEnv lets the environment (and a .env file) override secrets and endpoints.
func (c *Config) applyEnv() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.private.JwtKey = v
	}
	if v := os.Getenv("PORTAL_API_URL"); v != "" {
		c.Public.Api.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Public.Server.Port = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Public.Storage.SqlitePath = v
	}
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)

	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

func MustLoad(configFolder string) *Config {
	if err := godotenv.Load(path.Join(configFolder, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("can't read .env file: " + err.Error())
	}

	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	privatePath := path.Join(configFolder, "private.yaml")
	if _, err := os.Stat(privatePath); err == nil {
		mustLoadPath(privatePath, &private)
	}

	cfg := &Config{Public: public, private: private}
	cfg.applyEnv()
	cfg.Public.applyDefaults()

	if err := cfg.validate(); err != nil {
		panic(err.Error())
	}
	return cfg
}

func (c *Config) validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c.Public); err != nil {
		return fmt.Errorf("invalid public config: %w", err)
	}
	if err := v.Struct(c.private); err != nil {
		return fmt.Errorf("invalid private config: jwt_key (or JWT_SECRET) is required")
	}
	return nil
}
