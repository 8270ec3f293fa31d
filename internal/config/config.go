package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Roles an API key can carry
const (
	RoleCompany = "company"
	RoleAuditor = "auditor"
	RoleAdmin   = "admin"
)

type APIKey struct {
	Name           string `yaml:"name"`
	Key            string `yaml:"key"`
	Role           string `yaml:"role"`
	OrganizationID string `yaml:"organizationId"`
}

type Config struct {
	Server struct {
		Port                  int      `yaml:"port"`
		CORSOrigins           []string `yaml:"corsOrigins"`
		RateLimit             int      `yaml:"rateLimit"` // requests per minute per client
		LegacyProvisionRoutes bool     `yaml:"legacyProvisionRoutes"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | sqlite
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		Path     string `yaml:"path"` // sqlite file
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Session struct {
		Backend  string `yaml:"backend"` // sqlite | redis
		Path     string `yaml:"path"`
		RedisURL string `yaml:"redisUrl"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"session"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"openai"`

	Auth struct {
		Keys []APIKey `yaml:"keys"`
	} `yaml:"auth"`

	Report struct {
		Recommendation string `yaml:"recommendation"` // CEL expression
	} `yaml:"report"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load baca file config.yaml, lalu env override dan default
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config", goerr.V("path", path))
	}
	return Parse(data)
}

// Parse decodes a config document and applies env overrides, defaults and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode config")
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CNAV_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("CNAV_OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("CNAV_MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 120
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "cnav.db"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "mysql":
			c.Database.Port = 3306
		case "postgres":
			c.Database.Port = 5432
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "sqlite"
	}
	if c.Session.Path == "" {
		c.Session.Path = "cnav-sessions.db"
	}
	if c.Session.Prefix == "" {
		c.Session.Prefix = "cnav:"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4.1"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks enum values and API key roles.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return goerr.New("unknown database driver", goerr.V("driver", c.Database.Driver))
	}
	switch c.Session.Backend {
	case "sqlite", "redis":
	default:
		return goerr.New("unknown session backend", goerr.V("backend", c.Session.Backend))
	}
	if c.Session.Backend == "redis" && c.Session.RedisURL == "" {
		return goerr.New("session.redisUrl is required for the redis backend")
	}
	seen := map[string]bool{}
	for _, k := range c.Auth.Keys {
		if k.Key == "" {
			return goerr.New("api key is empty", goerr.V("name", k.Name))
		}
		if seen[k.Key] {
			return goerr.New("duplicate api key", goerr.V("name", k.Name))
		}
		seen[k.Key] = true
		switch k.Role {
		case RoleAuditor, RoleAdmin:
		case RoleCompany:
			if k.OrganizationID == "" {
				return goerr.New("company api key needs organizationId", goerr.V("name", k.Name))
			}
		default:
			return goerr.New("unknown api key role", goerr.V("name", k.Name), goerr.V("role", k.Role))
		}
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection URL.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + c.Database.SSLMode,
	}
	return u.String()
}

// MinioEnabled reports whether object storage is configured.
func (c *Config) MinioEnabled() bool {
	return strings.TrimSpace(c.Minio.Endpoint) != ""
}

// OpenAIEnabled reports whether an LLM key is configured.
func (c *Config) OpenAIEnabled() bool {
	return strings.TrimSpace(c.OpenAI.APIKey) != ""
}
