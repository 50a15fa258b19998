// Package config loads service settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. INKGRAPH_SERVER_ADDR.
const EnvPrefix = "INKGRAPH"

type Config struct {
	Server  Server  `mapstructure:"server"`
	Store   Store   `mapstructure:"store"`
	Auth    Auth    `mapstructure:"auth"`
	Loader  Loader  `mapstructure:"loader"`
	Log     Log     `mapstructure:"log"`
	Otel    Otel    `mapstructure:"otel"`
	Metrics Metrics `mapstructure:"metrics"`
}

type Server struct {
	Addr         string        `mapstructure:"addr"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Pretty       bool          `mapstructure:"pretty"`
	MaxBodyBytes int64         `mapstructure:"max-body-bytes"`
	CORSOrigins  []string      `mapstructure:"cors-origins"`
	GraphiQL     bool          `mapstructure:"graphiql"`
}

type Store struct {
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	QueryTimeout time.Duration `mapstructure:"query-timeout"`
	Neo4j        Neo4j         `mapstructure:"neo4j"`
}

type Neo4j struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type Auth struct {
	JWTSecret  string        `mapstructure:"jwt-secret"`
	TokenTTL   time.Duration `mapstructure:"token-ttl"`
	BcryptCost int           `mapstructure:"bcrypt-cost"`
}

type Loader struct {
	BatchTimeout time.Duration `mapstructure:"batch-timeout"`
	MaxBatch     int           `mapstructure:"max-batch"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Otel struct {
	Endpoint string `mapstructure:"endpoint"`
	Service  string `mapstructure:"service"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
}

// Drivers lists the accepted values of store.driver.
var Drivers = []string{"sqlite", "postgres", "mysql", "neo4j"}

var defaults = map[string]any{
	"server.addr":           ":4000",
	"server.timeout":        10 * time.Second,
	"server.pretty":         false,
	"server.max-body-bytes": int64(1 << 20),
	"server.cors-origins":   []string{},
	"server.graphiql":       true,
	"store.driver":          "sqlite",
	"store.dsn":             "file:inkgraph.db?_pragma=foreign_keys(1)",
	"store.query-timeout":   5 * time.Second,
	"store.neo4j.username":  "",
	"store.neo4j.password":  "",
	"store.neo4j.database":  "",
	"auth.jwt-secret":       "",
	"auth.token-ttl":        168 * time.Hour,
	"auth.bcrypt-cost":      10,
	"loader.batch-timeout":  5 * time.Second,
	"loader.max-batch":      0,
	"log.level":             "info",
	"log.format":            "json",
	"otel.endpoint":         "",
	"otel.service":          "inkgraph",
	"metrics.enabled":       true,
}

// aliases maps conventional unprefixed variables onto keys.
var aliases = map[string]string{
	"server.addr":     "PORT",
	"auth.jwt-secret": "JWT_SECRET",
	"store.dsn":       "DATABASE_URL",
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range aliases {
		// The prefixed variable wins over the alias.
		_ = v.BindEnv(key, EnvPrefix+"_"+envName(key), env)
	}
	return v
}

func envName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// BindFlags binds every flag of fs whose name is a config key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if _, ok := defaults[f.Name]; ok && err == nil {
			err = v.BindPFlag(f.Name, f)
		}
	})
	return err
}

// Load reads the optional config file and decodes v.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if port := c.Server.Addr; port != "" && !strings.Contains(port, ":") {
		c.Server.Addr = ":" + port
	}
	return &c, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt-secret is required"))
	}
	if !validDriver(c.Store.Driver) {
		errs = append(errs, fmt.Errorf("store.driver %q is not one of %s", c.Store.Driver, strings.Join(Drivers, ", ")))
	}
	for _, t := range []struct {
		key string
		d   time.Duration
	}{
		{"server.timeout", c.Server.Timeout},
		{"store.query-timeout", c.Store.QueryTimeout},
		{"auth.token-ttl", c.Auth.TokenTTL},
		{"loader.batch-timeout", c.Loader.BatchTimeout},
	} {
		if t.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", t.key))
		}
	}
	if c.Loader.MaxBatch < 0 {
		errs = append(errs, errors.New("loader.max-batch must not be negative"))
	}
	return errors.Join(errs...)
}

func validDriver(d string) bool {
	for _, v := range Drivers {
		if v == d {
			return true
		}
	}
	return false
}
