package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// StoreConfig selects the tabular store backing the named collections.
type StoreConfig struct {
	Driver      string        `mapstructure:"driver"` // memory, postgres
	Timeout     time.Duration `mapstructure:"timeout"`
	Payments    string        `mapstructure:"payments"`
	Credentials string        `mapstructure:"credentials"`
	Audit       string        `mapstructure:"audit"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AuthConfig struct {
	HashSecrets     bool     `mapstructure:"hash_secrets"`
	AdminIdentities []string `mapstructure:"admin_identities"`
}

// LedgerConfig carries the configurable parts of payment validation.
type LedgerConfig struct {
	Methods                         []string      `mapstructure:"methods"`
	Levels                          []string      `mapstructure:"levels"`
	RequireEnrollmentRef            bool          `mapstructure:"require_enrollment_ref"`
	RequireRegisteredRepresentative bool          `mapstructure:"require_registered_representative"`
	IdempotencyTTL                  time.Duration `mapstructure:"idempotency_ttl"`
}

// SchoolAccount is a bank destination shown to representatives.
type SchoolAccount struct {
	Bank          string `mapstructure:"bank" json:"bank"`
	AccountNumber string `mapstructure:"account_number" json:"account_number,omitempty"`
	Phone         string `mapstructure:"phone" json:"phone,omitempty"`
	Email         string `mapstructure:"email" json:"email,omitempty"`
	Holder        string `mapstructure:"holder" json:"holder"`
	TaxID         string `mapstructure:"tax_id" json:"tax_id"`
	Type          string `mapstructure:"type" json:"type,omitempty"`
}

type CatalogConfig struct {
	Accounts []SchoolAccount `mapstructure:"accounts"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// DefaultMethods lists the payment methods accepted out of the box.
var DefaultMethods = []string{
	"Transferencia",
	"Pago Móvil",
	"Zelle",
	"Binance",
	"Efectivo $",
	"Efectivo Bs.",
	"Efectivo €",
}

// DefaultLevels lists the academic levels.
var DefaultLevels = []string{"Maternal", "Pre-escolar", "Primaria", "Secundaria"}

// Load reads configuration from .env, file and environment variables.
// Environment variables override file values. Prefix: TL_ (Tuition Ledger).
// Nested keys use underscore: TL_STORE_DRIVER, TL_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.timeout", "10s")
	v.SetDefault("store.payments", "Pagos")
	v.SetDefault("store.credentials", "Usuarios")
	v.SetDefault("store.audit", "Auditoria")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "tuition_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "12h")
	v.SetDefault("jwt.issuer", "tuition-ledger")
	v.SetDefault("auth.hash_secrets", true)
	v.SetDefault("auth.admin_identities", []string{})
	v.SetDefault("ledger.methods", DefaultMethods)
	v.SetDefault("ledger.levels", DefaultLevels)
	v.SetDefault("ledger.require_enrollment_ref", true)
	v.SetDefault("ledger.require_registered_representative", true)
	v.SetDefault("ledger.idempotency_ttl", "24h")
	v.SetDefault("catalog.accounts", []map[string]interface{}{
		{
			"bank":           "Banco Mercantil",
			"account_number": "0105-XXXX-XX-XXXXXXXXXX",
			"holder":         "Maestro Beltrán Prieto Figueroa",
			"tax_id":         "J-12345678-0",
			"type":           "Corriente",
		},
		{
			"bank":   "Banco de Venezuela (Pago Móvil)",
			"phone":  "0412-1234567",
			"holder": "Admin Maestro Beltrán",
			"tax_id": "V-12345678",
		},
	})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: TL_STORE_DRIVER -> store.driver
	v.SetEnvPrefix("TL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail at request time.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case "memory", "postgres":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("store.timeout: must be positive"))
	}
	if c.Store.Payments == "" || c.Store.Credentials == "" {
		errs = append(errs, errors.New("store: payments and credentials collection names are required"))
	}
	if c.JWT.Secret == "" && c.Server.Mode != "debug" {
		errs = append(errs, errors.New("jwt.secret: required outside debug mode"))
	}
	if len(c.Ledger.Methods) == 0 {
		errs = append(errs, errors.New("ledger.methods: at least one payment method is required"))
	}
	if len(c.Ledger.Levels) == 0 {
		errs = append(errs, errors.New("ledger.levels: at least one level is required"))
	}

	return errors.Join(errs...)
}
