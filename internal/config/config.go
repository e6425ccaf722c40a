package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// DefaultPath — JSON-конфиг, который читается, если существует.
const DefaultPath = "tabula.json"

type Config struct {
	Port     string `json:"port"     env:"TABULA_PORT"`
	DSLDir   string `json:"dslDir"   env:"TABULA_DSL_DIR"`
	EnumsDir string `json:"enumsDir" env:"TABULA_ENUMS_DIR"`

	// Хранилище: "sqlite" (default) | "postgres"
	Driver string `json:"driver" env:"TABULA_DRIVER"`
	DSN    string `json:"dsn"    env:"TABULA_DSN"` // sqlite: путь к файлу; postgres: URL

	// Recreate удаляет и создаёт таблицы при старте (данные теряются).
	Recreate bool `json:"recreate" env:"TABULA_RECREATE"`
	// AllowRecreate открывает POST /api/admin/recreate.
	AllowRecreate bool `json:"allowRecreate" env:"TABULA_ALLOW_RECREATE"`

	ServiceName  string `json:"serviceName"  env:"TABULA_SERVICE_NAME"`
	OTelEndpoint string `json:"otelEndpoint" env:"TABULA_OTEL_ENDPOINT"` // пусто = трассировка выключена
}

func def() Config {
	return Config{
		Port:        "8080",
		DSLDir:      "dsl",
		EnumsDir:    "reference/enums",
		Driver:      "sqlite",
		DSN:         "tabula.db",
		ServiceName: "tabula",
	}
}

func loadJSON(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Load собирает конфиг: значения по умолчанию → JSON → ENV (TABULA_*) → флаги.
// JSON по умолчанию (tabula.json) необязателен; явно указанный через -config обязателен.
func Load(name string, args []string) (Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", DefaultPath, "Path to config JSON")
	port := fs.String("port", "", "HTTP port")
	dsl := fs.String("dsl", "", "Path to DSL directory")
	enums := fs.String("enums", "", "Path to enums directory")
	driver := fs.String("driver", "", "Storage driver (sqlite/postgres)")
	dsn := fs.String("dsn", "", "SQLite file or Postgres URL")
	recreate := fs.String("recreate", "", "Drop and create all tables on start (true/false)")
	allow := fs.String("allow-recreate", "", "Enable POST /api/admin/recreate (true/false)")
	otelEndpoint := fs.String("otel-endpoint", "", "OTLP/HTTP endpoint (empty = tracing off)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := def()

	explicit := false
	fs.Visit(func(f *flag.Flag) { explicit = explicit || f.Name == "config" })
	if err := loadJSON(*configPath, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = strings.TrimSpace(*port)
		case "dsl":
			cfg.DSLDir = strings.TrimSpace(*dsl)
		case "enums":
			cfg.EnumsDir = strings.TrimSpace(*enums)
		case "driver":
			cfg.Driver = strings.TrimSpace(*driver)
		case "dsn":
			cfg.DSN = strings.TrimSpace(*dsn)
		case "recreate":
			cfg.Recreate, flagErr = parseBool(f.Name, *recreate, flagErr)
		case "allow-recreate":
			cfg.AllowRecreate, flagErr = parseBool(f.Name, *allow, flagErr)
		case "otel-endpoint":
			cfg.OTelEndpoint = strings.TrimSpace(*otelEndpoint)
		}
	})
	if flagErr != nil {
		return Config{}, flagErr
	}
	return cfg, cfg.Validate()
}

func parseBool(name, v string, prev error) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil && prev == nil {
		prev = fmt.Errorf("flag -%s: expected true/false, got %q", name, v)
	}
	return b, prev
}

// Validate проверяет обязательные поля.
func (c Config) Validate() error {
	switch strings.ToLower(c.Driver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown driver %q (sqlite/postgres)", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("dsn is required")
	}
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("port is required")
	}
	return nil
}
