package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gamma-omg/servicelog-mcp/records"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	TransportSSE   = "sse"
	TransportStdio = "stdio"
)

type Config struct {
	LogFile       string `yaml:"log"`
	DB            string `yaml:"db" validate:"required"`
	DocRoot       string `yaml:"doc_root"`
	MergeEventsMs int    `yaml:"write_debounce_ms" validate:"gte=0"`
	ServerAddr    string `yaml:"server_addr" validate:"required_if=Transport sse"`
	Transport     string `yaml:"transport" validate:"oneof=sse stdio"`
	Locale        string `yaml:"locale" validate:"oneof=en de"`
	Timezone      string `yaml:"timezone"`
}

// envOverrides lists the variables that take precedence over the config file.
var envOverrides = map[string]func(c *Config, v string) error{
	"SERVICELOG_LOG":         func(c *Config, v string) error { c.LogFile = v; return nil },
	"SERVICELOG_DB":          func(c *Config, v string) error { c.DB = v; return nil },
	"SERVICELOG_DOC_ROOT":    func(c *Config, v string) error { c.DocRoot = v; return nil },
	"SERVICELOG_SERVER_ADDR": func(c *Config, v string) error { c.ServerAddr = v; return nil },
	"SERVICELOG_TRANSPORT":   func(c *Config, v string) error { c.Transport = v; return nil },
	"SERVICELOG_LOCALE":      func(c *Config, v string) error { c.Locale = v; return nil },
	"SERVICELOG_TIMEZONE":    func(c *Config, v string) error { c.Timezone = v; return nil },
	"SERVICELOG_WRITE_DEBOUNCE_MS": func(c *Config, v string) error {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVICELOG_WRITE_DEBOUNCE_MS: %w", err)
		}
		c.MergeEventsMs = ms
		return nil
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		return name
	})

	return v
}

func defaultConfig() *Config {
	return &Config{
		DB:            "servicelog.db",
		MergeEventsMs: 500,
		ServerAddr:    "localhost:8080",
		Transport:     TransportSSE,
		Locale:        records.English.Locale,
	}
}

// loadEnvFile reads KEY=value pairs into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	return nil
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := defaultConfig()
	dec := yaml.NewDecoder(cfgFile)
	dec.KnownFields(true)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	for key, apply := range envOverrides {
		if v, ok := os.LookupEnv(key); ok {
			if err := apply(cfg, v); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		for _, fe := range fieldErrs {
			errs = append(errs, fmt.Errorf("invalid %s %q: must satisfy %s", fe.Field(), fmt.Sprint(fe.Value()), fe.ActualTag()))
		}
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves the time zone used for calendar-date filters.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}

	return loc, nil
}

func (c *Config) Labels() records.Labels {
	l, ok := records.LabelsFor(c.Locale)
	if !ok {
		return records.English
	}

	return l
}

func (c *Config) MergeEventsDelay() time.Duration {
	return time.Duration(c.MergeEventsMs) * time.Millisecond
}
