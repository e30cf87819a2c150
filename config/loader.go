package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with the precedence
// defaults -> YAML file -> environment variables.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with no file and the QUESTHIVE env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "QUESTHIVE"}
}

// WithConfigPath sets the YAML file path. A missing file is not an error;
// defaults and env vars still apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the final configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if l.envPrefix != "" {
		if err := applyEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
			return nil, fmt.Errorf("apply env overrides: %w", err)
		}
	}

	return cfg, nil
}

// applyEnv walks the config struct and overrides fields from environment
// variables named <prefix>_<SECTION>_<FIELD> per the `env` tags.
func applyEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("env")
		if tag == "" {
			continue
		}
		name := prefix + "_" + tag
		fv := v.Field(i)

		if fv.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			if err := applyEnv(fv, name); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := setField(fv, trimmed(raw)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func setField(fv reflect.Value, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int64:
		if fv.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			fv.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field kind %s", fv.Kind())
	}
	return nil
}

// trimmed reports the value with surrounding whitespace removed; exported
// env values sometimes carry trailing newlines from shell heredocs.
func trimmed(raw string) string { return strings.TrimSpace(raw) }
