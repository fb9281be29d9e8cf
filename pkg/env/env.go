// Package env loads configuration from environment variables, with optional
// .env bootstrap for local development.
package env

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var (
	// ErrNotPointer is returned when SetConfigFromEnvVars receives a value
	// that is not a pointer to a struct.
	ErrNotPointer = errors.New("config must be a pointer to a struct")
	// ErrInvalidValue is returned when an environment variable cannot be
	// parsed into the field type it is bound to.
	ErrInvalidValue = errors.New("invalid environment variable value")
	// ErrUnsupportedField is returned when a struct field has an env tag but
	// an unsupported type.
	ErrUnsupportedField = errors.New("unsupported config field type")
)

// GetenvOrDefault returns the value of the environment variable or the
// default when it is unset, empty, or whitespace-only.
func GetenvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}

	return value
}

// GetenvBoolOrDefault returns the boolean value of the environment variable
// or the default when it is unset or unparsable.
func GetenvBoolOrDefault(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}

	return value
}

// GetenvIntOrDefault returns the integer value of the environment variable
// or the default when it is unset or unparsable.
func GetenvIntOrDefault(key string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// GetenvFloatOrDefault returns the float value of the environment variable
// or the default when it is unset or unparsable.
func GetenvFloatOrDefault(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return defaultValue
	}

	return value
}

var durationType = reflect.TypeOf(time.Duration(0))

// SetConfigFromEnvVars fills a struct from environment variables using the
// `env` field tag. Fields without a tag are skipped; unset variables leave
// the field at its zero value; set-but-unparsable variables fail with
// ErrInvalidValue so configuration typos surface at startup.
//
// Supported field types: string, bool, int, int64, uint32, float64 and
// time.Duration.
func SetConfigFromEnvVars(config any) error {
	rv := reflect.ValueOf(config)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return ErrNotPointer
	}

	elem := rv.Elem()
	structType := elem.Type()

	for i := 0; i < elem.NumField(); i++ {
		field := elem.Field(i)

		tag := structType.Field(i).Tag.Get("env")
		if tag == "" || !field.CanSet() {
			continue
		}

		raw, ok := os.LookupEnv(tag)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}

		if err := setField(field, tag, raw); err != nil {
			return err
		}
	}

	return nil
}

func setField(field reflect.Value, tag, raw string) error {
	if field.Type() == durationType {
		parsed, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, tag, raw, err)
		}

		field.SetInt(int64(parsed))

		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, tag, raw, err)
		}

		field.SetBool(parsed)
	case reflect.Int, reflect.Int64:
		parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, tag, raw, err)
		}

		field.SetInt(parsed)
	case reflect.Uint32:
		parsed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, tag, raw, err)
		}

		field.SetUint(parsed)
	case reflect.Float64:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, tag, raw, err)
		}

		field.SetFloat(parsed)
	default:
		return fmt.Errorf("%w: %s is %s", ErrUnsupportedField, tag, field.Kind())
	}

	return nil
}

// LocalEnvConfig marks that the local environment bootstrap ran.
type LocalEnvConfig struct {
	Initialized bool
}

var (
	localEnvConfig     *LocalEnvConfig
	localEnvConfigOnce sync.Once
)

// InitLocalEnvConfig loads a .env file when present and announces the running
// version and environment. It runs at most once per process.
func InitLocalEnvConfig() *LocalEnvConfig {
	localEnvConfigOnce.Do(func() {
		localEnvConfig = &LocalEnvConfig{Initialized: true}

		// Missing .env is fine outside local environments.
		_ = godotenv.Load()

		fmt.Printf("VERSION: %s\n\n", os.Getenv("VERSION"))
		fmt.Printf("ENVIRONMENT NAME: %s\n\n", os.Getenv("ENV_NAME"))
	})

	return localEnvConfig
}
