package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment key read by this package.
const EnvPrefix = "AUTORELOAD_"

// LoadEnvFile loads environment variables from a file
// If overwrite=true, existing environment variables will be overwritten.
// If overwrite=false, existing environment variables will not be overwritten.
func LoadEnvFile(filepath string, overwrite bool) error {
	file, err := os.Open(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)
		if _, exists := os.LookupEnv(key); overwrite || !exists {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

// lookupEnv reads EnvPrefix+key and reports whether it was set and non-empty.
func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func envString(key string, dst *string) {
	if v, ok := lookupEnv(key); ok {
		*dst = v
	}
}

func envBool(key string, dst *bool) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return &FieldError{Field: EnvPrefix + key, Err: err}
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return &FieldError{Field: EnvPrefix + key, Err: err}
	}
	*dst = d
	return nil
}

func envList(key string, dst *[]string) {
	if v, ok := lookupEnv(key); ok {
		*dst = SplitList(v)
	}
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
