package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"

	"gopkg.in/yaml.v3"

	"github.com/xdg/cmdgate/internal/clog"
)

// Parse parses YAML data over DefaultConfig. Fields absent from data keep
// their default; lists present in data replace the default list.
// It returns an error if the YAML is malformed, contains unknown fields,
// or has type mismatches. Empty input returns DefaultConfig.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := strictUnmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// strictUnmarshal unmarshals YAML data into v, rejecting unknown fields.
// Empty input is treated as valid, leaving v unchanged.
func strictUnmarshal(data []byte, v any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decode YAML: %w", err)
	}
	return nil
}

// Marshal marshals a Config to YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Redacted returns a copy of cfg with secrets masked, for display.
func Redacted(cfg *Config) *Config {
	out := *cfg
	out.Auth.APIKeys = make([]APIKeyEntry, len(cfg.Auth.APIKeys))
	for i, k := range cfg.Auth.APIKeys {
		out.Auth.APIKeys[i] = APIKeyEntry{Name: k.Name, Key: clog.Redacted}
	}
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = clog.Redacted
	}
	if out.Auth.DatabaseURL != "" {
		out.Auth.DatabaseURL = redactURL(out.Auth.DatabaseURL)
	}
	return &out
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return clog.Redacted
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
