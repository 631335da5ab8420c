// Package config holds viper helpers shared by the CLI commands.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/spf13/viper"
)

// Keys understood by versync. Environment variables use the VERSYNC_ prefix
// with dots and dashes mapped to underscores.
const (
	KeyEndpoint       = "endpoint"
	KeyOwner          = "owner"
	KeyOrigin         = "origin"
	KeyRegionSelector = "region_selector"
	KeyToken          = "token"
	KeyPacingInterval = "pacing_interval"
	KeyMaxConcurrent  = "max_concurrent"
	KeyAuthScheme     = "auth_scheme"
	KeyCacheTTL       = "cache_ttl"
	KeyAPIKey         = "api_key"
)

// TokenEnv is the conventional environment variable for a Door43 access token.
const TokenEnv = "DOOR43_TOKEN"

// Gitea access tokens are 40 hex characters.
var tokenPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	// Check OS env directly first
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	// If Viper doesn't have it but OS does, return OS value
	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// GetDuration returns key as a duration, or fallback when unset or invalid.
func GetDuration(key string, fallback time.Duration) time.Duration {
	if !viper.IsSet(key) {
		return fallback
	}
	d := viper.GetDuration(key)
	if d <= 0 {
		return fallback
	}
	return d
}

// GetInt returns key as an int, or fallback when unset or not positive.
func GetInt(key string, fallback int) int {
	if !viper.IsSet(key) {
		return fallback
	}
	if n := viper.GetInt(key); n > 0 {
		return n
	}
	return fallback
}

// GetToken returns the registry access token from the "token" key or
// DOOR43_TOKEN. An empty token is not an error: the public catalog needs none.
// A token that does not look like a Gitea token is rejected when strict is set.
func GetToken(strict bool) (string, error) {
	token := viper.GetString(KeyToken)
	if token == "" {
		token = GetString(TokenEnv)
	}
	if token == "" {
		return "", nil
	}
	if strict && !tokenPattern.MatchString(token) {
		return "", fmt.Errorf("%s does not look like a Door43 access token", TokenEnv)
	}
	return token, nil
}

// HasToken reports whether a token is configured without validating it.
func HasToken() bool {
	token, _ := GetToken(false)
	return token != ""
}
