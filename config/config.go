// Package config loads client settings from a YAML file, the process
// environment and an optional .env file, and turns them into
// client options.
//
// Environment variables use the REQFLOW_ prefix and underscores for
// nesting, so throttle.rps is read from REQFLOW_THROTTLE_RPS.
package config

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/adamwoolhether/reqflow/client"
	"github.com/adamwoolhether/reqflow/errs"
	"github.com/adamwoolhether/reqflow/token"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "REQFLOW"

// Settings describes a configured client.
type Settings struct {
	BaseURL           string            `mapstructure:"base_url" json:"base_url" validate:"omitempty,url"`
	Timeout           time.Duration     `mapstructure:"timeout" json:"timeout" validate:"gte=0"`
	UserAgent         string            `mapstructure:"user_agent" json:"user_agent"`
	BearerToken       string            `mapstructure:"bearer_token" json:"bearer_token"`
	Headers           map[string]string `mapstructure:"headers" json:"headers"`
	RequestID         bool              `mapstructure:"request_id" json:"request_id"`
	NoFollowRedirects bool              `mapstructure:"no_follow_redirects" json:"no_follow_redirects"`
	APIVersion        APIVersion        `mapstructure:"api_version" json:"api_version"`
	Throttle          Throttle          `mapstructure:"throttle" json:"throttle"`
	OAuth             OAuth             `mapstructure:"oauth" json:"oauth"`
}

// APIVersion configures the version query parameter.
type APIVersion struct {
	Param string `mapstructure:"param" json:"param" validate:"required_with=Value"`
	Value string `mapstructure:"value" json:"value"`
}

// Throttle configures client side rate limiting. A zero RPS disables it.
type Throttle struct {
	RPS   int `mapstructure:"rps" json:"rps" validate:"gte=0"`
	Burst int `mapstructure:"burst" json:"burst" validate:"gte=0,required_with=RPS"`
}

// OAuth configures a client credentials token provider. A blank
// TokenURL disables it.
type OAuth struct {
	TokenURL     string   `mapstructure:"token_url" json:"token_url" validate:"omitempty,url"`
	ClientID     string   `mapstructure:"client_id" json:"client_id" validate:"required_with=TokenURL"`
	ClientSecret string   `mapstructure:"client_secret" json:"client_secret"`
	Scopes       []string `mapstructure:"scopes" json:"scopes"`
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	configFile string
	envFile    string
}

// WithConfigFile reads settings from the YAML file at path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile loads the .env file at path into the environment before
// reading it. Variables already set are left alone.
func WithEnvFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// Load resolves settings from defaults, then the config file, then the
// environment, and validates the result.
func Load(opts ...LoaderOption) (Settings, error) {
	var lc loaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	setDefaults(v)

	if lc.envFile != "" {
		if err := godotenv.Load(lc.envFile); err != nil {
			return Settings{}, errs.Configuration("loading env file %s: %v", lc.envFile, err)
		}
	}

	if lc.configFile != "" {
		v.SetConfigFile(lc.configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, errs.Configuration("reading config file %s: %v", lc.configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errs.Configuration("decoding settings: %v", err)
	}

	if err := Validate(s); err != nil {
		return Settings{}, fmt.Errorf("%w: %w", errs.ErrConfiguration, err)
	}

	return s, nil
}

// setDefaults registers every key so AutomaticEnv can override keys
// the config file does not mention.
func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("user_agent", "reqflow")
	v.SetDefault("bearer_token", "")
	v.SetDefault("headers", map[string]string{})
	v.SetDefault("request_id", false)
	v.SetDefault("no_follow_redirects", false)
	v.SetDefault("api_version.param", "api-version")
	v.SetDefault("api_version.value", "")
	v.SetDefault("throttle.rps", 0)
	v.SetDefault("throttle.burst", 0)
	v.SetDefault("oauth.token_url", "")
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.scopes", []string{})
}

// Options converts s into client options, handlers in a fixed order:
// request id, static headers, bearer token, token provider, api version,
// throttle.
func (s Settings) Options() ([]client.Option, error) {
	opts := []client.Option{
		client.WithTimeout(s.Timeout),
		client.WithUserAgent(s.UserAgent),
	}

	if s.NoFollowRedirects {
		opts = append(opts, client.WithNoFollowRedirects())
	}
	if s.RequestID {
		opts = append(opts, client.WithRequestID())
	}

	for _, name := range slices.Sorted(maps.Keys(s.Headers)) {
		opts = append(opts, client.WithHeader(http.CanonicalHeaderKey(name), s.Headers[name]))
	}

	if s.BearerToken != "" {
		opts = append(opts, client.WithBearerToken(s.BearerToken))
	}

	if s.OAuth.TokenURL != "" {
		p, err := token.NewClientCredentials(token.ClientCredentialsConfig{
			TokenURL:     s.OAuth.TokenURL,
			ClientID:     s.OAuth.ClientID,
			ClientSecret: s.OAuth.ClientSecret,
			Scopes:       s.OAuth.Scopes,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring oauth: %w", err)
		}
		opts = append(opts, client.WithTokenProvider(p))
	}

	if s.APIVersion.Value != "" {
		opts = append(opts, client.WithAPIVersionParam(s.APIVersion.Param, s.APIVersion.Value))
	}

	if s.Throttle.RPS > 0 {
		opts = append(opts, client.WithThrottle(s.Throttle.RPS, s.Throttle.Burst))
	}

	return opts, nil
}
