package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("storytime version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	Launch  LaunchConfig  `mapstructure:"launch"`
	Logging LoggingConfig `mapstructure:"logging"`

	// EndpointsFile optionally remaps API paths without a rebuild.
	EndpointsFile string `mapstructure:"endpoints_file"`
}

// APIConfig identifies the client application to the Storytime API.
// The key, platform and client id/secret are sent as fixed headers on
// every request; they identify the app build, not the end user.
type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Key          string        `mapstructure:"key"`
	Platform     string        `mapstructure:"platform"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`

	Endpoints Endpoints `mapstructure:"-"`
}

// Endpoints holds the API paths. Defaults follow the production
// contract; a deployment may override individual paths through the
// endpoints file.
type Endpoints struct {
	Register string `yaml:"register"`
	Login    string `yaml:"login"`
	Logout   string `yaml:"logout"`
	Refresh  string `yaml:"refresh"`
	Me       string `yaml:"me"`
}

// DefaultEndpoints returns the paths of the production API contract.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Register: "/auth/register",
		Login:    "/auth/login",
		Logout:   "/auth/logout",
		Refresh:  "/auth/refresh",
		Me:       "/user/me",
	}
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type LaunchConfig struct {
	// SplashMinDuration is the wall-clock floor the launch sequence
	// waits for even when every check resolves instantly.
	SplashMinDuration time.Duration `mapstructure:"splash_min_duration"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("api.base_url", "", "Base URL of the Storytime API")
	pflag.String("storage.path", "", "Path to the local storage database")
	pflag.String("endpoints-file", "", "Path to an endpoint overrides file")
	// Note: no pflag.Parse() here as it's called in main.go
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("STORYTIME")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	// Defaults also register the keys so environment overrides survive
	// Unmarshal.
	viper.SetDefault("api.base_url", "")
	viper.SetDefault("api.key", "")
	viper.SetDefault("api.platform", "cli")
	viper.SetDefault("api.client_id", "")
	viper.SetDefault("api.client_secret", "")
	viper.SetDefault("api.timeout", "30s")
	viper.SetDefault("launch.splash_min_duration", "1500ms")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("storage.path", defaultStoragePath())
	viper.SetDefault("endpoints_file", "")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/storytime")

	if err := viper.ReadInConfig(); err != nil {
		// A config file is optional; everything can come from env/flags.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required, please adjust the config or pass --api.base_url or STORYTIME_API_BASE_URL environment variable")
	}
	config.API.BaseURL = strings.TrimRight(config.API.BaseURL, "/")

	if endpointsFile := viper.GetString("endpoints-file"); endpointsFile != "" {
		config.EndpointsFile = endpointsFile
	}

	endpoints := DefaultEndpoints()
	if config.EndpointsFile != "" {
		if err := loadEndpointOverrides(config.EndpointsFile, &endpoints); err != nil {
			return nil, err
		}
	}
	config.API.Endpoints = endpoints

	return &config, nil
}

// loadEndpointOverrides merges a yaml overrides file over the defaults.
// Empty fields in the file keep their default values.
func loadEndpointOverrides(path string, endpoints *Endpoints) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read endpoints file: %w", err)
	}

	var overrides Endpoints
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse endpoints file: %w", err)
	}

	if overrides.Register != "" {
		endpoints.Register = overrides.Register
	}
	if overrides.Login != "" {
		endpoints.Login = overrides.Login
	}
	if overrides.Logout != "" {
		endpoints.Logout = overrides.Logout
	}
	if overrides.Refresh != "" {
		endpoints.Refresh = overrides.Refresh
	}
	if overrides.Me != "" {
		endpoints.Me = overrides.Me
	}
	return nil
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "storytime.db"
	}
	return filepath.Join(home, ".storytime", "storytime.db")
}
