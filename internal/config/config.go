package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ServiceHostKeys are the launch variables that redirect the game's service endpoints.
var ServiceHostKeys = []string{
	"minecraft_auth_host",
	"minecraft_account_host",
	"minecraft_session_host",
	"minecraft_services_host",
}

func loadEnv(v *viper.Viper) error {
	v.SetEnvPrefix("launcher")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.BindEnv("launcher_path", "LAUNCHER_PATH")
	if err != nil {
		return err
	}
	v.SetDefault("launcher_path", "$HOME/.rslauncher")

	v.SetDefault("listen", "127.0.0.1:7878")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", true)
	v.SetDefault("root_path", "$HOME/.minecraft")
	v.SetDefault("workers", 4)
	v.SetDefault("java_path", "")
	v.SetDefault("manifest_url", "")
	v.SetDefault("resources_url", "")
	for _, key := range ServiceHostKeys {
		v.SetDefault("service_hosts."+key, "")
	}
	return nil
}

// Load reads the configuration from LAUNCHER_* variables and an optional
// launcher.yml in the launcher path.
func Load() (*Config, error) {
	v := viper.New()
	if err := loadEnv(v); err != nil {
		return nil, err
	}

	v.AddConfigPath(os.ExpandEnv(v.GetString("launcher_path")))
	v.SetConfigType("yml")
	v.SetConfigName("launcher")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Debug().Msg("No launcher.yml found, using defaults")
	}

	return &Config{v: v}, nil
}

type Config struct {
	v *viper.Viper
}

func (c *Config) LauncherPath() string {
	return os.ExpandEnv(c.v.GetString("launcher_path"))
}

func (c *Config) StorePath() string {
	return filepath.Join(c.LauncherPath(), "launcher.db")
}

func (c *Config) ListenAddress() string {
	return c.v.GetString("listen")
}

func (c *Config) LogLevel() string {
	return c.v.GetString("log_level")
}

func (c *Config) LogPretty() bool {
	return c.v.GetBool("log_pretty")
}

// DefaultRootPath is the game tree used until the user picks another one.
func (c *Config) DefaultRootPath() string {
	return os.ExpandEnv(c.v.GetString("root_path"))
}

func (c *Config) Workers() int {
	return c.v.GetInt("workers")
}

func (c *Config) JavaPath() string {
	return c.v.GetString("java_path")
}

func (c *Config) ManifestURL() string {
	return c.v.GetString("manifest_url")
}

func (c *Config) ResourcesURL() string {
	return c.v.GetString("resources_url")
}

// ServiceHosts returns the configured endpoint overrides keyed by launch variable.
func (c *Config) ServiceHosts() map[string]string {
	hosts := make(map[string]string)
	for _, key := range ServiceHostKeys {
		if value := c.v.GetString("service_hosts." + key); value != "" {
			hosts[key] = value
		}
	}
	return hosts
}
