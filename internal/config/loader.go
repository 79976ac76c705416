package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ecomplus/app-fb-conversions/pkg/log"
)

var (
	// GlobalConfig holds the global configuration instance
	GlobalConfig *Config

	// loaded viper instance, kept for WatchConfig
	loadedViper *viper.Viper
)

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("/etc/fb-conversions")
	}

	// Environment variables, e.g. FBCONV_ECOM_ACCESS_TOKEN
	v.SetEnvPrefix("FBCONV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Warn("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	GlobalConfig = config
	loadedViper = v

	return config, nil
}

// WatchConfig re-reads the configuration when the file changes and
// notifies the callback with the fresh copy. Invalid updates are
// logged and discarded, keeping the last good config.
func WatchConfig(onChange func(*Config)) {
	v := loadedViper
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		fresh := &Config{}
		if err := v.Unmarshal(fresh); err != nil {
			log.WithFields(map[string]interface{}{
				"file":  e.Name,
				"error": err.Error(),
			}).Error("Failed to reload config")
			return
		}
		fresh.SetDefaults()
		if err := fresh.Validate(); err != nil {
			log.WithFields(map[string]interface{}{
				"file":  e.Name,
				"error": err.Error(),
			}).Error("Rejected invalid config reload")
			return
		}
		GlobalConfig = fresh
		log.WithField("file", e.Name).Info("Config reloaded")
		if onChange != nil {
			onChange(fresh)
		}
	})
}

// GetConfig returns the global configuration instance
func GetConfig() *Config {
	if GlobalConfig == nil {
		panic("Config not loaded. Call LoadConfig first.")
	}
	return GlobalConfig
}
