// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GetConfigPath returns the full path for the manager settings file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		configDir = "/etc/panelctl"
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, "panelctl")
	}
	return filepath.Join(configDir, "panelctl.yaml"), nil
}

// LoadConfig resolves T from defaults, the settings file, PANELCTL_* env vars
// and the flags of cmd, in increasing precedence.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, additionalConfigFilePath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("panelctl")
	v.SetConfigType("yaml")

	// An explicit --config path wins over the search path.
	if additionalConfigFilePath != nil && *additionalConfigFilePath != "" {
		v.SetConfigFile(*additionalConfigFilePath)
	}

	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, err
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("panelctl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	mergeLegacyEnv(v)

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&c, hook); err != nil {
		return c, err
	}
	return c, nil
}

// mergeLegacyEnv honours the APP_NAME variable understood by the shell
// installer this tool replaces, then the name of the invoked binary.
// PANELCTL_APP_NAME and the settings file take precedence over both.
func mergeLegacyEnv(v *viper.Viper) {
	if v.InConfig("app_name") {
		return
	}
	if _, ok := os.LookupEnv("PANELCTL_APP_NAME"); ok {
		return
	}
	name := strings.TrimSpace(os.Getenv("APP_NAME"))
	if name == "" {
		name = AppNameFromBinary(os.Args[0])
	}
	if name != "" {
		v.Set("app_name", name)
	}
}

// AppNameFromBinary returns the app name implied by the path the manager was
// invoked through. The management command is installed as <bin_dir>/<app>,
// so cron runs of it resolve the same deployment without any environment.
// The build name and go test binaries imply nothing.
func AppNameFromBinary(arg0 string) string {
	name := filepath.Base(strings.TrimSpace(arg0))
	switch {
	case name == "." || name == string(filepath.Separator) || name == "panelctl":
		return ""
	case strings.HasSuffix(name, ".test"):
		return ""
	case !appNamePattern.MatchString(name):
		return ""
	}
	return name
}

// WriteConfigFile persists c to path, or to the default location when path
// is empty.
func WriteConfigFile[T any](c *T, system bool, path string) (string, error) {
	if path == "" {
		p, err := GetConfigPath(system)
		if err != nil {
			return "", err
		}
		path = p
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the file may carry bot tokens.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
