package commands

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/go-viper/mapstructure/v2"
	"github.com/penwyp/go-code-activity/internal/application/monitor"
	"github.com/penwyp/go-code-activity/internal/core/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "ACTIVITY"
	defaultConfigFile = "~/.go-code-activity/config.yaml"
)

// configKeys maps config file keys to the flags that set them. Keys follow
// the mapstructure tags of monitor.Config.
var configKeys = map[string]string{
	"base_url":        "base-url",
	"course":          "course",
	"assignment":      "assignment",
	"user":            "user",
	"interval":        "interval",
	"budget":          "budget",
	"log_dir":         "log-dir",
	"concurrency":     "concurrency",
	"timezone":        "timezone",
	"tolerance":       "tolerance",
	"watch_logs":      "watch-logs",
	"ui_refresh_rate": "refresh-per-second",
	"auto_refresh":    "auto-refresh",
	"refresh_period":  "refresh-period",
	"sync_debounce":   "sync-debounce",
	"sync_cooldown":   "sync-cooldown",
	"metrics_addr":    "metrics-addr",
}

// addTargetFlags registers the flags every command shares
func addTargetFlags(fs *pflag.FlagSet) {
	fs.StringVar(&configFile, "config", "",
		"Config file (default "+defaultConfigFile+")")
	fs.BoolVar(&debug, "debug", false,
		"Enable debug mode")

	fs.String("base-url", "http://localhost:8080",
		"Telemetry endpoint base URL")
	fs.String("course", "", "Course identifier")
	fs.String("assignment", "", "Assignment identifier")
	fs.String("user", "", "Student identifier")
	fs.String("interval", "5",
		"Bucket width: 1, 3, 5, 10, 15, 30, 60 minutes or hour, day, week, month")
	fs.Int("budget", constants.DefaultPointBudget,
		"Maximum number of points per chart")
	fs.String("log-dir", "",
		"Directory of build and run JSONL logs")
	fs.Int("concurrency", runtime.NumCPU(),
		"Number of log files parsed in parallel")
	fs.String("timezone", "Local",
		"Timezone setting (e.g., Asia/Shanghai, UTC)")
	fs.Duration("tolerance", constants.CorrelationTolerance,
		"Maximum distance between a time and a correlated log event")
}

// loadConfig merges flags, ACTIVITY_* environment variables and the config
// file, in that order of precedence
func loadConfig(cmd *cobra.Command) (*monitor.Config, error) {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return nil, err
	}

	config := &monitor.Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(config, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.LogDir = expandLogDir(config.LogDir)
	return config, nil
}

func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	for key, name := range configKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	path := configFile
	explicit := path != ""
	if !explicit {
		path = expandPath(defaultConfigFile)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return v, nil
}

func expandLogDir(dir string) string {
	if dir == "" {
		return ""
	}
	return expandPath(dir)
}
