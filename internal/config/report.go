package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReportConfig tunes the dashboard aggregation without a redeploy.
type ReportConfig struct {
	// Records whose weighted margin falls below this percentage are counted
	// as low-margin on the dashboard.
	LowMarginThreshold float64 `mapstructure:"lowMarginThreshold"`
	// Number of destinations in the top-destinations ranking.
	TopDestinations int `mapstructure:"topDestinations"`
	// Number of records in the recent-activity feed.
	RecentRecords int `mapstructure:"recentRecords"`
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		LowMarginThreshold: 10,
		TopDestinations:    5,
		RecentRecords:      10,
	}
}

type ReportConfigHolder struct {
	current atomic.Value // holds ReportConfig
}

func NewReportConfigHolder() (*ReportConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("report")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/exporta/config") // Volume-mounted config
	v.AddConfigPath("/etc/exporta")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("EXPORTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultReportConfig()
		v.SetDefault("report.lowMarginThreshold", defaults.LowMarginThreshold)
		v.SetDefault("report.topDestinations", defaults.TopDestinations)
		v.SetDefault("report.recentRecords", defaults.RecentRecords)
	}

	var cfg ReportConfig
	if err := v.UnmarshalKey("report", &cfg); err != nil {
		return nil, err
	}
	if err := validateReportConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ReportConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReportConfig
		if err := v.UnmarshalKey("report", &updated); err != nil {
			log.Printf("[report-config] reload failed: %v", err)
			return
		}
		if err := validateReportConfig(updated); err != nil {
			log.Printf("[report-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[report-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticReportConfigHolder wraps a fixed config with no file watching.
func NewStaticReportConfigHolder(cfg ReportConfig) *ReportConfigHolder {
	holder := &ReportConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ReportConfigHolder) Get() ReportConfig {
	return h.current.Load().(ReportConfig)
}

func validateReportConfig(cfg ReportConfig) error {
	if cfg.TopDestinations <= 0 {
		return errors.New("report.topDestinations must be positive")
	}
	if cfg.RecentRecords <= 0 {
		return errors.New("report.recentRecords must be positive")
	}
	return nil
}
