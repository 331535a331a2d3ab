// Package config loads service settings from environment variables and an
// optional YAML file, with validation at load time.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service settings.
type Config struct {
	// Incident store connection.
	InfluxURL      string        `mapstructure:"influx_url"`
	InfluxToken    string        `mapstructure:"influx_token"`
	InfluxOrg      string        `mapstructure:"influx_org"`
	IncidentBucket string        `mapstructure:"incident_bucket"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`

	// Weather store. Field names are individually optional; an empty name
	// disables that metric in correlation.
	WeatherBucket        string `mapstructure:"weather_bucket"`
	WeatherMeasurement   string `mapstructure:"weather_measurement"`
	WeatherSiteTagKey    string `mapstructure:"weather_site_tag_key"`
	WeatherWindField     string `mapstructure:"weather_wind_field"`
	WeatherTempField     string `mapstructure:"weather_temp_field"`
	WeatherHumidityField string `mapstructure:"weather_humidity_field"`

	// District→weather-tag reference table.
	DistrictTagsCSV string `mapstructure:"district_tags_csv"`

	// Local calendar zone of the source data.
	Timezone string `mapstructure:"timezone"`

	HTTPAddr        string        `mapstructure:"http_addr"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Load reads configuration from the environment (and an optional config file
// named by CONFIG_FILE), applying defaults where unset.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("influx_url", "http://localhost:8086")
	v.SetDefault("influx_token", "")
	v.SetDefault("influx_org", "incidencias")
	v.SetDefault("incident_bucket", "incidencias")
	v.SetDefault("query_timeout", "30s")

	v.SetDefault("weather_bucket", "clima")
	v.SetDefault("weather_measurement", "clima")
	v.SetDefault("weather_site_tag_key", "equip_grp")
	v.SetDefault("weather_wind_field", "windspeed")
	v.SetDefault("weather_temp_field", "temperature")
	v.SetDefault("weather_humidity_field", "humidity")

	v.SetDefault("district_tags_csv", "data/distrito_tags.csv")
	v.SetDefault("timezone", "America/Argentina/San_Luis")

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "10s")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.InfluxURL == "" {
		return errors.New("INFLUX_URL is required")
	}
	if c.InfluxOrg == "" {
		return errors.New("INFLUX_ORG is required")
	}
	if c.IncidentBucket == "" {
		return errors.New("INCIDENT_BUCKET is required")
	}
	if c.QueryTimeout <= 0 {
		return errors.New("QUERY_TIMEOUT must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}
