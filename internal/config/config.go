package config

import (
	"fmt"
	"time"
)

type Config struct {
	Source        SourceConfig        `yaml:"source"`
	Browser       BrowserConfig       `yaml:"browser"`
	API           APIConfig           `yaml:"api"`
	Crawl         CrawlConfig         `yaml:"crawl"`
	Storage       StorageConfig       `yaml:"storage"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type SourceConfig struct {
	Mode string `yaml:"mode"` // "browser" or "api"
}

type BrowserConfig struct {
	ChromePath     string `yaml:"chrome_path"`
	Headless       bool   `yaml:"headless"`
	ContextStorage string `yaml:"context_storage"`
	NavTimeoutS    int    `yaml:"nav_timeout_s"`
	FieldTimeoutMS int    `yaml:"field_timeout_ms"`
}

type APIConfig struct {
	BaseURL         string `yaml:"base_url"`
	UserAgent       string `yaml:"user_agent"`
	RequestTimeoutS int    `yaml:"request_timeout_s"`
	PageDelayMS     int    `yaml:"page_delay_ms"`
}

type CrawlConfig struct {
	Keywords        []string `yaml:"keywords"`
	PagesPerKeyword int      `yaml:"pages_per_keyword"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"` // "sqlite" or "mssql"
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type SchedulerConfig struct {
	Mode      string `yaml:"mode"` // "oneshot" or "interval"
	IntervalS int    `yaml:"interval_s"`
}

type ObservabilityConfig struct {
	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`
}

// Validation
func (c *Config) Validate() error {
	if c.Source.Mode != "browser" && c.Source.Mode != "api" {
		return fmt.Errorf("source.mode must be 'browser' or 'api'")
	}
	if c.Source.Mode == "browser" {
		if c.Browser.NavTimeoutS <= 0 {
			return fmt.Errorf("browser.nav_timeout_s must be > 0")
		}
		if c.Browser.FieldTimeoutMS <= 0 {
			return fmt.Errorf("browser.field_timeout_ms must be > 0")
		}
	}
	if c.Source.Mode == "api" {
		if c.API.BaseURL == "" {
			return fmt.Errorf("api.base_url is required")
		}
		if c.API.UserAgent == "" {
			return fmt.Errorf("api.user_agent is required")
		}
		if c.API.RequestTimeoutS <= 0 {
			return fmt.Errorf("api.request_timeout_s must be > 0")
		}
		if c.API.PageDelayMS < 0 {
			return fmt.Errorf("api.page_delay_ms must be >= 0")
		}
	}
	if len(c.Crawl.Keywords) == 0 {
		return fmt.Errorf("crawl.keywords must not be empty")
	}
	if c.Crawl.PagesPerKeyword <= 0 {
		return fmt.Errorf("crawl.pages_per_keyword must be > 0")
	}
	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "mssql" {
		return fmt.Errorf("storage.driver must be 'sqlite' or 'mssql'")
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required")
	}
	if c.Storage.CommandTimeoutMS <= 0 {
		return fmt.Errorf("storage.command_timeout_ms must be > 0")
	}
	if c.Scheduler.Mode != "oneshot" && c.Scheduler.Mode != "interval" {
		return fmt.Errorf("scheduler.mode must be 'oneshot' or 'interval'")
	}
	if c.Scheduler.Mode == "interval" && c.Scheduler.IntervalS <= 0 {
		return fmt.Errorf("scheduler.interval_s must be > 0 when mode is 'interval'")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	return nil
}

// Getters
func (c *Config) GetNavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutS) * time.Second
}

func (c *Config) GetFieldTimeout() time.Duration {
	return time.Duration(c.Browser.FieldTimeoutMS) * time.Millisecond
}

func (c *Config) GetAPIRequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutS) * time.Second
}

func (c *Config) GetAPIPageDelay() time.Duration {
	return time.Duration(c.API.PageDelayMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetSchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalS) * time.Second
}
