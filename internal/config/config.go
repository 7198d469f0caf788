// Package config holds the dashboard server configuration. Values come from
// a JSON file, then MORTALITY_* environment variables (optionally from a
// .env file), then command-line flags, each layer overriding the last.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/banshee-data/mortality.report/internal/aggregate"
	"github.com/banshee-data/mortality.report/internal/choropleth"
)

// DefaultConfigPath is the path to the checked-in defaults file.
const DefaultConfigPath = "config/server.defaults.json"

// ServerConfig is the root configuration. Nil fields fall back to the
// defaults returned by the Get* methods, so partial files are safe.
type ServerConfig struct {
	Listen      *string  `json:"listen,omitempty"`
	DBPath      *string  `json:"db_path,omitempty"`
	CountiesCSV *string  `json:"counties_csv,omitempty"`
	FactsCSV    *string  `json:"facts_csv,omitempty"`
	GeoJSONBase *string  `json:"geojson_base,omitempty"`
	MapStyle    *string  `json:"map_style,omitempty"`
	AssetsHost  *string  `json:"echarts_assets_host,omitempty"`
	DefaultYear *int     `json:"default_year,omitempty"`
	DefaultMode *string  `json:"default_mode,omitempty"`
	Colorscale  []string `json:"colorscale,omitempty"`
	Opacity     *float64 `json:"opacity,omitempty"`

	// Chart cache
	CacheSize     *int    `json:"cache_size,omitempty"`
	CacheTTL      *string `json:"cache_ttl,omitempty"` // duration string like "1h"
	RedisAddr     *string `json:"redis_addr,omitempty"`
	RedisPassword *string `json:"redis_password,omitempty"`
	RedisDB       *int    `json:"redis_db,omitempty"`
}

// envOverrides mirrors ServerConfig for environment variables. Unset
// variables leave the pointer nil.
type envOverrides struct {
	Listen        *string  `env:"LISTEN"`
	DBPath        *string  `env:"DB_PATH"`
	CountiesCSV   *string  `env:"COUNTIES_CSV"`
	FactsCSV      *string  `env:"FACTS_CSV"`
	GeoJSONBase   *string  `env:"GEOJSON_BASE"`
	MapStyle      *string  `env:"MAP_STYLE"`
	AssetsHost    *string  `env:"ECHARTS_ASSETS_HOST"`
	DefaultYear   *int     `env:"DEFAULT_YEAR"`
	DefaultMode   *string  `env:"DEFAULT_MODE"`
	Colorscale    []string `env:"COLORSCALE" envSeparator:","`
	Opacity       *float64 `env:"OPACITY"`
	CacheSize     *int     `env:"CACHE_SIZE"`
	CacheTTL      *string  `env:"CACHE_TTL"`
	RedisAddr     *string  `env:"REDIS_ADDR"`
	RedisPassword *string  `env:"REDIS_PASSWORD"`
	RedisDB       *int     `env:"REDIS_DB"`
}

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "MORTALITY_"

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyServerConfig returns a config with every field unset.
func EmptyServerConfig() *ServerConfig {
	return &ServerConfig{}
}

// LoadServerConfig loads a ServerConfig from a JSON file.
func LoadServerConfig(path string) (*ServerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyServerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load reads path (if non-empty), then applies .env and environment
// overrides. A missing dotenv file is not an error.
func Load(path, dotenv string) (*ServerConfig, error) {
	cfg := EmptyServerConfig()
	if path != "" {
		var err error
		if cfg, err = LoadServerConfig(path); err != nil {
			return nil, err
		}
	}
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MORTALITY_* environment variables.
func (c *ServerConfig) ApplyEnv() error {
	var e envOverrides
	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	setString(&c.Listen, e.Listen)
	setString(&c.DBPath, e.DBPath)
	setString(&c.CountiesCSV, e.CountiesCSV)
	setString(&c.FactsCSV, e.FactsCSV)
	setString(&c.GeoJSONBase, e.GeoJSONBase)
	setString(&c.MapStyle, e.MapStyle)
	setString(&c.AssetsHost, e.AssetsHost)
	setString(&c.DefaultMode, e.DefaultMode)
	setString(&c.CacheTTL, e.CacheTTL)
	setString(&c.RedisAddr, e.RedisAddr)
	setString(&c.RedisPassword, e.RedisPassword)
	if e.DefaultYear != nil {
		c.DefaultYear = e.DefaultYear
	}
	if len(e.Colorscale) > 0 {
		c.Colorscale = trimAll(e.Colorscale)
	}
	if e.Opacity != nil {
		c.Opacity = e.Opacity
	}
	if e.CacheSize != nil {
		c.CacheSize = e.CacheSize
	}
	if e.RedisDB != nil {
		c.RedisDB = e.RedisDB
	}
	return nil
}

func setString(dst **string, v *string) {
	if v != nil {
		*dst = v
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks that the configuration values are valid.
func (c *ServerConfig) Validate() error {
	if c.DefaultYear != nil && !choropleth.KnownYear(*c.DefaultYear) {
		return fmt.Errorf("default_year must be between %d and %d, got %d",
			choropleth.Years[0], choropleth.Years[len(choropleth.Years)-1], *c.DefaultYear)
	}
	if c.DefaultMode != nil {
		if _, err := aggregate.ParseMode(*c.DefaultMode); err != nil {
			return fmt.Errorf("default_mode: %w", err)
		}
	}
	if len(c.Colorscale) > 0 && !choropleth.ValidColorscale(c.Colorscale) {
		return fmt.Errorf("colorscale must have %d entries, got %d", len(choropleth.Bins), len(c.Colorscale))
	}
	if c.Opacity != nil && (*c.Opacity < 0 || *c.Opacity > 1) {
		return fmt.Errorf("opacity must be between 0 and 1, got %f", *c.Opacity)
	}
	if c.CacheSize != nil && *c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", *c.CacheSize)
	}
	if c.CacheTTL != nil && *c.CacheTTL != "" {
		if _, err := time.ParseDuration(*c.CacheTTL); err != nil {
			return fmt.Errorf("invalid cache_ttl '%s': %w", *c.CacheTTL, err)
		}
	}
	if c.RedisDB != nil && *c.RedisDB < 0 {
		return fmt.Errorf("redis_db must be non-negative, got %d", *c.RedisDB)
	}
	return nil
}

// GetListen returns the listen address or the default.
func (c *ServerConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8080"
	}
	return *c.Listen
}

// GetDBPath returns the sqlite path. Empty means load from CSV.
func (c *ServerConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetCountiesCSV returns the county reference CSV path or the default.
func (c *ServerConfig) GetCountiesCSV() string {
	if c.CountiesCSV == nil || *c.CountiesCSV == "" {
		return "data/points.csv"
	}
	return *c.CountiesCSV
}

// GetFactsCSV returns the mortality fact CSV path or the default.
func (c *ServerConfig) GetFactsCSV() string {
	if c.FactsCSV == nil || *c.FactsCSV == "" {
		return "data/cdc-mortality.csv"
	}
	return *c.FactsCSV
}

func (c *ServerConfig) GetGeoJSONBase() string {
	if c.GeoJSONBase == nil || *c.GeoJSONBase == "" {
		return choropleth.DefaultGeoJSONBase
	}
	return *c.GeoJSONBase
}

func (c *ServerConfig) GetMapStyle() string {
	if c.MapStyle == nil || *c.MapStyle == "" {
		return choropleth.DefaultStyle
	}
	return *c.MapStyle
}

// GetAssetsHost returns where rendered chart pages load echarts from. Empty
// keeps the renderer's default.
func (c *ServerConfig) GetAssetsHost() string {
	if c.AssetsHost == nil {
		return ""
	}
	return *c.AssetsHost
}

// GetDefaultYear returns the year shown on first load.
func (c *ServerConfig) GetDefaultYear() int {
	if c.DefaultYear == nil {
		return choropleth.Years[0]
	}
	return *c.DefaultYear
}

// GetDefaultMode returns the display mode used when a request names none.
func (c *ServerConfig) GetDefaultMode() aggregate.Mode {
	if c.DefaultMode == nil {
		return aggregate.DefaultMode
	}
	m, err := aggregate.ParseMode(*c.DefaultMode)
	if err != nil {
		return aggregate.DefaultMode
	}
	return m
}

// GetColorscale returns the bin colours or the default ramp.
func (c *ServerConfig) GetColorscale() []string {
	if !choropleth.ValidColorscale(c.Colorscale) {
		return append([]string(nil), choropleth.DefaultColorscale...)
	}
	return append([]string(nil), c.Colorscale...)
}

func (c *ServerConfig) GetOpacity() float64 {
	if c.Opacity == nil {
		return choropleth.DefaultOpacity
	}
	return *c.Opacity
}

// GetCacheSize returns the in-memory chart cache capacity. Zero disables it.
func (c *ServerConfig) GetCacheSize() int {
	if c.CacheSize == nil {
		return 256
	}
	return *c.CacheSize
}

// GetCacheTTL parses and returns the CacheTTL as a time.Duration.
func (c *ServerConfig) GetCacheTTL() time.Duration {
	if c.CacheTTL == nil || *c.CacheTTL == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(*c.CacheTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

func (c *ServerConfig) GetRedisAddr() string {
	if c.RedisAddr == nil {
		return ""
	}
	return *c.RedisAddr
}

func (c *ServerConfig) GetRedisPassword() string {
	if c.RedisPassword == nil {
		return ""
	}
	return *c.RedisPassword
}

func (c *ServerConfig) GetRedisDB() int {
	if c.RedisDB == nil {
		return 0
	}
	return *c.RedisDB
}

// SetListen and the other setters apply command-line flag overrides.
func (c *ServerConfig) SetListen(v string)      { c.Listen = ptrString(v) }
func (c *ServerConfig) SetDBPath(v string)      { c.DBPath = ptrString(v) }
func (c *ServerConfig) SetCountiesCSV(v string) { c.CountiesCSV = ptrString(v) }
func (c *ServerConfig) SetFactsCSV(v string)    { c.FactsCSV = ptrString(v) }
func (c *ServerConfig) SetRedisAddr(v string)   { c.RedisAddr = ptrString(v) }
func (c *ServerConfig) SetDefaultYear(v int)    { c.DefaultYear = ptrInt(v) }
