package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the dashboard service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Logging   LoggingConfig   `yaml:"logging"`
	Cache     CacheConfig     `yaml:"cache"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// ServerConfig controls the gRPC, HTTP and metrics listeners.
type ServerConfig struct {
	GRPCAddress     string        `yaml:"grpcAddress"`
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// BackendConfig configures access to the survival-analysis backend.
type BackendConfig struct {
	BaseURL      string        `yaml:"baseURL"`
	AnalysisPath string        `yaml:"analysisPath"`
	HealthPath   string        `yaml:"healthPath"`
	Timeout      time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Redis-backed caching of backend responses.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	AnalysisTTL  time.Duration `yaml:"analysisTTL"`
}

// DashboardConfig holds the initial query and the presentation defaults.
type DashboardConfig struct {
	Indication     string         `yaml:"indication"`
	AnalysisType   string         `yaml:"analysisType"`
	TimelineMonths int            `yaml:"timelineMonths"`
	ColorScheme    string         `yaml:"colorScheme"`
	ColorMemoSize  int            `yaml:"colorMemoSize"`
	LayoutPath     string         `yaml:"layoutPath"`
	Viewport       ViewportConfig `yaml:"viewport"`
}

// ViewportConfig describes the chart area in pixels.
type ViewportConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	MarginTop    float64 `yaml:"marginTop"`
	MarginRight  float64 `yaml:"marginRight"`
	MarginBottom float64 `yaml:"marginBottom"`
	MarginLeft   float64 `yaml:"marginLeft"`
	HitRadius    float64 `yaml:"hitRadius"`
	FirstBand    float64 `yaml:"firstBand"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("RWE_KM_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			GRPCAddress:     ":50051",
			HTTPAddress:     ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL:      "http://localhost:5000",
			AnalysisPath: "/survival-analysis",
			HealthPath:   "/health",
			Timeout:      10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			AnalysisTTL:  5 * time.Minute,
		},
		Dashboard: DashboardConfig{
			Indication:     "nhl",
			AnalysisType:   "pfs",
			TimelineMonths: 12,
			ColorScheme:    "clinical",
			ColorMemoSize:  1024,
			Viewport: ViewportConfig{
				Width:        800,
				Height:       350,
				MarginTop:    40,
				MarginRight:  80,
				MarginBottom: 60,
				MarginLeft:   80,
				HitRadius:    10,
				FirstBand:    10,
			},
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RWE_KM_GRPC_ADDRESS"); v != "" {
		cfg.Server.GRPCAddress = v
	}
	if v := os.Getenv("RWE_KM_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("RWE_KM_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("RWE_KM_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("RWE_KM_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	if v := os.Getenv("RWE_KM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RWE_KM_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("RWE_KM_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("RWE_KM_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("RWE_KM_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("RWE_KM_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("RWE_KM_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("RWE_KM_CACHE_TLS"); parseBool(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("RWE_KM_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.AnalysisTTL = d
		}
	}
	if v := os.Getenv("RWE_KM_INDICATION"); v != "" {
		cfg.Dashboard.Indication = v
	}
	if v := os.Getenv("RWE_KM_ANALYSIS_TYPE"); v != "" {
		cfg.Dashboard.AnalysisType = v
	}
	if v := os.Getenv("RWE_KM_TIMELINE_MONTHS"); v != "" {
		if months, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.TimelineMonths = months
		}
	}
	if v := os.Getenv("RWE_KM_COLOR_SCHEME"); v != "" {
		cfg.Dashboard.ColorScheme = v
	}
	if v := os.Getenv("RWE_KM_LAYOUT_PATH"); v != "" {
		cfg.Dashboard.LayoutPath = v
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
