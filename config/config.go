package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config represents the complete pipeline configuration
type Config struct {
	Paths       PathsConfig       `json:"paths"`
	Calendar    CalendarConfig    `json:"calendar"`
	Seasonality SeasonalityConfig `json:"seasonality"`
	Training    TrainingConfig    `json:"training"`
	Panel       PanelConfig       `json:"panel"`
	Forecast    ForecastConfig    `json:"forecast"`
	Metrics     MetricsConfig     `json:"metrics"`
}

// PathsConfig locates the tabular inputs and persisted model artifacts
type PathsConfig struct {
	DataDir  string `json:"data_dir"`
	ModelDir string `json:"model_dir"`
}

// CalendarConfig defines the expected training calendar range.
// Any month inside the range missing from the aggregated history is
// synthesized by interpolation, never dropped.
type CalendarConfig struct {
	StartYear  int `json:"start_year"`
	StartMonth int `json:"start_month"`
	EndYear    int `json:"end_year"`
	EndMonth   int `json:"end_month"`
}

// SeasonalityConfig holds the tunable seasonal-event weights and the
// gap fallback used when interpolation has no neighboring values.
type SeasonalityConfig struct {
	PeakWeight      float64 `json:"peak_weight"`       // December
	PrePeakWeight   float64 `json:"pre_peak_weight"`   // November
	MidYearWeight   float64 `json:"mid_year_weight"`   // June, July
	TroughWeight    float64 `json:"trough_weight"`     // January, February
	GapFillQuantity float64 `json:"gap_fill_quantity"` // used when interpolation cannot resolve
}

// TrainingConfig controls the temporal holdout split
type TrainingConfig struct {
	HoldoutMonths   int     `json:"holdout_months"`    // test window when the series is long enough
	MinForHoldout   int     `json:"min_for_holdout"`   // periods required to use the fixed holdout
	ShortSplitRatio float64 `json:"short_split_ratio"` // train fraction for short series
}

// PanelConfig controls per-entity panel training and evaluation
type PanelConfig struct {
	TopK            int `json:"top_k"`             // series evaluated for averaged metrics
	MinActiveMonths int `json:"min_active_months"` // months with quantity > 0
	MinTotalPoints  int `json:"min_total_points"`  // minimum points per series
}

// ForecastConfig controls prediction runs
type ForecastConfig struct {
	Horizon            int     `json:"horizon"`         // months to project forward
	AnnualGrowth       float64 `json:"annual_growth"`   // assumed growth factor for estimated lags
	DefaultTopK        int     `json:"default_top_k"`   // panel entities when no explicit key given
	FallbackSpread     float64 `json:"fallback_spread"` // bound spread for the degraded forecast
	FallbackConfidence float64 `json:"fallback_confidence"`
}

// MetricsConfig controls the optional observability listener
type MetricsConfig struct {
	Listen          string   `json:"listen"` // empty disables the listener
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

// DefaultConfig returns a configuration with the values the historical
// dataset was tuned against
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:  "./datasets",
			ModelDir: "./model",
		},
		Calendar: CalendarConfig{
			StartYear:  2019,
			StartMonth: 1,
			EndYear:    2024,
			EndMonth:   12,
		},
		Seasonality: SeasonalityConfig{
			PeakWeight:      2.0,
			PrePeakWeight:   1.8,
			MidYearWeight:   1.5,
			TroughWeight:    0.5,
			GapFillQuantity: 500,
		},
		Training: TrainingConfig{
			HoldoutMonths:   12,
			MinForHoldout:   36,
			ShortSplitRatio: 0.85,
		},
		Panel: PanelConfig{
			TopK:            50,
			MinActiveMonths: 18,
			MinTotalPoints:  24,
		},
		Forecast: ForecastConfig{
			Horizon:            12,
			AnnualGrowth:       1.08,
			DefaultTopK:        10,
			FallbackSpread:     0.15,
			FallbackConfidence: 0.85,
		},
		Metrics: MetricsConfig{
			Listen:          "",
			ShutdownTimeout: Duration{10 * time.Second},
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return config, nil
}

// LoadFromEnv loads configuration from environment variables.
// IA_DATA_DIR and IA_MODEL_DIR match the deployment variables the
// surrounding backend already sets.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if dataDir := os.Getenv("IA_DATA_DIR"); dataDir != "" {
		config.Paths.DataDir = dataDir
	}
	if modelDir := os.Getenv("IA_MODEL_DIR"); modelDir != "" {
		config.Paths.ModelDir = modelDir
	}
	if listen := os.Getenv("IA_METRICS_LISTEN"); listen != "" {
		config.Metrics.Listen = listen
	}

	return config
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.Paths.ModelDir == "" {
		return fmt.Errorf("model dir cannot be empty")
	}

	if c.Calendar.StartMonth < 1 || c.Calendar.StartMonth > 12 {
		return fmt.Errorf("calendar start month must be 1-12, got %d", c.Calendar.StartMonth)
	}
	if c.Calendar.EndMonth < 1 || c.Calendar.EndMonth > 12 {
		return fmt.Errorf("calendar end month must be 1-12, got %d", c.Calendar.EndMonth)
	}
	if c.Calendar.EndYear < c.Calendar.StartYear ||
		(c.Calendar.EndYear == c.Calendar.StartYear && c.Calendar.EndMonth < c.Calendar.StartMonth) {
		return fmt.Errorf("calendar end must not precede start")
	}

	if c.Training.HoldoutMonths <= 0 {
		return fmt.Errorf("holdout months must be positive")
	}
	if c.Training.ShortSplitRatio <= 0 || c.Training.ShortSplitRatio >= 1 {
		return fmt.Errorf("short split ratio must be in (0,1)")
	}

	if c.Panel.TopK <= 0 {
		return fmt.Errorf("panel top-k must be positive")
	}
	if c.Panel.MinTotalPoints <= 0 {
		return fmt.Errorf("panel min total points must be positive")
	}

	if c.Forecast.Horizon <= 0 {
		return fmt.Errorf("forecast horizon must be positive")
	}
	if c.Forecast.AnnualGrowth <= 0 {
		return fmt.Errorf("annual growth factor must be positive")
	}
	if c.Forecast.DefaultTopK <= 0 {
		return fmt.Errorf("forecast default top-k must be positive")
	}

	return nil
}

// EnsureDataDirectories creates the data and model directories
func (c *Config) EnsureDataDirectories() error {
	for _, path := range []string{c.Paths.DataDir, c.Paths.ModelDir} {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	}
	return nil
}

// Manager handles configuration loading
type Manager struct {
	config   *Config
	filename string
}

// NewManager loads configuration from the given file when it exists,
// falling back to environment variables and defaults otherwise
func NewManager(filename string) (*Manager, error) {
	var config *Config
	var err error

	if filename != "" && fileExists(filename) {
		config, err = LoadFromFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	} else {
		config = LoadFromEnv()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.EnsureDataDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}

	return &Manager{
		config:   config,
		filename: filename,
	}, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// fileExists checks if a file exists
func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}
