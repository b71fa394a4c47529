package health

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/utils"
)

// Component names one input of the composite score.
type Component string

const (
	RevenueGrowth   Component = "revenue_growth"
	RDInvestment    Component = "rd_investment"
	CashPosition    Component = "cash_position"
	Profitability   Component = "profitability"
	AssetEfficiency Component = "asset_efficiency"
)

// Components lists every component in reporting order.
var Components = []Component{RevenueGrowth, RDInvestment, CashPosition, Profitability, AssetEfficiency}

// Default component weights.
const (
	DefaultRevenueGrowthWeight   = 0.25
	DefaultRDInvestmentWeight    = 0.20
	DefaultCashPositionWeight    = 0.20
	DefaultProfitabilityWeight   = 0.20
	DefaultAssetEfficiencyWeight = 0.15
)

// weightTolerance bounds the accepted deviation of the weight sum from 1.
const weightTolerance = 1e-9

// GradeThreshold assigns Grade to scores at or above Min.
type GradeThreshold struct {
	Grade string  `yaml:"grade" json:"grade"`
	Min   float64 `yaml:"min" json:"min"`
}

// DefaultGrades are A >= 90, B >= 80, C >= 70, D >= 60.
var DefaultGrades = []GradeThreshold{
	{Grade: "A", Min: 90},
	{Grade: "B", Min: 80},
	{Grade: "C", Min: 70},
	{Grade: "D", Min: 60},
}

// FallbackGrade is assigned below the lowest threshold.
const FallbackGrade = "F"

// DefaultCurves returns the default scoring curve of each component.
// Inputs are percentages.
func DefaultCurves() map[Component]Curve {
	return map[Component]Curve{
		RevenueGrowth:   {{-20, 0}, {0, 40}, {10, 70}, {20, 90}, {40, 100}},
		RDInvestment:    {{0, 10}, {10, 50}, {20, 75}, {40, 90}, {80, 100}},
		CashPosition:    {{0, 0}, {10, 40}, {25, 70}, {50, 90}, {75, 100}},
		Profitability:   {{-50, 0}, {-10, 30}, {0, 60}, {10, 85}, {25, 100}},
		AssetEfficiency: {{0, 10}, {10, 35}, {30, 70}, {50, 90}, {100, 100}},
	}
}

// DefaultWeights returns the default component weights.
func DefaultWeights() map[Component]float64 {
	return map[Component]float64{
		RevenueGrowth:   DefaultRevenueGrowthWeight,
		RDInvestment:    DefaultRDInvestmentWeight,
		CashPosition:    DefaultCashPositionWeight,
		Profitability:   DefaultProfitabilityWeight,
		AssetEfficiency: DefaultAssetEfficiencyWeight,
	}
}

// Config is a validated scoring configuration. The zero value is not
// usable; build one with NewConfig, DefaultConfig or LoadConfig.
type Config struct {
	weights map[Component]float64
	curves  map[Component]Curve
	grades  []GradeThreshold
}

// NewConfig copies and validates the given weights, curves and grade
// thresholds. Every component needs a weight and a curve.
func NewConfig(weights map[Component]float64, curves map[Component]Curve, grades []GradeThreshold) (Config, error) {
	cfg := Config{
		weights: make(map[Component]float64, len(weights)),
		curves:  make(map[Component]Curve, len(curves)),
		grades:  append([]GradeThreshold(nil), grades...),
	}
	for c, w := range weights {
		cfg.weights[c] = w
	}
	for c, cv := range curves {
		cfg.curves[c] = cv.clone()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	cfg, err := NewConfig(DefaultWeights(), DefaultCurves(), DefaultGrades)
	if err != nil {
		panic(fmt.Sprintf("health: invalid default config: %v", err))
	}
	return cfg
}

// Validate checks weights, curves and grade thresholds. Errors wrap
// filing.ErrInvalidConfiguration.
func (c Config) Validate() error {
	var sum float64
	for _, comp := range Components {
		w, ok := c.weights[comp]
		if !ok {
			return invalid("missing weight for %s", comp)
		}
		if w <= 0 || math.IsNaN(w) {
			return invalid("weight for %s must be positive, got %v", comp, w)
		}
		sum += w

		cv, ok := c.curves[comp]
		if !ok {
			return invalid("missing curve for %s", comp)
		}
		if err := cv.validate(); err != nil {
			return invalid("curve for %s: %v", comp, err)
		}
	}
	for name := range c.weights {
		if !knownComponent(name) {
			return invalid("unknown component %q", name)
		}
	}
	if math.Abs(sum-1) > weightTolerance {
		return invalid("weights sum to %v, want 1", sum)
	}

	if len(c.grades) == 0 {
		return invalid("no grade thresholds")
	}
	for i, g := range c.grades {
		if g.Grade == "" {
			return invalid("grade %d has no name", i)
		}
		if g.Min < 0 || g.Min > 100 {
			return invalid("grade %s threshold %v outside [0,100]", g.Grade, g.Min)
		}
		if i > 0 && g.Min >= c.grades[i-1].Min {
			return invalid("grade thresholds must descend: %s (%v) after %s (%v)",
				g.Grade, g.Min, c.grades[i-1].Grade, c.grades[i-1].Min)
		}
	}
	return nil
}

// Weight returns the configured weight of a component.
func (c Config) Weight(comp Component) float64 { return c.weights[comp] }

// Curve returns a copy of the scoring curve of a component.
func (c Config) Curve(comp Component) Curve { return c.curves[comp].clone() }

// Grades returns a copy of the grade thresholds, highest first.
func (c Config) Grades() []GradeThreshold {
	return append([]GradeThreshold(nil), c.grades...)
}

// Grade maps an overall score to a letter grade.
func (c Config) Grade(score float64) string {
	for _, g := range c.grades {
		if score >= g.Min {
			return g.Grade
		}
	}
	return FallbackGrade
}

// ============================================================================
// File loading
// ============================================================================

// configFile is the on-disk shape of a scoring config. Omitted sections
// fall back to the defaults.
type configFile struct {
	Weights map[Component]float64 `yaml:"weights" json:"weights"`
	Curves  map[Component]Curve   `yaml:"curves" json:"curves"`
	Grades  []GradeThreshold      `yaml:"grades" json:"grades"`
}

// LoadConfig reads a scoring config from a YAML (.yaml, .yml) or HJSON/JSON
// file. Sections missing from the file keep their defaults; a file that
// only overrides some weights must still sum to 1.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scoring config: %w", err)
	}
	return ParseConfig(data, filepath.Ext(path))
}

// ParseConfig decodes a scoring config; ext selects the format.
func ParseConfig(data []byte, ext string) (Config, error) {
	var f configFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return Config{}, invalid("decode yaml: %v", err)
		}
	case ".hjson", ".json":
		if _, err := utils.DecodeLenient(data, &f); err != nil {
			return Config{}, invalid("decode config: %v", err)
		}
	default:
		return Config{}, invalid("unsupported config format %q", ext)
	}

	weights := DefaultWeights()
	for c, w := range f.Weights {
		weights[c] = w
	}
	curves := DefaultCurves()
	for c, cv := range f.Curves {
		curves[c] = cv
	}
	grades := DefaultGrades
	if len(f.Grades) > 0 {
		grades = f.Grades
	}
	return NewConfig(weights, curves, grades)
}

func knownComponent(c Component) bool {
	for _, k := range Components {
		if k == c {
			return true
		}
	}
	return false
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", filing.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
