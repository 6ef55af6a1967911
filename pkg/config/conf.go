package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/raschctl/pkg/rasch"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600

	FormatJSON = "json"
	FormatYAML = "yaml"

	ReliabilityReference = "reference"
	ReliabilityPersons   = "persons"

	serverPortDefault = 8080
)

// Config represents app config object.
type Config struct {
	Engine EngineConfig `yaml:"engine" json:"engine"`
	Output OutputConfig `yaml:"output" json:"output"`
	Store  StoreConfig  `yaml:"store" json:"store"`
	Server ServerConfig `yaml:"server" json:"server"`
}

// EngineConfig holds the estimation settings.
type EngineConfig struct {
	Nodes           int              `yaml:"nodes" json:"nodes"`
	Range           float64          `yaml:"range" json:"range"`
	Quadrature      rasch.Quadrature `yaml:"quadrature" json:"quadrature"`
	MaxEMIterations int              `yaml:"maxEMIterations" json:"maxEMIterations"`
	EMTolerance     float64          `yaml:"emTolerance" json:"emTolerance"`
	MaxNRIterations int              `yaml:"maxNRIterations" json:"maxNRIterations"`
	NRTolerance     float64          `yaml:"nrTolerance" json:"nrTolerance"`
	ExtremeAbility  float64          `yaml:"extremeAbility" json:"extremeAbility"`
	Workers         int              `yaml:"workers" json:"workers"`
	Reliability     string           `yaml:"reliability" json:"reliability"`
}

type OutputConfig struct {
	Format string `yaml:"format" json:"format"`
}

// StoreConfig selects the run store. An empty DSN means the SQLite file in
// the app home dir.
type StoreConfig struct {
	DSN string `yaml:"dsn" json:"dsn"`
}

type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Nodes:           rasch.DefaultNodes,
			Range:           rasch.DefaultRange,
			Quadrature:      rasch.EqualSpaced,
			MaxEMIterations: rasch.DefaultMaxEMIterations,
			EMTolerance:     rasch.DefaultEMTolerance,
			MaxNRIterations: rasch.DefaultMaxNRIterations,
			NRTolerance:     rasch.DefaultNRTolerance,
			ExtremeAbility:  rasch.DefaultExtremeAbility,
			Reliability:     ReliabilityReference,
		},
		Output: OutputConfig{Format: FormatJSON},
		Server: ServerConfig{Port: serverPortDefault},
	}
}

// Validate checks the values a user may have edited.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config required")
	}
	e := c.Engine
	var errs []error
	if e.Nodes < 2 {
		errs = append(errs, fmt.Errorf("engine.nodes must be at least 2, got %d", e.Nodes))
	}
	if e.Range <= 0 {
		errs = append(errs, fmt.Errorf("engine.range must be positive, got %g", e.Range))
	}
	if e.Quadrature != rasch.EqualSpaced && e.Quadrature != rasch.Hermite {
		errs = append(errs, fmt.Errorf("engine.quadrature must be %q or %q, got %q", rasch.EqualSpaced, rasch.Hermite, e.Quadrature))
	}
	if e.MaxEMIterations < 1 || e.MaxNRIterations < 1 {
		errs = append(errs, errors.New("engine iteration caps must be at least 1"))
	}
	if e.EMTolerance <= 0 || e.NRTolerance <= 0 {
		errs = append(errs, errors.New("engine tolerances must be positive"))
	}
	if e.ExtremeAbility <= 0 {
		errs = append(errs, fmt.Errorf("engine.extremeAbility must be positive, got %g", e.ExtremeAbility))
	}
	if e.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers must not be negative, got %d", e.Workers))
	}
	if e.Reliability != ReliabilityReference && e.Reliability != ReliabilityPersons {
		errs = append(errs, fmt.Errorf("engine.reliability must be %q or %q, got %q", ReliabilityReference, ReliabilityPersons, e.Reliability))
	}
	if f := c.Output.Format; f != FormatJSON && f != FormatYAML {
		errs = append(errs, fmt.Errorf("output.format must be %q or %q, got %q", FormatJSON, FormatYAML, f))
	}
	if p := c.Server.Port; p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", p))
	}
	return errors.Join(errs...)
}

// EngineOptions converts the engine section to estimator options.
func (c *Config) EngineOptions() []rasch.Option {
	e := c.Engine
	return []rasch.Option{
		rasch.WithNodes(e.Nodes),
		rasch.WithRange(e.Range),
		rasch.WithQuadrature(e.Quadrature),
		rasch.WithEMLimits(e.MaxEMIterations, e.EMTolerance),
		rasch.WithNewtonLimits(e.MaxNRIterations, e.NRTolerance),
		rasch.WithExtremeAbility(e.ExtremeAbility),
		rasch.WithWorkers(e.Workers),
		rasch.WithPersonReference(e.Reliability == ReliabilityPersons),
	}
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Read loads a config file. Keys missing from the file keep their defaults.
func Read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return c, nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, fmt.Errorf("failed to create dir %s: %w", dirPath, err)
		}
	}

	path := filepath.Join(dirPath, configFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(dirPath, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return Read(path)
}

// FilePath returns the config file location inside dirPath.
func FilePath(dirPath string) string {
	return filepath.Join(dirPath, configFileName)
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
