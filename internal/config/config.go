package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a consolidation run. Values come from the
// environment with sane defaults; an optional YAML file can override the
// folder names and the problem-contract list.
type Config struct {
	SFTPHost     string
	SFTPPort     int
	SFTPUser     string
	SFTPPassword string

	ConnectTimeout    time.Duration
	OpTimeout         time.Duration
	FileTimeout       time.Duration
	SlowFileTimeout   time.Duration
	KeepaliveInterval time.Duration

	MaxConnRetries int
	MaxOpRetries   int
	BackoffBase    float64

	RootFolder     string
	ContractsLabel string

	WorkDir   string
	OutputDir string
	StorePath string

	MaxSites        int
	MaxScanRows     int
	MaxRowsPerSheet int
	BatchSize       int
	AlertBatchSize  int
	ReconnectEvery  int

	// ProblemContracts get the shorter per-file timeout.
	ProblemContracts map[string]bool

	Debug bool
}

// New builds a Config from the environment.
func New() (*Config, error) {
	cfg := &Config{
		SFTPHost:          os.Getenv("SFTP_HOST"),
		SFTPUser:          os.Getenv("SFTP_USER"),
		SFTPPassword:      os.Getenv("SFTP_PASSWORD"),
		SFTPPort:          2243,
		ConnectTimeout:    30 * time.Second,
		OpTimeout:         20 * time.Second,
		FileTimeout:       60 * time.Second,
		SlowFileTimeout:   30 * time.Second,
		KeepaliveInterval: 5 * time.Second,
		MaxConnRetries:    5,
		MaxOpRetries:      3,
		BackoffBase:       2.0,
		RootFolder:        "R.A-ABASTECIMIENTO RED ASISTENCIAL",
		ContractsLabel:    "contratos",
		WorkDir:           os.TempDir(),
		OutputDir:         ".",
		StorePath:         "consolidacion.db",
		MaxSites:          50,
		MaxScanRows:       20000,
		MaxRowsPerSheet:   500000,
		BatchSize:         500,
		AlertBatchSize:    2000,
		ReconnectEvery:    10,
		ProblemContracts:  map[string]bool{"572-2023": true},
	}

	var err error
	cfg.SFTPPort, err = getEnvAsInt("SFTP_PORT", cfg.SFTPPort)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnRetries, err = getEnvAsInt("MAX_CONN_RETRIES", cfg.MaxConnRetries)
	if err != nil {
		return nil, err
	}
	cfg.MaxOpRetries, err = getEnvAsInt("MAX_OP_RETRIES", cfg.MaxOpRetries)
	if err != nil {
		return nil, err
	}
	cfg.MaxSites, err = getEnvAsInt("MAX_SITES", cfg.MaxSites)
	if err != nil {
		return nil, err
	}
	cfg.BatchSize, err = getEnvAsInt("BATCH_SIZE", cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	cfg.AlertBatchSize, err = getEnvAsInt("ALERT_BATCH_SIZE", cfg.AlertBatchSize)
	if err != nil {
		return nil, err
	}
	cfg.ReconnectEvery, err = getEnvAsInt("RECONNECT_EVERY", cfg.ReconnectEvery)
	if err != nil {
		return nil, err
	}
	cfg.MaxScanRows, err = getEnvAsInt("MAX_SCAN_ROWS", cfg.MaxScanRows)
	if err != nil {
		return nil, err
	}

	cfg.ConnectTimeout, err = getEnvAsSeconds("CONNECT_TIMEOUT_SECONDS", cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	cfg.OpTimeout, err = getEnvAsSeconds("OP_TIMEOUT_SECONDS", cfg.OpTimeout)
	if err != nil {
		return nil, err
	}
	cfg.FileTimeout, err = getEnvAsSeconds("FILE_TIMEOUT_SECONDS", cfg.FileTimeout)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ROOT_FOLDER"); v != "" {
		cfg.RootFolder = v
	}
	if v := os.Getenv("WORK_DIR"); v != "" {
		cfg.WorkDir = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	cfg.Debug = os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true"

	return cfg, nil
}

// Validate checks that the remote credentials are present.
func (c *Config) Validate() error {
	if c.SFTPHost == "" {
		return fmt.Errorf("SFTP_HOST environment variable is not set")
	}
	if c.SFTPUser == "" || c.SFTPPassword == "" {
		return fmt.Errorf("SFTP_USER and SFTP_PASSWORD environment variables are not set")
	}
	return nil
}

// FileTimeoutFor returns the per-file extraction budget for a contract.
func (c *Config) FileTimeoutFor(contractID string) time.Duration {
	if c.ProblemContracts[contractID] {
		return c.SlowFileTimeout
	}
	return c.FileTimeout
}

type fileOverrides struct {
	RootFolder       string   `yaml:"root_folder"`
	ContractsLabel   string   `yaml:"contracts_label"`
	OutputDir        string   `yaml:"output_dir"`
	StorePath        string   `yaml:"store_path"`
	MaxSites         int      `yaml:"max_sites"`
	BatchSize        int      `yaml:"batch_size"`
	ProblemContracts []string `yaml:"problem_contracts"`
}

// LoadFile applies YAML overrides on top of the environment values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var ov fileOverrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if ov.RootFolder != "" {
		c.RootFolder = ov.RootFolder
	}
	if ov.ContractsLabel != "" {
		c.ContractsLabel = ov.ContractsLabel
	}
	if ov.OutputDir != "" {
		c.OutputDir = ov.OutputDir
	}
	if ov.StorePath != "" {
		c.StorePath = ov.StorePath
	}
	if ov.MaxSites > 0 {
		c.MaxSites = ov.MaxSites
	}
	if ov.BatchSize > 0 {
		c.BatchSize = ov.BatchSize
	}
	for _, id := range ov.ProblemContracts {
		c.ProblemContracts[id] = true
	}
	return nil
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}

func getEnvAsSeconds(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected seconds as an integer, got '%s'", key, valueStr)
	}

	return time.Duration(value) * time.Second, nil
}
