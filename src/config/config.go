package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config defines the application configuration loaded from config.json
type Config struct {
	DataDir   string `json:"data_dir"`   // directory holding the raw datasets
	MeteoFile string `json:"meteo_file"` // meteorological dataset file name
	ContFile  string `json:"cont_file"`  // contaminant dataset file name
	Encoding  string `json:"encoding"`   // utf-8, latin1 or windows-1252
	OutputDir string `json:"output_dir"` // processed data location

	Addr           string   `json:"addr"`            // dashboard listen address
	ReloadInterval Duration `json:"reload_interval"` // periodic dataset reload
	DefaultDays    int      `json:"default_days"`    // metric window when the request omits it
	DefaultFreq    string   `json:"default_freq"`    // resampling frequency when the request omits it

	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"`

	DatabaseURL string `json:"database_url"` // optional observation sink

	Email struct {
		Server        string   `json:"server"`         // IMAP server address
		Username      string   `json:"username"`       // mailbox user
		Password      string   `json:"password"`       // mailbox password
		TargetSubject string   `json:"target_subject"` // subject keyword of dataset mails
		CheckInterval Duration `json:"check_interval"` // mailbox polling interval
	} `json:"email"`

	SendEmail struct {
		Server   string   `json:"server"`   // SMTP server address
		Username string   `json:"username"` // sender
		Password string   `json:"password"`
		To       []string `json:"to"` // report recipients
		Subject  string   `json:"subject"`
	} `json:"send_email"`
}

var (
	once         sync.Once
	instance     *Config
	dataInstance *DataConfig
	loadErr      error
)

// LoadConfig loads config.json and dataconfig.json from jsonFolder once per
// process. A missing dataconfig.json falls back to DefaultDataConfig.
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	once.Do(func() {
		instance, dataInstance, loadErr = Load(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataInstance, loadErr
}

// Load reads both files without caching.
func Load(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configData, err := readFile(filepath.Join(jsonFolder, jsonFile))
	if err != nil {
		return nil, nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := ParseConfig(configData)
	if err != nil {
		return nil, nil, err
	}

	dcfg := DefaultDataConfig()
	dataConfigData, err := readFile(filepath.Join(jsonFolder, dataJsonFile))
	switch {
	case err == nil:
		if dcfg, err = ParseDataConfig(dataConfigData); err != nil {
			return nil, nil, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, nil, fmt.Errorf("read data config file: %w", err)
	}

	// .env is optional
	_ = godotenv.Load(filepath.Join(jsonFolder, ".env"))
	_ = godotenv.Load()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", filePath, err)
	}
	return data, nil
}

// ParseConfig decodes config.json content and fills in defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used for fields absent from config.json.
func Default() *Config {
	return &Config{
		DataDir:        "data",
		MeteoFile:      "SD_TecMTY_meteorologia_2021_2022.csv",
		ContFile:       "SD_TecMTY_contaminantes_2021_2022.csv",
		Encoding:       "utf-8",
		OutputDir:      "data/clean",
		Addr:           ":8080",
		ReloadInterval: Duration(time.Hour),
		DefaultDays:    7,
		DefaultFreq:    "D",
		LogName:        "app.log",
		LogMaxSize:     "10 * 1024 * 1024",
	}
}

// ApplyEnv overrides settings from the environment (and .env).
func (c *Config) ApplyEnv() {
	if v := os.Getenv("AQ_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("AQ_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("AQ_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("AQ_EMAIL_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv("AQ_SMTP_PASSWORD"); v != "" {
		c.SendEmail.Password = v
	}
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.MeteoFile == "" || c.ContFile == "" {
		errs = append(errs, errors.New("meteo_file and cont_file are required"))
	}
	switch strings.ToLower(c.Encoding) {
	case "", "utf-8", "utf8", "latin1", "iso-8859-1", "windows-1252", "cp1252":
	default:
		errs = append(errs, fmt.Errorf("unsupported encoding %q", c.Encoding))
	}
	if c.DefaultDays <= 0 {
		errs = append(errs, fmt.Errorf("default_days must be positive, got %d", c.DefaultDays))
	}
	if c.ReloadInterval < 0 {
		errs = append(errs, errors.New("reload_interval must not be negative"))
	}
	return combineErrors(errs)
}

// MeteoPath returns the full path of the meteorological dataset.
func (c *Config) MeteoPath() string { return filepath.Join(c.DataDir, c.MeteoFile) }

// ContPath returns the full path of the contaminant dataset.
func (c *Config) ContPath() string { return filepath.Join(c.DataDir, c.ContFile) }

// EmailEnabled reports whether mailbox ingestion is configured.
func (c *Config) EmailEnabled() bool {
	return c.Email.Server != "" && c.Email.Username != ""
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "config has errors:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// Duration wraps time.Duration for JSON (un)marshalling as "5m0s" strings.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
