package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Backend               string  `json:"backend"` // "vertex", "gemini" or "stub"
	GoogleCloudProject    string  `json:"google_cloud_project"`
	GoogleCloudLocation   string  `json:"google_cloud_location"`
	GoogleCredentialsPath string  `json:"google_credentials_path"`
	GoogleAPIKey          string  `json:"-"` // environment only, never saved
	GmailCredentialsPath  string  `json:"gmail_credentials_path"`
	GmailTokenPath        string  `json:"gmail_token_path"`
	Model                 string  `json:"model"`
	Temperature           float32 `json:"temperature"`
	MaxOutputTokens       int32   `json:"max_output_tokens"`
	TemplateVersion       string  `json:"template_version"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds"`
	UploadsDir            string  `json:"uploads_dir"`
	Port                  string  `json:"port"`
}

// DefaultConfig returns a new config with default values
func DefaultConfig() *Config {
	return &Config{
		Backend:               "vertex",
		GoogleCloudLocation:   "us-central1",
		GmailCredentialsPath:  "credentials.json",
		GmailTokenPath:        "token.json",
		Model:                 "gemini-2.5-flash",
		Temperature:           0.2,
		MaxOutputTokens:       2048,
		TemplateVersion:       "v1",
		RequestTimeoutSeconds: 120,
		Port:                  "8080",
	}
}

// GetConfigPath returns the path to the configuration file
// On Windows: %APPDATA%/ResumePro/config.json
// On Unix: ~/.config/ResumePro/config.json
func GetConfigPath() (string, error) {
	var configDir string

	if os.Getenv("APPDATA") != "" {
		configDir = filepath.Join(os.Getenv("APPDATA"), "ResumePro")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "ResumePro")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load reads .env (if present), the config file at path (or the default path
// when path is empty) and then applies environment overrides.
func Load(path string) (*Config, error) {
	// Best-effort; a missing .env is normal outside development
	_ = godotenv.Load()

	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFrom loads configuration from a specific path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Save saves the configuration to the default config path
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides file values with environment variables
func (c *Config) ApplyEnv() {
	setString(&c.Backend, "RESUMEPRO_BACKEND")
	setString(&c.GoogleCloudProject, "GOOGLE_CLOUD_PROJECT")
	setString(&c.GoogleCloudLocation, "GOOGLE_CLOUD_LOCATION")
	setString(&c.GoogleCredentialsPath, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&c.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&c.Model, "RESUMEPRO_MODEL")
	setString(&c.TemplateVersion, "RESUMEPRO_TEMPLATE_VERSION")
	setString(&c.UploadsDir, "RESUMEPRO_UPLOADS_DIR")
	setString(&c.Port, "PORT")

	if v := os.Getenv("RESUMEPRO_REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RequestTimeoutSeconds = n
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "vertex", "":
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("google_cloud_project is required for the vertex backend")
		}
		if c.GoogleCloudLocation == "" {
			return fmt.Errorf("google_cloud_location is required for the vertex backend")
		}
	case "gemini":
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required for the gemini backend")
		}
	case "stub":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}

	if c.GoogleCredentialsPath != "" {
		if _, err := os.Stat(c.GoogleCredentialsPath); err != nil {
			return fmt.Errorf("google credentials file not found: %w", err)
		}
	}

	return nil
}

// RequestTimeout returns the per-call model timeout
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
