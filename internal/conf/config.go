// Package conf loads and holds the runtime configuration for the service.
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// MainSettings holds application wide settings.
type MainSettings struct {
	Name string    `yaml:"name"` // service name used in logs and API metadata
	Log  LogConfig `yaml:"log"`
}

// LogConfig defines file logging for a service component.
type LogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// WebServerSettings holds the HTTP server configuration.
type WebServerSettings struct {
	Enabled        bool     `yaml:"enabled"`
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowedorigins"` // CORS origins, "*" allows any
}

// DetectionSettings selects and configures the detection backend.
// When RemoteURL is set the remote backend is used exclusively, otherwise the
// local model is attempted and the mock backend is the fallback.
type DetectionSettings struct {
	RemoteURL     string        `yaml:"remoteurl"`     // base URL of an external detection service
	RemoteTimeout time.Duration `yaml:"remotetimeout"` // bounded timeout for remote requests
	ModelPath     string        `yaml:"modelpath"`     // path to the TFLite model weights
	DatasetPath   string        `yaml:"datasetpath"`   // path to the YAML label map
	Confidence    float64       `yaml:"confidence"`    // minimum confidence for local detections
	ImageSize     int           `yaml:"imagesize"`     // square input size expected by the model
	Device        string        `yaml:"device"`        // compute device hint (cpu, gpu, auto)
	Threads       int           `yaml:"threads"`       // tflite interpreter threads, 0 = all cores
	MockLatency   time.Duration `yaml:"mocklatency"`   // artificial latency of the mock backend
}

// UploadSettings configures storage of analysed images.
type UploadSettings struct {
	Path string `yaml:"path"` // directory where uploaded images are stored
}

// SessionSettings holds defaults applied to new sessions.
type SessionSettings struct {
	DefaultThreshold float64 `yaml:"defaultthreshold"` // match ratio required for completion
}

// SQLiteSettings contains settings for the SQLite database
type SQLiteSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MySQLSettings contains settings for the MySQL database
type MySQLSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
}

// OutputSettings selects the persistence backend.
type OutputSettings struct {
	SQLite SQLiteSettings `yaml:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql"`
}

// SecuritySettings holds the bootstrap admin account credentials.
type SecuritySettings struct {
	AdminUsername string `yaml:"adminusername"`
	AdminPassword string `yaml:"adminpassword"`
}

// Settings is the root configuration structure.
type Settings struct {
	Debug bool `yaml:"debug"`

	Main      MainSettings      `yaml:"main"`
	WebServer WebServerSettings `yaml:"webserver"`
	Detection DetectionSettings `yaml:"detection"`
	Uploads   UploadSettings    `yaml:"uploads"`
	Session   SessionSettings   `yaml:"session"`
	Output    OutputSettings    `yaml:"output"`
	Security  SecuritySettings  `yaml:"security"`
}

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	if err := os.MkdirAll(settings.Uploads.Path, 0o755); err != nil {
		return nil, fmt.Errorf("error creating upload directory: %w", err)
	}

	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("TOOLCHECK")
	viper.AutomaticEnv()

	// Set default values for each configuration parameter, defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes a config file with default values to the first
// config path and loads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}
	if err := SaveYAMLConfig(configPath, defaults); err != nil {
		return fmt.Errorf("error writing default config: %w", err)
	}

	log.Printf("Created default config file at %s", configPath)
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the ordered list of directories searched for
// config.yaml: working directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "toolcheck"))
	}
	return paths, nil
}

// SaveYAMLConfig writes settings to the given path atomically.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary config file: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error closing temporary config file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

