package conf

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError holds the accumulated validation failures for a settings load.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks the loaded settings for configuration mistakes that
// would otherwise surface as confusing runtime failures.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateDetectionSettings(&settings.Detection); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateSessionSettings(&settings.Session); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Uploads.Path == "" {
		ve.Errors = append(ve.Errors, "uploads path must not be empty")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid webserver port: %s", settings.Port)
	}
	return nil
}

func validateDetectionSettings(settings *DetectionSettings) error {
	if settings.Confidence < 0 || settings.Confidence > 1 {
		return fmt.Errorf("detection confidence must be between 0 and 1: %f", settings.Confidence)
	}
	if settings.ImageSize <= 0 {
		return fmt.Errorf("detection image size must be positive: %d", settings.ImageSize)
	}
	if settings.RemoteURL != "" && settings.RemoteTimeout <= 0 {
		return fmt.Errorf("detection remote timeout must be positive: %s", settings.RemoteTimeout)
	}
	return nil
}

func validateSessionSettings(settings *SessionSettings) error {
	if settings.DefaultThreshold < 0 || settings.DefaultThreshold > 1 {
		return fmt.Errorf("session default threshold must be between 0 and 1: %f", settings.DefaultThreshold)
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	if settings.SQLite.Enabled && settings.MySQL.Enabled {
		return fmt.Errorf("only one database output can be enabled at a time")
	}
	if !settings.SQLite.Enabled && !settings.MySQL.Enabled {
		return fmt.Errorf("no database output enabled")
	}
	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		return fmt.Errorf("sqlite path must not be empty")
	}
	return nil
}
