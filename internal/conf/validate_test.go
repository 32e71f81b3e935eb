package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.WebServer.Enabled = true
	s.WebServer.Port = "8080"
	s.Detection.Confidence = 0.25
	s.Detection.ImageSize = 640
	s.Detection.RemoteTimeout = 8 * time.Second
	s.Uploads.Path = "data/uploads"
	s.Session.DefaultThreshold = 0.9
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "data/toolcheck.db"
	return s
}

func TestValidateSettingsOK(t *testing.T) {
	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsBadPort(t *testing.T) {
	s := validSettings()
	s.WebServer.Port = "notaport"
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid webserver port")
}

func TestValidateSettingsConfidenceRange(t *testing.T) {
	s := validSettings()
	s.Detection.Confidence = 1.5
	require.Error(t, ValidateSettings(s))
}

func TestValidateSettingsThresholdRange(t *testing.T) {
	s := validSettings()
	s.Session.DefaultThreshold = -0.1
	require.Error(t, ValidateSettings(s))
}

func TestValidateSettingsDatabaseSelection(t *testing.T) {
	s := validSettings()
	s.Output.MySQL.Enabled = true
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one database output")

	s.Output.SQLite.Enabled = false
	s.Output.MySQL.Enabled = false
	require.Error(t, ValidateSettings(s))
}

func TestValidateSettingsRemoteTimeout(t *testing.T) {
	s := validSettings()
	s.Detection.RemoteURL = "http://localhost:9000"
	s.Detection.RemoteTimeout = 0
	require.Error(t, ValidateSettings(s))
}
