// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "ToolCheck")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/toolcheck.log")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.allowedorigins", []string{"*"})

	viper.SetDefault("detection.remoteurl", "")
	viper.SetDefault("detection.remotetimeout", 8*time.Second)
	viper.SetDefault("detection.modelpath", "model/toolcheck_v1.tflite")
	viper.SetDefault("detection.datasetpath", "model/dataset.yaml")
	viper.SetDefault("detection.confidence", 0.25)
	viper.SetDefault("detection.imagesize", 640)
	viper.SetDefault("detection.device", "cpu")
	viper.SetDefault("detection.threads", 0)
	viper.SetDefault("detection.mocklatency", 50*time.Millisecond)

	viper.SetDefault("uploads.path", "data/uploads")

	viper.SetDefault("session.defaultthreshold", 0.9)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "data/toolcheck.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "toolcheck")
	viper.SetDefault("output.mysql.password", "toolcheck")
	viper.SetDefault("output.mysql.database", "toolcheck")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("security.adminusername", "admin")
	viper.SetDefault("security.adminpassword", "admin123")
}
