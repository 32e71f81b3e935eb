package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toolkitvision/toolcheck-go/cmd/detect"
	"github.com/toolkitvision/toolcheck-go/cmd/serve"
	"github.com/toolkitvision/toolcheck-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "toolcheck",
		Short: "Tool hand-out and hand-over tracking service",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		serve.Command(settings),
		detect.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := cmd.Flags().Parse(args); err != nil {
			return err
		}
		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Detection.RemoteURL, "remote-url", viper.GetString("detection.remoteurl"), "Base URL of a remote detection service")
	rootCmd.PersistentFlags().StringVar(&settings.Detection.ModelPath, "model", viper.GetString("detection.modelpath"), "Path to a local TensorFlow Lite model")
	rootCmd.PersistentFlags().StringVar(&settings.Detection.DatasetPath, "dataset", viper.GetString("detection.datasetpath"), "Path to the dataset label map")
	rootCmd.PersistentFlags().Float64VarP(&settings.Detection.Confidence, "confidence", "c", viper.GetFloat64("detection.confidence"), "Confidence threshold for local model detections")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
