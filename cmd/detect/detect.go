// Package detect implements the one-shot image detection command.
package detect

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toolkitvision/toolcheck-go/internal/conf"
	"github.com/toolkitvision/toolcheck-go/internal/detection"
)

// Command creates a command that runs detection on a single image and
// prints the result.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "detect [image.jpg]",
		Short: "Detect tools on a single tray image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := detection.Resolve(settings)
			info := backend.Describe()
			fmt.Printf("Backend: %s\n\n", info.Backend)

			detections, err := backend.Detect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(detections) == 0 {
				fmt.Println("No tools detected")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOOL ID\tLABEL\tCONFIDENCE")
			for i := range detections {
				d := &detections[i]
				id := d.ToolID
				if id == "" {
					id = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%.3f\n", id, d.Label, d.Confidence)
			}
			return w.Flush()
		},
	}
}
