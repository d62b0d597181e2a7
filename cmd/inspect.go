package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <locator> <course-id>",
	Short: "Process a package and dump the full result with diagnostics",
	Long: `Like extract, but dumps the complete result (organizations, items,
resolved launch paths, and the full diagnostics accumulator) as YAML or
JSON for machine consumption or close inspection.`,
	Args: cobra.ExactArgs(2),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "yaml", "output format (yaml or json)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	info, err := processOnce(cmd.Context(), args[0], args[1])
	if err != nil {
		printExtractionError(err)
		return err
	}

	switch inspectFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case "yaml":
		out, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	default:
		return fmt.Errorf("unknown format %q; use yaml or json", inspectFormat)
	}
}
