package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/config"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/fsutil"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .research/config.yaml in the current directory",
	RunE:  runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
}

func runInit(cmd *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	path, err := writeDefaultConfig(cwd, initForce)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Set ANTHROPIC_API_KEY and TAVILY_API_KEY in the environment or a .env file.")
	return nil
}

// writeDefaultConfig creates <dir>/.research/config.yaml and the state and
// report directories.
func writeDefaultConfig(dir string, force bool) (string, error) {
	var probe map[string]interface{}
	if err := yaml.Unmarshal([]byte(config.DefaultConfigYAML), &probe); err != nil {
		return "", fmt.Errorf("default configuration is not valid YAML: %w", err)
	}

	base := filepath.Join(dir, ".research")
	path := filepath.Join(base, "config.yaml")
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("configuration already exists, use --force to overwrite")
	}

	for _, d := range []string{base, filepath.Join(base, "state"), filepath.Join(base, "reports")} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return "", fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	if err := fsutil.WriteFileAtomic(path, []byte(config.DefaultConfigYAML), 0o644); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}
