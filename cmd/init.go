package cmd

import (
	"fmt"
	"path/filepath"

	cfgpkg "github.com/KaramelBytes/bizratio-cli/internal/config"
	"github.com/KaramelBytes/bizratio-cli/internal/utils"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create the data and results directories and a default config",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", dir, err)
		}
		path := cfgFile
		if path == "" {
			if path, err = cfgpkg.DefaultPath(); err != nil {
				return err
			}
		}
		// Refuse to overwrite an existing config.
		if utils.Exists(path) && !initForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}

		c := cfgpkg.Default()
		before := *c
		c.Paths.DataDir = filepath.Join(abs, "data")
		c.Paths.ResultsDir = filepath.Join(abs, "resultados")
		c.Reresolve(before)
		for _, d := range []string{c.Paths.DataDir, c.Paths.ResultsDir} {
			if err := utils.EnsureDir(d); err != nil {
				return err
			}
		}
		if err := cfgpkg.Save(c, path); err != nil {
			return err
		}
		cfg = c
		fmt.Printf("✓ Workspace initialized: %s\n", abs)
		fmt.Printf("✓ Config written: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
}
