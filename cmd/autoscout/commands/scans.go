package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wueestry/autoscout/pkg/config"
	"github.com/wueestry/autoscout/pkg/engine"
	"github.com/wueestry/autoscout/pkg/plugin"
	"github.com/wueestry/autoscout/pkg/scans"
	"github.com/wueestry/autoscout/pkg/storage"
)

func newScansCommand(cfg *config.Manager) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "Inspect and run individual scans",
	}
	cmd.AddCommand(newScansListCommand(cfg))
	cmd.AddCommand(newScansRunCommand(cfg))
	cmd.AddCommand(newScansValidateCommand(cfg))
	return cmd
}

// buildRegistry registers builtins plus, when configured, the discovered
// custom definitions.
func buildRegistry(scansDir string) (*engine.Registry, error) {
	registry := engine.NewRegistry()
	if err := scans.RegisterBuiltins(registry); err != nil {
		return nil, err
	}
	if scansDir != "" {
		if _, err := registry.Discover(scansDir, plugin.LoadScan); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func newScansListCommand(cfg *config.Manager) *cobra.Command {
	var scansDir string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all registered scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("scans-dir") {
				scansDir = cfg.Get().Scan.ScansDir
			}
			registry, err := buildRegistry(scansDir)
			if err != nil {
				return err
			}

			nameColor := color.New(color.FgCyan, color.Bold)
			rootColor := color.New(color.FgMagenta)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d scans registered\n\n", registry.Len())
			for _, info := range registry.List() {
				desc := info.Description
				if desc == "" {
					desc = "No description"
				}
				fmt.Fprintf(out, "%s  %s", nameColor.Sprintf("%-18s", info.Name), desc)
				if info.RequiresRoot {
					fmt.Fprintf(out, " %s", rootColor.Sprint("[root]"))
				}
				fmt.Fprintf(out, " (timeout %s)\n", info.Timeout)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scansDir, "scans-dir", "", "Directory of custom scan definitions to include")
	return cmd
}

func newScansRunCommand(cfg *config.Manager) *cobra.Command {
	var (
		outputDir string
		scansDir  string
	)
	cmd := &cobra.Command{
		Use:   "run [scan] [target]",
		Short: "Run a single scan by name against a target host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, target := args[0], args[1]
			if !cmd.Flags().Changed("scans-dir") {
				scansDir = cfg.Get().Scan.ScansDir
			}
			registry, err := buildRegistry(scansDir)
			if err != nil {
				return err
			}
			factory, err := registry.Get(name)
			if err != nil {
				return err
			}

			sc, err := engine.NewScanContext(target, outputDir)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			result := engine.NewExecutor().Run(ctx, factory(), sc)

			status := color.GreenString("success")
			switch {
			case result.Skipped():
				status = color.YellowString("skipped")
			case !result.Success:
				status = color.RedString("failed: " + result.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%.2fs)\n", name, status, result.Duration().Seconds())

			if _, err := storage.Save(sc, ""); err != nil {
				log.Error().Err(err).Msg("failed to save results")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "./output", "Directory for scan output")
	cmd.Flags().StringVar(&scansDir, "scans-dir", "", "Directory of custom scan definitions to include")
	return cmd
}

func newScansValidateCommand(cfg *config.Manager) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate custom scan definition files",
		Long: `Validates every scan definition in a directory. With --watch the
directory is monitored and files are revalidated as they change, which is
useful while authoring definitions.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.Get().Scan.ScansDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no definitions directory given (argument or scan.scans_dir)")
			}

			if err := validateDir(cmd, dir); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			watcher, err := plugin.NewWatcher(dir, log.Logger)
			if err != nil {
				return err
			}
			defer watcher.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "watching for changes, press Ctrl-C to stop")
			for event := range watcher.Start(ctx) {
				printValidation(cmd, event.Path, event.Err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep watching the directory and revalidate on change")
	return cmd
}

func validateDir(cmd *cobra.Command, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	checked := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		path := filepath.Join(dir, entry.Name())
		_, err := plugin.Load(path)
		printValidation(cmd, path, err)
		checked++
	}
	if checked == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no definition files found")
	}
	return nil
}

func printValidation(cmd *cobra.Command, path string, err error) {
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", color.RedString("FAIL"), path, err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("OK  "), path)
}
