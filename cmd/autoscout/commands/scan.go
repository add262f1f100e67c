package commands

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wueestry/autoscout/pkg/config"
	"github.com/wueestry/autoscout/pkg/engine"
	"github.com/wueestry/autoscout/pkg/plugin"
	"github.com/wueestry/autoscout/pkg/report"
	"github.com/wueestry/autoscout/pkg/scans"
	"github.com/wueestry/autoscout/pkg/storage"
	"github.com/wueestry/autoscout/pkg/vulndb"
	"github.com/wueestry/autoscout/pkg/workflows"
)

func newScanCommand(cfg *config.Manager) *cobra.Command {
	var (
		outputDir    string
		scansDir     string
		workflowName string
		forceVuln    bool
		cveLookup    bool
	)

	cmd := &cobra.Command{
		Use:   "scan [target]",
		Short: "Run a scan workflow against a target host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			c := cfg.Get()
			if !cmd.Flags().Changed("output") {
				outputDir = c.Scan.OutputDir
			}
			if !cmd.Flags().Changed("scans-dir") {
				scansDir = c.Scan.ScansDir
			}
			if !cmd.Flags().Changed("workflow") {
				workflowName = c.Scan.Workflow
			}
			if !cmd.Flags().Changed("force-vuln") {
				forceVuln = c.Scan.ForceVuln
			}
			if !cmd.Flags().Changed("cve-lookup") {
				cveLookup = c.Scan.CVELookup
			}

			registry := engine.NewRegistry()
			if err := scans.RegisterBuiltins(registry); err != nil {
				return err
			}

			builtinNames := registry.Names()
			if scansDir != "" {
				count, err := registry.Discover(scansDir, plugin.LoadScan)
				if err != nil {
					return err
				}
				log.Info().Int("count", count).Str("dir", scansDir).Msg("discovered custom scans")
			}

			sc, err := engine.NewScanContext(target, outputDir)
			if err != nil {
				return err
			}
			if forceVuln {
				sc.SetMetadata(scans.ForceVulnScanKey, true)
			}

			var workflow *engine.Workflow
			switch workflowName {
			case "pentest":
				workflow = workflows.Pentest(sc)
			case "quick":
				workflow = workflows.Quick(sc)
			default:
				return fmt.Errorf("unknown workflow: %s", workflowName)
			}

			// Discovered scans join the run as a trailing concurrent
			// stage; their own CanRun conditions decide whether they
			// actually execute.
			if custom := customScans(registry, builtinNames); len(custom) > 0 {
				workflow.AddStage("custom", custom...)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			results, runErr := workflow.Run(ctx)

			fmt.Fprintln(cmd.OutOrStdout(), report.Summary(sc, results))
			if cveLookup && runErr == nil {
				client := vulndb.NewClient(vulndb.WithAPIKey(c.Scan.NVDAPIKey))
				if findings := client.Correlate(ctx, sc); len(findings) > 0 {
					sc.SetMetadata("advisories", vulndb.AsMetadata(findings))
					fmt.Fprintln(cmd.OutOrStdout(), report.Advisories(findings))
				}
			}
			if _, err := storage.Save(sc, ""); err != nil {
				log.Error().Err(err).Msg("failed to save results")
			}
			if _, err := storage.SaveSummary(sc, ""); err != nil {
				log.Error().Err(err).Msg("failed to save summary")
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "./output", "Directory for scan output and reports")
	cmd.Flags().StringVar(&scansDir, "scans-dir", "", "Directory of custom scan definitions to discover")
	cmd.Flags().StringVar(&workflowName, "workflow", "pentest", "Workflow to run (pentest, quick)")
	cmd.Flags().BoolVar(&forceVuln, "force-vuln", false, "Run the vulnerability scan even with few open ports")
	cmd.Flags().BoolVar(&cveLookup, "cve-lookup", false, "Correlate discovered CPEs with NVD advisories after the run")
	return cmd
}

// customScans instantiates every registered scan that is not a builtin.
func customScans(registry *engine.Registry, builtinNames []string) []engine.Scan {
	builtin := make(map[string]struct{}, len(builtinNames))
	for _, name := range builtinNames {
		builtin[name] = struct{}{}
	}
	var custom []engine.Scan
	for _, name := range registry.Names() {
		if _, ok := builtin[name]; ok {
			continue
		}
		factory, err := registry.Get(name)
		if err != nil {
			continue
		}
		custom = append(custom, factory())
	}
	return custom
}
