package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dramarereg/aztec-sequencer/cmd/sequencer/config"
	"github.com/dramarereg/aztec-sequencer/pkg/log"
)

// Version, BuildTime and GitCommit are stamped via -ldflags at release
// build time; the defaults below are what a `go run` dev build sees.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const banner = `
 █████╗ ███████╗████████╗███████╗ ██████╗
██╔══██╗╚══███╔╝╚══██╔══╝██╔════╝██╔════╝
███████║  ███╔╝    ██║   █████╗  ██║
██╔══██║ ███╔╝     ██║   ██╔══╝  ██║
██║  ██║███████╗   ██║   ███████╗╚██████╗
╚═╝  ╚═╝╚══════╝   ╚═╝   ╚══════╝ ╚═════╝
███████╗███████╗ ██████╗ ██╗   ██╗███████╗███╗   ██╗ ██████╗███████╗██████╗
██╔════╝██╔════╝██╔═══██╗██║   ██║██╔════╝████╗  ██║██╔════╝██╔════╝██╔══██╗
███████╗█████╗  ██║   ██║██║   ██║█████╗  ██╔██╗ ██║██║     █████╗  ██████╔╝
╚════██║██╔══╝  ██║▄▄ ██║██║   ██║██╔══╝  ██║╚██╗██║██║     ██╔══╝  ██╔══██╗
███████║███████╗╚██████╔╝╚██████╔╝███████╗██║ ╚████║╚██████╗███████╗██║  ██║
╚══════╝╚══════╝ ╚══▀▀═╝  ╚═════╝ ╚══════╝╚═╝  ╚═══╝ ╚═════╝╚══════╝╚═╝  ╚═╝`

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "sequencer",
		Short: "Rollup block-proposer sequencer",
		Long:  banner + "\n\nDrives the rollup's slot-by-slot block-proposal loop.",
		RunE:  runApp,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   runVersion,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}

	configDumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Load the configuration and print it as YAML",
		RunE:  runConfigDump,
	}
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	initCommands()
	return rootCmd.Execute()
}

func initCommands() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(versionCmd)
	configCmd.AddCommand(configDumpCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "enable pretty console logging")
	rootCmd.PersistentFlags().String("listen-addr", "", "HTTP status/metrics server listen address")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "configs/config.yaml"
	}
}

func runApp(cmd *cobra.Command, _ []string) error {
	fmt.Println(banner)
	fmt.Println()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	lg := log.New(cfg.Log.Level, cfg.Log.Pretty)

	lg.Logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("go_version", runtime.Version()).
		Msg("build information")

	lg.Logger.Info().
		Str("config_file", cfgFile).
		Str("listen_addr", cfg.API.ListenAddr).
		Dur("slot_duration", cfg.Rollup.Constants().SlotDuration).
		Msg("configuration loaded")

	// Concrete collaborator adapters (Publisher, TxPool, WorldState, ...)
	// are resolved by the embedding deployment, not by this binary; see
	// x/sequencer.Dependencies and spec.md's external-systems boundary.
	deps, err := buildDependencies(cmd.Context(), cfg, lg.Logger)
	if err != nil {
		return fmt.Errorf("failed to build sequencer dependencies: %w", err)
	}

	app, err := NewApp(cfg, deps, lg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return app.Run(cmd.Context())
}

func runVersion(*cobra.Command, []string) {
	fmt.Println(banner)
	fmt.Println()
	fmt.Printf("Sequencer\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func runConfigDump(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flag("log-level").Changed {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flag("log-pretty").Changed {
		cfg.Log.Pretty, _ = cmd.Flags().GetBool("log-pretty")
	}
	if cmd.Flag("listen-addr").Changed {
		cfg.API.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
	}
}
