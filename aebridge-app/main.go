package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/compose-network/aebridge/aebridge-app/config"
	"github.com/compose-network/aebridge/log"
	"github.com/compose-network/aebridge/server/api/bridge"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "aebridge",
		Short: "Apple Event bridge",
		Long: banner + "\n\nEncodes values as Apple Event descriptors, builds object specifiers " +
			"and dispatches commands to a scriptable application.",
		RunE:          runApp,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge API and event responder",
		RunE:  runApp,
	}

	encodeCmd = &cobra.Command{
		Use:   "encode <json>",
		Short: "Pack a JSON value into descriptor bytes",
		Args:  cobra.ExactArgs(1),
		RunE:  runEncode,
	}

	decodeCmd = &cobra.Command{
		Use:   "decode <hex>",
		Short: "Unpack descriptor bytes into JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecode,
	}

	callCmd = &cobra.Command{
		Use:   "call <method> [json]",
		Short: "Call a Bridge JSON-RPC method on a running server",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCall,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   runVersion,
	}
)

const banner = `
   _   ___ ___ ___ ___ ___   ___ ___
  /_\ | __| _ ) _ \_ _|   \ / __| __|
 / _ \| _|| _ \   /| || |) | (_ | _|
/_/ \_\___|___/_|_\___|___/ \___|___|`

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
	rootCmd.AddCommand(serveCmd, encodeCmd, decodeCmd, callCmd, versionCmd)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "enable pretty logging")

	// Server flags
	rootCmd.PersistentFlags().String("listen-addr", "", "event responder listen address")
	rootCmd.PersistentFlags().String("api-addr", "", "HTTP API listen address")
	rootCmd.PersistentFlags().String("target", "", "target application (name:<app>, bundle:<id>, pid:<n>, ...)")
	rootCmd.PersistentFlags().String("relaunch", "", "relaunch mode (always, limited, never)")

	encodeCmd.Flags().Bool("nested", false, "pack without the top-level header")
	callCmd.Flags().String("endpoint", "http://127.0.0.1:8088/rpc", "JSON-RPC endpoint URL")
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func runApp(cmd *cobra.Command, _ []string) error {
	fmt.Println(banner)
	fmt.Println()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := log.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("go_version", runtime.Version()).
		Msg("Build information")

	log.Info().
		Str("config_file", cfgFile).
		Str("api_addr", cfg.API.ListenAddr).
		Str("transport_addr", cfg.Transport.ListenAddr).
		Str("target", cfg.Dispatch.Target).
		Str("relaunch", cfg.Dispatch.Relaunch).
		Bool("metrics_enabled", cfg.Metrics.Enabled).
		Str("log_level", cfg.Log.Level).
		Msg("Configuration loaded")

	application, err := NewApp(cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(cmd.Context())
}

// localHandler returns a bridge handler for the codec commands, which need
// no dispatcher.
func localHandler(cmd *cobra.Command) (*bridge.Handler, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	terms := loadTerminology(cfg.Terminology.Path)
	if err := terms.Load(); err != nil {
		return nil, fmt.Errorf("failed to load terminology: %w", err)
	}
	return bridge.NewHandler(terms, nil, log.New(cfg.Log.Level, cfg.Log.Pretty).Logger), nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	h, err := localHandler(cmd)
	if err != nil {
		return err
	}
	nested, _ := cmd.Flags().GetBool("nested")
	topLevel := !nested

	reply, err := h.Encode(&bridge.EncodeArgs{Value: json.RawMessage(args[0]), TopLevel: &topLevel})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply.Hex)
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	h, err := localHandler(cmd)
	if err != nil {
		return err
	}
	reply, err := h.Decode(&bridge.DecodeArgs{Hex: args[0]})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(reply.Value))
	return nil
}

func runCall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	endpoint, _ := cmd.Flags().GetString("endpoint")

	params := json.RawMessage("{}")
	if len(args) > 1 {
		params = json.RawMessage(args[1])
	}
	if !json.Valid(params) {
		return fmt.Errorf("params are not valid JSON")
	}

	client := bridge.NewClient(endpoint, nil, log.New(cfg.Log.Level, cfg.Log.Pretty).Logger)
	var reply json.RawMessage
	if err := client.Call(cmd.Context(), args[0], params, &reply); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(reply))
	return nil
}

func runVersion(*cobra.Command, []string) {
	fmt.Println(banner)
	fmt.Println()
	fmt.Printf("AE Bridge\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-pretty") {
		cfg.Log.Pretty, _ = flags.GetBool("log-pretty")
	}

	if flags.Changed("listen-addr") {
		cfg.Transport.ListenAddr, _ = flags.GetString("listen-addr")
	}
	if flags.Changed("api-addr") {
		cfg.API.ListenAddr, _ = flags.GetString("api-addr")
	}
	if flags.Changed("target") {
		cfg.Dispatch.Target, _ = flags.GetString("target")
	}
	if flags.Changed("relaunch") {
		cfg.Dispatch.Relaunch, _ = flags.GetString("relaunch")
	}
}
