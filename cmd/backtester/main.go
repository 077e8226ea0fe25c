package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"backtester/internal/config"
	"backtester/internal/strategy/builtins"
	"backtester/internal/util"
)

const version = "0.1.0"

const defaultConfigPath = "config/backtester.yaml"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: backtester <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run         Run the configured strategies over historical prices\n")
	fmt.Fprintf(os.Stderr, "  gather      Download daily bars from Alpaca into the configured store\n")
	fmt.Fprintf(os.Stderr, "  strategies  List built-in strategy types\n")
	fmt.Fprintf(os.Stderr, "  version     Print the version\n")
	fmt.Fprintf(os.Stderr, "\nRun 'backtester <command> -h' for command options.\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:])
	case "gather":
		err = gatherCmd(ctx, os.Args[2:])
	case "strategies":
		for _, t := range builtins.Types() {
			fmt.Println(t)
		}
	case "version":
		fmt.Printf("backtester %s\n", version)
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

// configPath resolves the config file: the flag value, then
// BACKTESTER_CONFIG, then the default location.
func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv("BACKTESTER_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// loadConfig reads the configuration and installs the configured logger as
// the slog default.
func loadConfig(fs *flag.FlagSet, path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath(path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format).With("cmd", fs.Name())
	util.SetDefault(logger)
	return cfg, logger, nil
}
