package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coolbeans/shamroq/pkg/config"
	"github.com/coolbeans/shamroq/pkg/logging"
	"github.com/coolbeans/shamroq/pkg/pattern"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shamroq",
		Short: "Deontic classifier for Code of Federal Regulations XML",
		Long: `Shamroq turns CFR XML volumes into a table of sections and labels
every sentence of that table with the deontic category (obligation,
prohibition, permission, ...) of the rule spans it contains.

Stages:
  extract   XML volumes -> SECTNO, SUBJECT, TEXT table (xlsx or csv)
  classify  section table -> SECTNO, CFRSubject, Original_sentence,
            Matched_Label, Matched_Text (xlsx or csv)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().String("dataset", "", "Dataset identifier (defaults to settings.dataset)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Mirror log output to stderr")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(datasetsCmd())
	rootCmd.AddCommand(patternsCmd())

	return rootCmd
}

// app holds what every stage command needs once flags are parsed.
type app struct {
	config   *config.Config
	dataset  string
	logger   *zap.Logger
	closeLog func() error
}

func (application *app) Close() {
	if application.closeLog != nil {
		application.closeLog()
	}
}

// setupApp loads the configuration and opens the log file. With
// allowMissingConfig, a config file that does not exist at the default
// location falls back to built-in defaults.
func setupApp(cmd *cobra.Command, allowMissingConfig bool) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	datasetName, _ := cmd.Flags().GetString("dataset")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		if !allowMissingConfig || cmd.Flags().Changed("config") || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cfg, err = config.Parse([]byte("{}")); err != nil {
			return nil, fmt.Errorf("failed to load default config: %w", err)
		}
	}

	if datasetName == "" {
		datasetName = cfg.Settings.Dataset
	}

	logger, closeLog, err := logging.New(logging.Config{
		File:   cfg.Settings.LogFile,
		Level:  cfg.Settings.LogLevel,
		Format: cfg.Settings.LogFormat,
		Stderr: verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	return &app{
		config:   cfg,
		dataset:  datasetName,
		logger:   logger.With(zap.String("command", cmd.Name())),
		closeLog: closeLog,
	}, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [project-dir]",
		Short: "Initialize a shamroq project",
		Long: `Create the project layout with a starter configuration and the
built-in deontic rule dictionary. Existing files are left untouched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir := "."
			if len(args) > 0 {
				projectDir = args[0]
			}

			dirs := []string{
				filepath.Join(projectDir, "config"),
				filepath.Join(projectDir, "logs"),
				filepath.Join(projectDir, "data"),
			}
			for _, dir := range dirs {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", dir, err)
				}
			}

			configPath := filepath.Join(projectDir, "config", "config.json")
			if _, err := config.WriteTemplate(configPath); err != nil {
				return err
			}
			rulesPath := filepath.Join(projectDir, "config", "shamroq-patterns-rules.jsonl")
			if err := pattern.WriteDefaultRules(rulesPath, false); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initialized shamroq project: %s\n", projectDir)
			fmt.Fprintln(out, "Created:")
			for _, dir := range dirs {
				fmt.Fprintf(out, "  - %s/\n", dir)
			}
			fmt.Fprintf(out, "  - %s\n", configPath)
			fmt.Fprintf(out, "  - %s\n", rulesPath)
			fmt.Fprintf(out, "\nNext steps:\n")
			fmt.Fprintf(out, "  1. Edit %s to describe your datasets\n", configPath)
			fmt.Fprintf(out, "  2. Run: shamroq fetch --dataset FAR\n")
			fmt.Fprintf(out, "  3. Run: shamroq run --dataset FAR\n")
			return nil
		},
	}
}

func datasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List configured datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-24s %-20s %-8s %s\n", "IDENTIFIER", "REG_NAME", "VOLUMES", "HOME_BASE")
			for _, name := range cfg.DatasetNames() {
				dataset := cfg.Datasets[name]
				marker := ""
				if name == cfg.Settings.Dataset {
					marker = " (default)"
				}
				fmt.Fprintf(out, "%-24s %-20s %-8d %s%s\n",
					name, dataset.RegName, len(dataset.Volumes), dataset.HomeBase, marker)
			}
			return nil
		},
	}
}
