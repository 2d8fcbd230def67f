package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/daimatz/classkit/pkg/classfile"
)

var (
	// Global flags
	verbose    bool
	strict     bool
	noColor    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "classkit",
	Short: "Inspect class file attributes and member references",
	Long: `classkit decodes the attributes attached to a class, its fields, its
methods and their code bodies, and resolves the field and method references
in a class file's constant pool.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		setupLogger(cmd.ErrOrStderr())
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Treat format warnings as errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a classkit.toml file")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger(w io.Writer) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// parseOptions merges the --strict flag with the config file.
func parseOptions(cfg config) classfile.Options {
	return classfile.Options{Strict: strict || cfg.Strict, Logger: slog.Default()}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(w io.Writer, format string, args ...any) {
	if verbose {
		fmt.Fprintf(w, format, args...)
	}
}
