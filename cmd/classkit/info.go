package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <class>",
		Short: "Load a class from the class path and report basic metadata",
		Long: `The info command loads a class by name from java.base.jmod and the
directories listed in classkit.toml (default: the working directory).

Example:
  classkit info java/lang/Integer
  classkit info com.example.Hello`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.OutOrStdout(), args)
		},
	}
	return cmd
}

func runInfo(out io.Writer, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	name := strings.ReplaceAll(args[0], ".", "/")
	printVerbose(out, "Loading: %s\n", name)

	cf, err := cfg.loader(parseOptions(cfg)).Load(name)
	if err != nil {
		return fmt.Errorf("failed to load class: %w", err)
	}

	super := cf.SuperClassName()
	ownerColor.Fprintf(out, "%s\n", name)
	fmt.Fprintf(out, "  Version: %d.%d\n", cf.MajorVersion, cf.MinorVersion)
	fmt.Fprintf(out, "  Access: 0x%04x\n", uint16(cf.AccessFlags))
	if super != "" {
		fmt.Fprintf(out, "  Super: %s\n", super)
	}
	for _, idx := range cf.Interfaces {
		iface, err := cf.ConstantPool.GetClassName(idx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  Implements: %s\n", iface)
	}
	fmt.Fprintf(out, "  Constant pool: %d entries\n", cf.ConstantPool.Count())
	fmt.Fprintf(out, "  Fields: %d\n", len(cf.Fields))
	fmt.Fprintf(out, "  Methods: %d\n", len(cf.Methods))
	fmt.Fprintf(out, "  Attributes: %d\n", len(cf.Attributes))
	return nil
}
