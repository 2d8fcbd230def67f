package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/daimatz/classkit/pkg/classfile"
	"github.com/daimatz/classkit/pkg/generic"
)

func init() {
	rootCmd.AddCommand(newRefsCmd())
}

func newRefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs <file.class>",
		Short: "Resolve every field and method reference in the constant pool",
		Long: `The refs command follows each Fieldref, Methodref and InterfaceMethodref
entry through its NameAndType and Class entries and prints the declaring type,
member name and descriptor. References to array classes such as "[I" resolve
to array types.

Example:
  classkit refs Hello.class`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefs(cmd.OutOrStdout(), args)
		},
	}
	return cmd
}

// refOpcode picks a representative instruction for a member reference tag.
func refOpcode(tag uint8) generic.Opcode {
	switch tag {
	case classfile.TagFieldref:
		return generic.GetField
	case classfile.TagInterfaceMethodref:
		return generic.InvokeInterface
	}
	return generic.InvokeVirtual
}

func runRefs(out io.Writer, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	opts := parseOptions(cfg)
	cf, _, err := classfile.ParseFile(args[0], opts)
	if err != nil {
		return fmt.Errorf("failed to parse class file: %w", err)
	}

	cpg := generic.NewConstantPoolGenFrom(cf.ConstantPool)
	for i := 1; i < cf.ConstantPool.Count(); i++ {
		idx := uint16(i)
		entry, err := cf.ConstantPool.GetConstant(idx)
		if err != nil {
			continue
		}
		if _, ok := entry.(classfile.MemberRef); !ok {
			continue
		}
		insn := generic.FieldOrMethod{Opcode: refOpcode(entry.Tag()), Index: idx}
		rm, err := insn.Resolve(cpg)
		if err != nil {
			if opts.Strict {
				return err
			}
			warningColor.Fprintf(out, "#%d %s: %v\n", idx, classfile.TagName(entry.Tag()), err)
			continue
		}
		typ, err := insn.Type(cpg)
		typeText := "?"
		if err == nil {
			typeText = typ.String()
		}
		fmt.Fprintf(out, "#%d %s %s.%s:%s -> %s\n",
			idx, classfile.TagName(entry.Tag()), ownerColor.Sprint(rm.Declaring), nameColor.Sprint(rm.Name), rm.Signature, typeText)
	}
	return nil
}
