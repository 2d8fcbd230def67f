package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/daimatz/classkit/pkg/classfile"
)

var (
	ownerColor   = color.New(color.FgCyan, color.Bold)
	nameColor    = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow, color.Bold)
)

func init() {
	rootCmd.AddCommand(newAttrsCmd())
}

func newAttrsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attrs <file.class>",
		Short: "Print every attribute of a class file",
		Long: `The attrs command decodes the attributes of the class, its fields, its
methods and their code bodies. Attributes the decoder does not know are shown
as opaque bytes.

Example:
  classkit attrs Hello.class
  classkit attrs --strict Hello.class`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttrs(cmd.OutOrStdout(), args)
		},
	}
	return cmd
}

func runAttrs(out io.Writer, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	printVerbose(out, "Parsing: %s\n", args[0])
	cf, warnings, err := classfile.ParseFile(args[0], parseOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to parse class file: %w", err)
	}

	name, err := cf.ClassName()
	if err != nil {
		return err
	}
	p := &attrPrinter{out: out}
	p.owner("class %s", name)
	p.walk(cf.Attributes, 0)
	for _, f := range cf.Fields {
		p.owner("field %s %s", f.Name, f.Descriptor)
		p.walk(f.Attributes, 0)
	}
	for _, m := range cf.Methods {
		p.owner("method %s%s", m.Name, m.Descriptor)
		p.walk(m.Attributes, 0)
	}

	for _, w := range warnings {
		warningColor.Fprintf(out, "warning: %v\n", w)
	}
	return nil
}

// attrPrinter writes one line per attribute. Attributes nested in a Code
// body are indented one level deeper.
type attrPrinter struct {
	out   io.Writer
	depth int
}

func (p *attrPrinter) owner(format string, args ...any) {
	ownerColor.Fprintf(p.out, format+"\n", args...)
}

func (p *attrPrinter) walk(attrs []classfile.Attribute, depth int) {
	for _, a := range attrs {
		p.depth = depth
		a.Accept(p)
		if code, ok := a.(*classfile.Code); ok {
			p.walk(code.Attributes, depth+1)
		}
	}
}

func (p *attrPrinter) line(a classfile.Attribute, warn bool) {
	indent := strings.Repeat("  ", p.depth+1)
	lenText := "?"
	if length, err := classfile.AttributeLength(a); err == nil {
		lenText = fmt.Sprint(length)
	}
	text := fmt.Sprintf("%s%s [#%d, %s bytes] %s\n", indent, nameColor.Sprint(a.Name()), a.NameIndex(), lenText, a)
	if warn {
		warningColor.Fprint(p.out, text)
		return
	}
	fmt.Fprint(p.out, text)
}

func (p *attrPrinter) VisitSynthetic(a *classfile.Synthetic)         { p.line(a, len(a.Bytes) > 0) }
func (p *attrPrinter) VisitDeprecated(a *classfile.Deprecated)       { p.line(a, len(a.Bytes) > 0) }
func (p *attrPrinter) VisitSourceFile(a *classfile.SourceFile)       { p.line(a, false) }
func (p *attrPrinter) VisitConstantValue(a *classfile.ConstantValue) { p.line(a, false) }
func (p *attrPrinter) VisitSignature(a *classfile.Signature)         { p.line(a, false) }
func (p *attrPrinter) VisitExceptions(a *classfile.Exceptions)       { p.line(a, false) }
func (p *attrPrinter) VisitUnknown(a *classfile.Unknown)             { p.line(a, false) }
func (p *attrPrinter) VisitCode(a *classfile.Code)                   { p.line(a, false) }

func (p *attrPrinter) VisitLineNumberTable(a *classfile.LineNumberTable) {
	p.line(a, false)
	for _, ln := range a.Lines {
		fmt.Fprintf(p.out, "%s  line %d: pc %d\n", strings.Repeat("  ", p.depth+1), ln.LineNumber, ln.StartPC)
	}
}

func (p *attrPrinter) VisitBootstrapMethods(a *classfile.BootstrapMethods) {
	p.line(a, false)
	for i, bm := range a.Methods {
		fmt.Fprintf(p.out, "%s  %d: #%d %v\n", strings.Repeat("  ", p.depth+1), i, bm.MethodRef, bm.BootstrapArguments)
	}
}
