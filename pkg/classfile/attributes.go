package classfile

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// SourceFile names the source file a class was compiled from.
type SourceFile struct {
	attrHeader
	SourceFileIndex uint16
}

// NewSourceFile returns a SourceFile attribute naming the Utf8 entry at sourceFileIndex.
func NewSourceFile(nameIndex, sourceFileIndex uint16, pool *ConstantPool) *SourceFile {
	return &SourceFile{attrHeader: attrHeader{nameIndex, pool}, SourceFileIndex: sourceFileIndex}
}

func (a *SourceFile) Kind() AttrKind   { return AttrSourceFile }
func (a *SourceFile) Name() string     { return NameSourceFile }
func (a *SourceFile) Length() uint32   { return lengthOf(a) }
func (a *SourceFile) Accept(v Visitor) { v.VisitSourceFile(a) }

func (a *SourceFile) Copy(pool *ConstantPool) Attribute {
	c := *a
	c.pool = pool
	return &c
}

// SourceFileName resolves SourceFileIndex.
func (a *SourceFile) SourceFileName() (string, error) {
	return a.pool.GetUtf8(a.SourceFileIndex)
}

func (a *SourceFile) String() string {
	return fmt.Sprintf("SourceFile(%s)", utf8OrIndex(a.pool, a.SourceFileIndex))
}

func (a *SourceFile) encodePayload(w *writer) error {
	w.u16(a.SourceFileIndex)
	return nil
}

// ConstantValue holds the pool index of a static field's initial value.
type ConstantValue struct {
	attrHeader
	ValueIndex uint16
}

// NewConstantValue returns a ConstantValue attribute for the entry at valueIndex.
func NewConstantValue(nameIndex, valueIndex uint16, pool *ConstantPool) *ConstantValue {
	return &ConstantValue{attrHeader: attrHeader{nameIndex, pool}, ValueIndex: valueIndex}
}

func (a *ConstantValue) Kind() AttrKind   { return AttrConstantValue }
func (a *ConstantValue) Name() string     { return NameConstantValue }
func (a *ConstantValue) Length() uint32   { return lengthOf(a) }
func (a *ConstantValue) Accept(v Visitor) { v.VisitConstantValue(a) }

func (a *ConstantValue) Copy(pool *ConstantPool) Attribute {
	c := *a
	c.pool = pool
	return &c
}

func (a *ConstantValue) String() string {
	entry, err := a.pool.GetConstant(a.ValueIndex)
	if err != nil {
		return fmt.Sprintf("ConstantValue(#%d)", a.ValueIndex)
	}
	switch c := entry.(type) {
	case *ConstantInteger:
		return fmt.Sprintf("ConstantValue(%d)", c.Value)
	case *ConstantLong:
		return fmt.Sprintf("ConstantValue(%d)", c.Value)
	case *ConstantFloat:
		return fmt.Sprintf("ConstantValue(%v)", c.Value)
	case *ConstantDouble:
		return fmt.Sprintf("ConstantValue(%v)", c.Value)
	case *ConstantString:
		return fmt.Sprintf("ConstantValue(%q)", utf8OrIndex(a.pool, c.StringIndex))
	}
	return fmt.Sprintf("ConstantValue(#%d)", a.ValueIndex)
}

func (a *ConstantValue) encodePayload(w *writer) error {
	w.u16(a.ValueIndex)
	return nil
}

// Signature holds the generic signature of a class, field or method.
type Signature struct {
	attrHeader
	SignatureIndex uint16
}

// NewSignature returns a Signature attribute for the Utf8 entry at signatureIndex.
func NewSignature(nameIndex, signatureIndex uint16, pool *ConstantPool) *Signature {
	return &Signature{attrHeader: attrHeader{nameIndex, pool}, SignatureIndex: signatureIndex}
}

func (a *Signature) Kind() AttrKind   { return AttrSignature }
func (a *Signature) Name() string     { return NameSignature }
func (a *Signature) Length() uint32   { return lengthOf(a) }
func (a *Signature) Accept(v Visitor) { v.VisitSignature(a) }

func (a *Signature) Copy(pool *ConstantPool) Attribute {
	c := *a
	c.pool = pool
	return &c
}

func (a *Signature) String() string {
	return fmt.Sprintf("Signature(%s)", utf8OrIndex(a.pool, a.SignatureIndex))
}

func (a *Signature) encodePayload(w *writer) error {
	w.u16(a.SignatureIndex)
	return nil
}

// Exceptions lists the checked exceptions a method declares, as Class
// entry indices.
type Exceptions struct {
	attrHeader
	ExceptionIndexTable []uint16
}

// NewExceptions returns an Exceptions attribute over the Class entries in table.
func NewExceptions(nameIndex uint16, table []uint16, pool *ConstantPool) *Exceptions {
	return &Exceptions{attrHeader: attrHeader{nameIndex, pool}, ExceptionIndexTable: table}
}

func (a *Exceptions) Kind() AttrKind   { return AttrExceptions }
func (a *Exceptions) Name() string     { return NameExceptions }
func (a *Exceptions) Length() uint32   { return lengthOf(a) }
func (a *Exceptions) Accept(v Visitor) { v.VisitExceptions(a) }

func (a *Exceptions) Copy(pool *ConstantPool) Attribute {
	c := *a
	if a.ExceptionIndexTable != nil {
		c.ExceptionIndexTable = append([]uint16(nil), a.ExceptionIndexTable...)
	}
	c.pool = pool
	return &c
}

// ExceptionNames resolves every entry to a dotted class name.
func (a *Exceptions) ExceptionNames() ([]string, error) {
	names := make([]string, len(a.ExceptionIndexTable))
	for i, idx := range a.ExceptionIndexTable {
		name, err := a.pool.GetClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("exception %d: %w", i, err)
		}
		names[i] = strings.ReplaceAll(name, "/", ".")
	}
	return names, nil
}

func (a *Exceptions) String() string {
	names, err := a.ExceptionNames()
	if err != nil {
		return fmt.Sprintf("Exceptions(%d entries)", len(a.ExceptionIndexTable))
	}
	return "Exceptions(" + strings.Join(names, ", ") + ")"
}

func (a *Exceptions) encodePayload(w *writer) error {
	n, err := safecast.Conv[uint16](len(a.ExceptionIndexTable))
	if err != nil {
		return fmt.Errorf("exception table: %w", err)
	}
	w.u16(n)
	for _, idx := range a.ExceptionIndexTable {
		w.u16(idx)
	}
	return nil
}

func decodeExceptions(h attrHeader, p *payloadReader) (Attribute, error) {
	var n uint16
	if err := p.u16(&n); err != nil {
		return nil, err
	}
	a := &Exceptions{attrHeader: h, ExceptionIndexTable: make([]uint16, n)}
	for i := range a.ExceptionIndexTable {
		if err := p.u16(&a.ExceptionIndexTable[i]); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// LineNumber maps a bytecode offset to a source line.
type LineNumber struct {
	StartPC    uint16
	LineNumber uint16
}

// LineNumberTable is attached to a Code attribute.
type LineNumberTable struct {
	attrHeader
	Lines []LineNumber
}

// NewLineNumberTable returns a LineNumberTable attribute holding lines.
func NewLineNumberTable(nameIndex uint16, lines []LineNumber, pool *ConstantPool) *LineNumberTable {
	return &LineNumberTable{attrHeader: attrHeader{nameIndex, pool}, Lines: lines}
}

func (a *LineNumberTable) Kind() AttrKind   { return AttrLineNumberTable }
func (a *LineNumberTable) Name() string     { return NameLineNumberTable }
func (a *LineNumberTable) Length() uint32   { return lengthOf(a) }
func (a *LineNumberTable) Accept(v Visitor) { v.VisitLineNumberTable(a) }

func (a *LineNumberTable) Copy(pool *ConstantPool) Attribute {
	c := *a
	if a.Lines != nil {
		c.Lines = append([]LineNumber(nil), a.Lines...)
	}
	c.pool = pool
	return &c
}

func (a *LineNumberTable) String() string {
	parts := make([]string, len(a.Lines))
	for i, l := range a.Lines {
		parts[i] = fmt.Sprintf("LineNumber(%d, %d)", l.StartPC, l.LineNumber)
	}
	return "LineNumberTable(" + strings.Join(parts, ", ") + ")"
}

func (a *LineNumberTable) encodePayload(w *writer) error {
	n, err := safecast.Conv[uint16](len(a.Lines))
	if err != nil {
		return fmt.Errorf("line number table: %w", err)
	}
	w.u16(n)
	for _, l := range a.Lines {
		w.u16(l.StartPC)
		w.u16(l.LineNumber)
	}
	return nil
}

func decodeLineNumberTable(h attrHeader, p *payloadReader) (Attribute, error) {
	var n uint16
	if err := p.u16(&n); err != nil {
		return nil, err
	}
	a := &LineNumberTable{attrHeader: h, Lines: make([]LineNumber, n)}
	for i := range a.Lines {
		if err := p.u16(&a.Lines[i].StartPC); err != nil {
			return nil, err
		}
		if err := p.u16(&a.Lines[i].LineNumber); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// BootstrapMethod is one entry of the BootstrapMethods attribute.
type BootstrapMethod struct {
	MethodRef          uint16
	BootstrapArguments []uint16
}

// BootstrapMethods is the class-level table referenced by invokedynamic
// and dynamic constants.
type BootstrapMethods struct {
	attrHeader
	Methods []BootstrapMethod
}

// NewBootstrapMethods returns a BootstrapMethods attribute holding methods.
func NewBootstrapMethods(nameIndex uint16, methods []BootstrapMethod, pool *ConstantPool) *BootstrapMethods {
	return &BootstrapMethods{attrHeader: attrHeader{nameIndex, pool}, Methods: methods}
}

func (a *BootstrapMethods) Kind() AttrKind   { return AttrBootstrapMethods }
func (a *BootstrapMethods) Name() string     { return NameBootstrapMethods }
func (a *BootstrapMethods) Length() uint32   { return lengthOf(a) }
func (a *BootstrapMethods) Accept(v Visitor) { v.VisitBootstrapMethods(a) }

func (a *BootstrapMethods) Copy(pool *ConstantPool) Attribute {
	c := *a
	if a.Methods != nil {
		c.Methods = make([]BootstrapMethod, len(a.Methods))
		for i, m := range a.Methods {
			c.Methods[i] = BootstrapMethod{
				MethodRef:          m.MethodRef,
				BootstrapArguments: append([]uint16(nil), m.BootstrapArguments...),
			}
		}
	}
	c.pool = pool
	return &c
}

func (a *BootstrapMethods) String() string {
	return fmt.Sprintf("BootstrapMethods(%d)", len(a.Methods))
}

func (a *BootstrapMethods) encodePayload(w *writer) error {
	n, err := safecast.Conv[uint16](len(a.Methods))
	if err != nil {
		return fmt.Errorf("bootstrap methods: %w", err)
	}
	w.u16(n)
	for i, m := range a.Methods {
		nargs, err := safecast.Conv[uint16](len(m.BootstrapArguments))
		if err != nil {
			return fmt.Errorf("bootstrap method %d arguments: %w", i, err)
		}
		w.u16(m.MethodRef)
		w.u16(nargs)
		for _, arg := range m.BootstrapArguments {
			w.u16(arg)
		}
	}
	return nil
}

func decodeBootstrapMethods(h attrHeader, p *payloadReader) (Attribute, error) {
	var n uint16
	if err := p.u16(&n); err != nil {
		return nil, err
	}
	a := &BootstrapMethods{attrHeader: h, Methods: make([]BootstrapMethod, n)}
	for i := range a.Methods {
		var nargs uint16
		if err := p.u16(&a.Methods[i].MethodRef); err != nil {
			return nil, err
		}
		if err := p.u16(&nargs); err != nil {
			return nil, err
		}
		args := make([]uint16, nargs)
		for j := range args {
			if err := p.u16(&args[j]); err != nil {
				return nil, err
			}
		}
		a.Methods[i].BootstrapArguments = args
	}
	return a, nil
}

// Unknown carries an attribute kind this package does not decode. Its bytes
// are passed through unchanged.
type Unknown struct {
	attrHeader
	name  string
	Bytes []byte
}

// NewUnknown returns an opaque attribute written under name.
func NewUnknown(nameIndex uint16, name string, bytes []byte, pool *ConstantPool) *Unknown {
	return &Unknown{attrHeader: attrHeader{nameIndex, pool}, name: name, Bytes: bytes}
}

func (a *Unknown) Kind() AttrKind   { return AttrUnknown }
func (a *Unknown) Name() string     { return a.name }
func (a *Unknown) Length() uint32   { return lengthOf(a) }
func (a *Unknown) Accept(v Visitor) { v.VisitUnknown(a) }

func (a *Unknown) Copy(pool *ConstantPool) Attribute {
	c := *a
	c.Bytes = cloneBytes(a.Bytes)
	c.pool = pool
	return &c
}

func (a *Unknown) String() string {
	return fmt.Sprintf("Unknown(%s, %d bytes)", a.name, len(a.Bytes))
}

func (a *Unknown) encodePayload(w *writer) error {
	w.bytes(a.Bytes)
	return nil
}

func utf8OrIndex(pool *ConstantPool, index uint16) string {
	s, err := pool.GetUtf8(index)
	if err != nil {
		return fmt.Sprintf("#%d", index)
	}
	return s
}
