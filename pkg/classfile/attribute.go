package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"fortio.org/safecast"
)

// AttrKind identifies a recognized attribute kind.
type AttrKind uint8

const (
	AttrUnknown AttrKind = iota
	AttrSourceFile
	AttrConstantValue
	AttrCode
	AttrExceptions
	AttrLineNumberTable
	AttrSynthetic
	AttrDeprecated
	AttrSignature
	AttrBootstrapMethods
)

// Attribute names as they appear in the constant pool.
const (
	NameSourceFile       = "SourceFile"
	NameConstantValue    = "ConstantValue"
	NameCode             = "Code"
	NameExceptions       = "Exceptions"
	NameLineNumberTable  = "LineNumberTable"
	NameSynthetic        = "Synthetic"
	NameDeprecated       = "Deprecated"
	NameSignature        = "Signature"
	NameBootstrapMethods = "BootstrapMethods"
)

var kindByName = map[string]AttrKind{
	NameSourceFile:       AttrSourceFile,
	NameConstantValue:    AttrConstantValue,
	NameCode:             AttrCode,
	NameExceptions:       AttrExceptions,
	NameLineNumberTable:  AttrLineNumberTable,
	NameSynthetic:        AttrSynthetic,
	NameDeprecated:       AttrDeprecated,
	NameSignature:        AttrSignature,
	NameBootstrapMethods: AttrBootstrapMethods,
}

// KindOf maps an attribute name to its kind, AttrUnknown if unrecognized.
func KindOf(name string) AttrKind {
	return kindByName[name]
}

func (k AttrKind) String() string {
	for name, kind := range kindByName {
		if kind == k {
			return name
		}
	}
	return "Unknown"
}

// Attribute is a decoded attribute record. The set of implementations is
// closed: every kind this package does not recognize decodes to *Unknown.
//
// The kind and name index of an attribute are fixed at construction; payload
// fields are exported and may be mutated. Length is always computed from the
// current payload.
type Attribute interface {
	Kind() AttrKind
	// Name is the attribute name the record is written under.
	Name() string
	NameIndex() uint16
	// Length is the size of the encoded payload, or 0 when the payload
	// cannot be encoded. AttributeLength reports the encode error instead.
	Length() uint32
	ConstantPool() *ConstantPool
	Accept(v Visitor)
	// Copy returns a deep copy bound to pool.
	Copy(pool *ConstantPool) Attribute
	String() string

	encodePayload(w *writer) error
}

type attrHeader struct {
	nameIndex uint16
	pool      *ConstantPool
}

func (h *attrHeader) NameIndex() uint16 { return h.nameIndex }

func (h *attrHeader) ConstantPool() *ConstantPool { return h.pool }

// AttributeLength encodes the payload of a and returns its size.
func AttributeLength(a Attribute) (uint32, error) {
	var w writer
	if err := a.encodePayload(&w); err != nil {
		return 0, err
	}
	return safecast.Conv[uint32](w.Len())
}

// lengthOf backs Attribute.Length.
func lengthOf(a Attribute) uint32 {
	n, err := AttributeLength(a)
	if err != nil {
		return 0
	}
	return n
}

// WriteAttribute writes the attribute header followed by its payload. The
// length field is derived from the payload at the time of the call.
func WriteAttribute(w io.Writer, a Attribute) error {
	var bw writer
	if err := writeAttribute(&bw, a); err != nil {
		return err
	}
	_, err := w.Write(bw.Bytes())
	return err
}

func writeAttribute(w *writer, a Attribute) error {
	var payload writer
	if err := a.encodePayload(&payload); err != nil {
		return fmt.Errorf("encoding %s attribute: %w", a.Name(), err)
	}
	length, err := safecast.Conv[uint32](payload.Len())
	if err != nil {
		return fmt.Errorf("%s attribute too large: %w", a.Name(), err)
	}
	w.u16(a.NameIndex())
	w.u32(length)
	w.bytes(payload.Bytes())
	return nil
}

// WriteAttributes writes attributes_count followed by every attribute.
func WriteAttributes(w io.Writer, attrs []Attribute) error {
	var bw writer
	if err := writeAttributes(&bw, attrs); err != nil {
		return err
	}
	_, err := w.Write(bw.Bytes())
	return err
}

func writeAttributes(w *writer, attrs []Attribute) error {
	count, err := safecast.Conv[uint16](len(attrs))
	if err != nil {
		return fmt.Errorf("too many attributes: %w", err)
	}
	w.u16(count)
	for _, a := range attrs {
		if err := writeAttribute(w, a); err != nil {
			return err
		}
	}
	return nil
}

// AttributesEqual reports whether a and b have the same kind, name index
// and encoded payload.
func AttributesEqual(a, b Attribute) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() || a.NameIndex() != b.NameIndex() || a.Name() != b.Name() {
		return false
	}
	var wa, wb writer
	if a.encodePayload(&wa) != nil || b.encodePayload(&wb) != nil {
		return false
	}
	return bytes.Equal(wa.Bytes(), wb.Bytes())
}

// CopyAttributes deep-copies attrs, binding each copy to pool.
func CopyAttributes(attrs []Attribute, pool *ConstantPool) []Attribute {
	if attrs == nil {
		return nil
	}
	out := make([]Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = a.Copy(pool)
	}
	return out
}

// Options configures attribute decoding.
type Options struct {
	// Strict turns format warnings such as ErrUnexpectedPayload into errors.
	// Default: false (tolerant)
	Strict bool

	// Logger receives format warnings. Default: slog.Default()
	Logger *slog.Logger
}

// Decoder decodes attribute records against one constant pool. It collects
// non-fatal format warnings across calls.
type Decoder struct {
	pool     *ConstantPool
	strict   bool
	logger   *slog.Logger
	warnings []error
}

// NewDecoder returns a decoder that resolves attribute names through pool.
func NewDecoder(pool *ConstantPool, opts Options) *Decoder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{pool: pool, strict: opts.Strict, logger: logger}
}

// ConstantPool returns the pool decoded attributes are bound to.
func (d *Decoder) ConstantPool() *ConstantPool { return d.pool }

// Warnings returns the warnings reported so far.
func (d *Decoder) Warnings() []error {
	out := make([]error, len(d.warnings))
	copy(out, d.warnings)
	return out
}

// warn records a format warning, or returns it as an error in strict mode.
func (d *Decoder) warn(err error) error {
	if d.strict {
		return err
	}
	d.warnings = append(d.warnings, err)
	d.logger.Warn("classfile format warning", "error", err)
	return nil
}

// ReadAttribute reads one attribute record with a tolerant default decoder.
func ReadAttribute(r io.Reader, pool *ConstantPool) (Attribute, error) {
	return NewDecoder(pool, Options{}).ReadAttribute(r)
}

// ReadAttribute reads a 6-byte header and the payload that follows it.
func (d *Decoder) ReadAttribute(r io.Reader) (Attribute, error) {
	var nameIndex uint16
	if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
		return nil, fmt.Errorf("reading attribute name index: %w", err)
	}
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("reading attribute length: %w", err)
	}
	return d.Decode(r, nameIndex, length)
}

// ReadAttributes reads attributes_count followed by that many records.
func (d *Decoder) ReadAttributes(r io.Reader) ([]Attribute, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("reading attributes count: %w", err)
	}
	attrs := make([]Attribute, count)
	for i := uint16(0); i < count; i++ {
		a, err := d.ReadAttribute(r)
		if err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}
		attrs[i] = a
	}
	return attrs, nil
}

// Decode reads exactly length payload bytes from r and decodes them as the
// attribute named by nameIndex. Unrecognized names decode to *Unknown.
func (d *Decoder) Decode(r io.Reader, nameIndex uint16, length uint32) (Attribute, error) {
	name, err := d.pool.GetUtf8(nameIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving attribute name: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(length)))
	if err != nil {
		return nil, fmt.Errorf("reading %s attribute data: %w", name, err)
	}
	if len(data) != int(length) {
		return nil, fmt.Errorf("%w: %s declares %d bytes, stream has %d",
			ErrFormatLengthMismatch, name, length, len(data))
	}

	h := attrHeader{nameIndex: nameIndex, pool: d.pool}
	kind := KindOf(name)
	if kind == AttrUnknown {
		return &Unknown{attrHeader: h, name: name, Bytes: data}, nil
	}

	p := &payloadReader{r: bytes.NewReader(data), name: name}
	a, err := d.decodeKnown(kind, h, p, data)
	if err != nil {
		return nil, err
	}
	if rest := p.r.Len(); rest != 0 {
		return nil, fmt.Errorf("%w: %s declares %d bytes, payload uses %d",
			ErrFormatLengthMismatch, name, length, int(length)-rest)
	}
	return a, nil
}

func (d *Decoder) decodeKnown(kind AttrKind, h attrHeader, p *payloadReader, data []byte) (Attribute, error) {
	switch kind {
	case AttrSynthetic, AttrDeprecated:
		return d.decodeMarker(kind, h, p, data)
	case AttrSourceFile:
		a := &SourceFile{attrHeader: h}
		return a, p.u16(&a.SourceFileIndex)
	case AttrConstantValue:
		a := &ConstantValue{attrHeader: h}
		return a, p.u16(&a.ValueIndex)
	case AttrSignature:
		a := &Signature{attrHeader: h}
		return a, p.u16(&a.SignatureIndex)
	case AttrExceptions:
		return decodeExceptions(h, p)
	case AttrLineNumberTable:
		return decodeLineNumberTable(h, p)
	case AttrBootstrapMethods:
		return decodeBootstrapMethods(h, p)
	case AttrCode:
		return d.decodeCode(h, p)
	}
	return nil, fmt.Errorf("no decoder for attribute kind %s", kind)
}

// payloadReader reads a bounded payload; running past the end is a length
// mismatch rather than an EOF.
type payloadReader struct {
	r    *bytes.Reader
	name string
}

func (p *payloadReader) read(v any) error {
	if err := binary.Read(p.r, binary.BigEndian, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %s payload truncated", ErrFormatLengthMismatch, p.name)
		}
		return err
	}
	return nil
}

func (p *payloadReader) u16(v *uint16) error { return p.read(v) }

func (p *payloadReader) u32(v *uint32) error { return p.read(v) }

func (p *payloadReader) bytes(n uint32) ([]byte, error) {
	if int64(n) > int64(p.r.Len()) {
		return nil, fmt.Errorf("%w: %s payload truncated", ErrFormatLengthMismatch, p.name)
	}
	b := make([]byte, n)
	_, err := io.ReadFull(p.r, b)
	return b, err
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
