package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"fortio.org/safecast"
)

// writer accumulates big-endian classfile data.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) u8(v uint8) { w.buf.WriteByte(v) }

func (w *writer) u16(v uint16) { w.buf.Write(binary.BigEndian.AppendUint16(nil, v)) }

func (w *writer) u32(v uint32) { w.buf.Write(binary.BigEndian.AppendUint32(nil, v)) }

func (w *writer) u64(v uint64) { w.buf.Write(binary.BigEndian.AppendUint64(nil, v)) }

func (w *writer) bytes(b []byte) { w.buf.Write(b) }

func (w *writer) Bytes() []byte { return w.buf.Bytes() }

func (w *writer) Len() int { return w.buf.Len() }

// Write serializes cf in classfile format. Attribute lengths are recomputed
// from the current payloads.
func Write(out io.Writer, cf *ClassFile) error {
	var w writer
	w.u32(classMagic)
	w.u16(cf.MinorVersion)
	w.u16(cf.MajorVersion)
	if err := writeConstantPool(&w, cf.ConstantPool); err != nil {
		return fmt.Errorf("writing constant pool: %w", err)
	}
	w.u16(uint16(cf.AccessFlags))
	w.u16(cf.ThisClass)
	w.u16(cf.SuperClass)

	n, err := safecast.Conv[uint16](len(cf.Interfaces))
	if err != nil {
		return fmt.Errorf("too many interfaces: %w", err)
	}
	w.u16(n)
	for _, iface := range cf.Interfaces {
		w.u16(iface)
	}

	if n, err = safecast.Conv[uint16](len(cf.Fields)); err != nil {
		return fmt.Errorf("too many fields: %w", err)
	}
	w.u16(n)
	for i, f := range cf.Fields {
		if err := writeMember(&w, f.AccessFlags, f.NameIndex, f.DescriptorIndex, f.Attributes); err != nil {
			return fmt.Errorf("writing field %d: %w", i, err)
		}
	}

	if n, err = safecast.Conv[uint16](len(cf.Methods)); err != nil {
		return fmt.Errorf("too many methods: %w", err)
	}
	w.u16(n)
	for i, m := range cf.Methods {
		if err := writeMember(&w, m.AccessFlags, m.NameIndex, m.DescriptorIndex, m.Attributes); err != nil {
			return fmt.Errorf("writing method %d: %w", i, err)
		}
	}

	if err := writeAttributes(&w, cf.Attributes); err != nil {
		return fmt.Errorf("writing class attributes: %w", err)
	}

	_, err = out.Write(w.Bytes())
	return err
}

func writeMember(w *writer, flags AccessFlags, nameIndex, descIndex uint16, attrs []Attribute) error {
	w.u16(uint16(flags))
	w.u16(nameIndex)
	w.u16(descIndex)
	return writeAttributes(w, attrs)
}
