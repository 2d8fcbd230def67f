package classfile

import (
	"bytes"
	"fmt"

	"fortio.org/safecast"
)

// ExceptionHandler represents an entry in the exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// Code is the Code attribute of a method: bytecode, exception table and the
// attributes of the code body itself.
type Code struct {
	attrHeader
	MaxStack          uint16
	MaxLocals         uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
	Attributes        []Attribute
}

func NewCode(nameIndex, maxStack, maxLocals uint16, code []byte, pool *ConstantPool) *Code {
	return &Code{
		attrHeader: attrHeader{nameIndex, pool},
		MaxStack:   maxStack,
		MaxLocals:  maxLocals,
		Code:       code,
	}
}

func (a *Code) Kind() AttrKind   { return AttrCode }
func (a *Code) Name() string     { return NameCode }
func (a *Code) Length() uint32   { return lengthOf(a) }
func (a *Code) Accept(v Visitor) { v.VisitCode(a) }

// Copy deep-copies the bytecode, the exception table and every nested
// attribute, binding all of them to pool.
func (a *Code) Copy(pool *ConstantPool) Attribute {
	c := *a
	c.Code = cloneBytes(a.Code)
	if a.ExceptionHandlers != nil {
		c.ExceptionHandlers = append([]ExceptionHandler(nil), a.ExceptionHandlers...)
	}
	c.Attributes = CopyAttributes(a.Attributes, pool)
	c.pool = pool
	return &c
}

func (a *Code) String() string {
	return fmt.Sprintf("Code(max_stack = %d, max_locals = %d, code_length = %d)",
		a.MaxStack, a.MaxLocals, len(a.Code))
}

func (a *Code) encodePayload(w *writer) error {
	codeLength, err := safecast.Conv[uint32](len(a.Code))
	if err != nil {
		return fmt.Errorf("code length: %w", err)
	}
	handlers, err := safecast.Conv[uint16](len(a.ExceptionHandlers))
	if err != nil {
		return fmt.Errorf("exception table: %w", err)
	}

	w.u16(a.MaxStack)
	w.u16(a.MaxLocals)
	w.u32(codeLength)
	w.bytes(a.Code)
	w.u16(handlers)
	for _, h := range a.ExceptionHandlers {
		w.u16(h.StartPC)
		w.u16(h.EndPC)
		w.u16(h.HandlerPC)
		w.u16(h.CatchType)
	}
	return writeAttributes(w, a.Attributes)
}

func (d *Decoder) decodeCode(h attrHeader, p *payloadReader) (Attribute, error) {
	a := &Code{attrHeader: h}
	var codeLength uint32
	if err := p.u16(&a.MaxStack); err != nil {
		return nil, err
	}
	if err := p.u16(&a.MaxLocals); err != nil {
		return nil, err
	}
	if err := p.u32(&codeLength); err != nil {
		return nil, err
	}
	code, err := p.bytes(codeLength)
	if err != nil {
		return nil, err
	}
	a.Code = code

	var exTableLen uint16
	if err := p.u16(&exTableLen); err != nil {
		return nil, err
	}
	a.ExceptionHandlers = make([]ExceptionHandler, exTableLen)
	for i := range a.ExceptionHandlers {
		eh := &a.ExceptionHandlers[i]
		for _, f := range []*uint16{&eh.StartPC, &eh.EndPC, &eh.HandlerPC, &eh.CatchType} {
			if err := p.u16(f); err != nil {
				return nil, err
			}
		}
	}

	var count uint16
	if err := p.u16(&count); err != nil {
		return nil, err
	}
	a.Attributes = make([]Attribute, count)
	for i := range a.Attributes {
		nested, err := d.readNested(p)
		if err != nil {
			return nil, fmt.Errorf("Code attribute %d: %w", i, err)
		}
		a.Attributes[i] = nested
	}
	return a, nil
}

// readNested decodes an attribute embedded in another attribute's payload.
// The nested record may not extend past the enclosing payload.
func (d *Decoder) readNested(p *payloadReader) (Attribute, error) {
	var nameIndex uint16
	var length uint32
	if err := p.u16(&nameIndex); err != nil {
		return nil, err
	}
	if err := p.u32(&length); err != nil {
		return nil, err
	}
	data, err := p.bytes(length)
	if err != nil {
		return nil, err
	}
	return d.Decode(bytes.NewReader(data), nameIndex, length)
}
