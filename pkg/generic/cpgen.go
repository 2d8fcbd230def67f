package generic

import (
	"fmt"
	"math"
	"strings"

	"github.com/daimatz/classkit/pkg/classfile"
)

// PoolProvider exposes the constant pool an index refers to.
type PoolProvider interface {
	ConstantPool() *classfile.ConstantPool
}

// ConstantPoolGen wraps a constant pool under construction. Add methods
// return the index of an existing equal entry instead of adding a new one.
//
// The wrapped pool is shared, not copied: attributes and descriptors built
// against this generator see every entry added later.
type ConstantPoolGen struct {
	pool  *classfile.ConstantPool
	index map[string]uint16
}

// NewConstantPoolGen returns a generator over an empty pool.
func NewConstantPoolGen() *ConstantPoolGen {
	return &ConstantPoolGen{pool: classfile.NewConstantPool(), index: make(map[string]uint16)}
}

// NewConstantPoolGenFrom returns a generator that extends pool. Existing
// entries are indexed so later Add calls reuse them.
func NewConstantPoolGenFrom(pool *classfile.ConstantPool) *ConstantPoolGen {
	g := &ConstantPoolGen{pool: pool, index: make(map[string]uint16)}
	for i := 1; i < pool.Count(); i++ {
		idx := uint16(i)
		entry, err := pool.GetConstant(idx)
		if err != nil {
			continue
		}
		if key, ok := g.keyOf(idx, entry); ok {
			if _, dup := g.index[key]; !dup {
				g.index[key] = idx
			}
		}
	}
	return g
}

// ConstantPool returns the pool being built.
func (g *ConstantPoolGen) ConstantPool() *classfile.ConstantPool { return g.pool }

// GetConstant returns the entry at index.
func (g *ConstantPoolGen) GetConstant(index uint16) (classfile.ConstantPoolEntry, error) {
	return g.pool.GetConstant(index)
}

// Size returns constant_pool_count.
func (g *ConstantPoolGen) Size() int { return g.pool.Count() }

// keyOf returns the de-duplication key of the entry at idx. Keys are built
// from resolved strings so entries compare by content, not by index.
func (g *ConstantPoolGen) keyOf(idx uint16, entry classfile.ConstantPoolEntry) (string, bool) {
	switch c := entry.(type) {
	case *classfile.ConstantUtf8:
		return "U" + c.Value, true
	case *classfile.ConstantInteger:
		return fmt.Sprintf("I%d", c.Value), true
	case *classfile.ConstantFloat:
		return fmt.Sprintf("F%08x", math.Float32bits(c.Value)), true
	case *classfile.ConstantLong:
		return fmt.Sprintf("J%d", c.Value), true
	case *classfile.ConstantDouble:
		return fmt.Sprintf("D%016x", math.Float64bits(c.Value)), true
	case *classfile.ConstantClass:
		name, err := g.pool.GetUtf8(c.NameIndex)
		return "C" + name, err == nil
	case *classfile.ConstantString:
		s, err := g.pool.GetUtf8(c.StringIndex)
		return "S" + s, err == nil
	case *classfile.ConstantNameAndType:
		name, err1 := g.pool.GetUtf8(c.NameIndex)
		sig, err2 := g.pool.GetUtf8(c.DescriptorIndex)
		return "N" + name + "\x00" + sig, err1 == nil && err2 == nil
	case classfile.MemberRef:
		info, err := g.pool.ResolveMemberRef(idx)
		if err != nil {
			return "", false
		}
		return refKey(entry.Tag(), info.ClassName, info.Name, info.Descriptor), true
	}
	return "", false
}

func refKey(tag uint8, class, name, sig string) string {
	return fmt.Sprintf("R%d:%s\x00%s\x00%s", tag, class, name, sig)
}

func (g *ConstantPoolGen) add(key string, entry classfile.ConstantPoolEntry) (uint16, error) {
	if idx, ok := g.index[key]; ok {
		return idx, nil
	}
	idx, err := g.pool.Add(entry)
	if err != nil {
		return 0, err
	}
	g.index[key] = idx
	return idx, nil
}

// LookupUtf8 returns the index of s if it is already in the pool.
func (g *ConstantPoolGen) LookupUtf8(s string) (uint16, bool) {
	idx, ok := g.index["U"+s]
	return idx, ok
}

// LookupClass returns the index of the Class entry for name, dotted or
// internal form.
func (g *ConstantPoolGen) LookupClass(name string) (uint16, bool) {
	idx, ok := g.index["C"+strings.ReplaceAll(name, ".", "/")]
	return idx, ok
}

// AddUtf8 adds a Utf8 entry.
func (g *ConstantPoolGen) AddUtf8(s string) (uint16, error) {
	return g.add("U"+s, &classfile.ConstantUtf8{Value: s})
}

// AddClass adds a Class entry. name may be dotted or internal; it is stored
// in internal form. Array classes are given by descriptor, e.g. "[I".
func (g *ConstantPoolGen) AddClass(name string) (uint16, error) {
	internal := strings.ReplaceAll(name, ".", "/")
	key := "C" + internal
	if idx, ok := g.index[key]; ok {
		return idx, nil
	}
	nameIndex, err := g.AddUtf8(internal)
	if err != nil {
		return 0, err
	}
	return g.add(key, &classfile.ConstantClass{NameIndex: nameIndex})
}

// AddReferenceType adds the Class entry naming t.
func (g *ConstantPoolGen) AddReferenceType(t ReferenceType) (uint16, error) {
	switch rt := t.(type) {
	case *ObjectType:
		return g.AddClass(rt.InternalName())
	case *ArrayType:
		return g.AddClass(rt.Signature())
	}
	return 0, fmt.Errorf("%w: %s is not a class or array type", ErrInvalidType, t)
}

// AddString adds a String entry.
func (g *ConstantPoolGen) AddString(s string) (uint16, error) {
	key := "S" + s
	if idx, ok := g.index[key]; ok {
		return idx, nil
	}
	utf8Index, err := g.AddUtf8(s)
	if err != nil {
		return 0, err
	}
	return g.add(key, &classfile.ConstantString{StringIndex: utf8Index})
}

// AddInteger adds an Integer entry.
func (g *ConstantPoolGen) AddInteger(v int32) (uint16, error) {
	return g.add(fmt.Sprintf("I%d", v), &classfile.ConstantInteger{Value: v})
}

// AddLong adds a Long entry, which occupies two slots.
func (g *ConstantPoolGen) AddLong(v int64) (uint16, error) {
	return g.add(fmt.Sprintf("J%d", v), &classfile.ConstantLong{Value: v})
}

// AddFloat adds a Float entry.
func (g *ConstantPoolGen) AddFloat(v float32) (uint16, error) {
	return g.add(fmt.Sprintf("F%08x", math.Float32bits(v)), &classfile.ConstantFloat{Value: v})
}

// AddDouble adds a Double entry, which occupies two slots.
func (g *ConstantPoolGen) AddDouble(v float64) (uint16, error) {
	return g.add(fmt.Sprintf("D%016x", math.Float64bits(v)), &classfile.ConstantDouble{Value: v})
}

// AddNameAndType adds a NameAndType entry.
func (g *ConstantPoolGen) AddNameAndType(name, sig string) (uint16, error) {
	key := "N" + name + "\x00" + sig
	if idx, ok := g.index[key]; ok {
		return idx, nil
	}
	nameIndex, err := g.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	sigIndex, err := g.AddUtf8(sig)
	if err != nil {
		return 0, err
	}
	return g.add(key, &classfile.ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: sigIndex})
}

func (g *ConstantPoolGen) addRef(tag uint8, class, name, sig string) (uint16, error) {
	internal := strings.ReplaceAll(class, ".", "/")
	key := refKey(tag, internal, name, sig)
	if idx, ok := g.index[key]; ok {
		return idx, nil
	}
	classIndex, err := g.AddClass(internal)
	if err != nil {
		return 0, err
	}
	natIndex, err := g.AddNameAndType(name, sig)
	if err != nil {
		return 0, err
	}
	var entry classfile.ConstantPoolEntry
	switch tag {
	case classfile.TagFieldref:
		entry = &classfile.ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}
	case classfile.TagMethodref:
		entry = &classfile.ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}
	default:
		entry = &classfile.ConstantInterfaceMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}
	}
	return g.add(key, entry)
}

// AddFieldref adds a Fieldref entry for class.name with descriptor sig.
func (g *ConstantPoolGen) AddFieldref(class, name, sig string) (uint16, error) {
	return g.addRef(classfile.TagFieldref, class, name, sig)
}

// AddMethodref adds a Methodref entry.
func (g *ConstantPoolGen) AddMethodref(class, name, sig string) (uint16, error) {
	return g.addRef(classfile.TagMethodref, class, name, sig)
}

// AddInterfaceMethodref adds an InterfaceMethodref entry.
func (g *ConstantPoolGen) AddInterfaceMethodref(class, name, sig string) (uint16, error) {
	return g.addRef(classfile.TagInterfaceMethodref, class, name, sig)
}
