package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"fortio.org/safecast"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

var tagNames = map[uint8]string{
	TagUtf8:               "Utf8",
	TagInteger:            "Integer",
	TagFloat:              "Float",
	TagLong:               "Long",
	TagDouble:             "Double",
	TagClass:              "Class",
	TagString:             "String",
	TagFieldref:           "Fieldref",
	TagMethodref:          "Methodref",
	TagInterfaceMethodref: "InterfaceMethodref",
	TagNameAndType:        "NameAndType",
	TagMethodHandle:       "MethodHandle",
	TagMethodType:         "MethodType",
	TagDynamic:            "Dynamic",
	TagInvokeDynamic:      "InvokeDynamic",
	TagModule:             "Module",
	TagPackage:            "Package",
}

// TagName returns the JVMS name of a constant pool tag.
func TagName(tag uint8) string {
	if name, ok := tagNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", tag)
}

// ConstantPool is a 1-indexed constant pool. Slot 0 is always unused and
// long/double entries are followed by an unusable nil slot.
//
// A pool is shared by every attribute and member built for one class. It is
// not safe for concurrent mutation.
type ConstantPool struct {
	entries []ConstantPoolEntry
}

// NewConstantPool returns a pool whose entry i (1-based) is entries[i-1].
// A nil element leaves that slot unused, which callers must do after every
// long or double entry.
func NewConstantPool(entries ...ConstantPoolEntry) *ConstantPool {
	cp := &ConstantPool{entries: make([]ConstantPoolEntry, 1, len(entries)+1)}
	cp.entries = append(cp.entries, entries...)
	return cp
}

// Count returns constant_pool_count, i.e. the number of slots including slot 0.
func (cp *ConstantPool) Count() int {
	if cp == nil {
		return 0
	}
	return len(cp.entries)
}

// Add appends an entry and returns its index. Long and double entries
// reserve the following slot as well.
func (cp *ConstantPool) Add(entry ConstantPoolEntry) (uint16, error) {
	if len(cp.entries) == 0 {
		cp.entries = append(cp.entries, nil)
	}
	index, err := safecast.Conv[uint16](len(cp.entries))
	if err != nil {
		return 0, fmt.Errorf("constant pool overflow: %w", err)
	}
	cp.entries = append(cp.entries, entry)
	if tag := entry.Tag(); tag == TagLong || tag == TagDouble {
		cp.entries = append(cp.entries, nil)
	}
	if len(cp.entries) > math.MaxUint16 {
		cp.entries = cp.entries[:index]
		return 0, fmt.Errorf("constant pool overflow at index %d", index)
	}
	return index, nil
}

// Set replaces the entry at index. The reserved slot after a long or double
// cannot be set, and a long or double needs an unused slot after index.
func (cp *ConstantPool) Set(index uint16, entry ConstantPoolEntry) error {
	if index == 0 || int(index) >= len(cp.entries) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	if isWide(cp.entries[index-1]) {
		return fmt.Errorf("%w: %d is reserved by the entry before it", ErrPoolLayout, index)
	}
	if isWide(entry) && (int(index)+1 >= len(cp.entries) || cp.entries[index+1] != nil) {
		return fmt.Errorf("%w: %s at %d has no unused slot after it", ErrPoolLayout, TagName(entry.Tag()), index)
	}
	cp.entries[index] = entry
	return nil
}

// isWide reports whether entry occupies two slots.
func isWide(entry ConstantPoolEntry) bool {
	if entry == nil {
		return false
	}
	tag := entry.Tag()
	return tag == TagLong || tag == TagDouble
}

// Copy returns a pool with the same entry values in fresh slots.
func (cp *ConstantPool) Copy() *ConstantPool {
	out := &ConstantPool{entries: make([]ConstantPoolEntry, len(cp.entries))}
	copy(out.entries, cp.entries)
	return out
}

// GetConstant returns the entry at index.
func (cp *ConstantPool) GetConstant(index uint16) (ConstantPoolEntry, error) {
	if cp == nil || index == 0 || int(index) >= len(cp.entries) || cp.entries[index] == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	return cp.entries[index], nil
}

// GetConstantTagged returns the entry at index, failing with
// ErrPoolTypeMismatch if it does not carry tag.
func (cp *ConstantPool) GetConstantTagged(index uint16, tag uint8) (ConstantPoolEntry, error) {
	entry, err := cp.GetConstant(index)
	if err != nil {
		return nil, err
	}
	if entry.Tag() != tag {
		return nil, mismatch(index, entry, TagName(tag))
	}
	return entry, nil
}

func mismatch(index uint16, entry ConstantPoolEntry, want string) error {
	return fmt.Errorf("%w: index %d is %s, want %s", ErrPoolTypeMismatch, index, TagName(entry.Tag()), want)
}

// GetUtf8 returns the Utf8 string at the given constant pool index.
func (cp *ConstantPool) GetUtf8(index uint16) (string, error) {
	entry, err := cp.GetConstant(index)
	if err != nil {
		return "", err
	}
	utf8, ok := entry.(*ConstantUtf8)
	if !ok {
		return "", mismatch(index, entry, "Utf8")
	}
	return utf8.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry,
// in internal (slash separated) form.
func (cp *ConstantPool) GetClassName(classIndex uint16) (string, error) {
	entry, err := cp.GetConstant(classIndex)
	if err != nil {
		return "", err
	}
	class, ok := entry.(*ConstantClass)
	if !ok {
		return "", mismatch(classIndex, entry, "Class")
	}
	return cp.GetUtf8(class.NameIndex)
}

// GetNameAndType returns the CONSTANT_NameAndType entry at index.
func (cp *ConstantPool) GetNameAndType(index uint16) (*ConstantNameAndType, error) {
	entry, err := cp.GetConstant(index)
	if err != nil {
		return nil, err
	}
	nat, ok := entry.(*ConstantNameAndType)
	if !ok {
		return nil, mismatch(index, entry, "NameAndType")
	}
	return nat, nil
}

// GetMemberRef returns the Fieldref, Methodref or InterfaceMethodref at index.
func (cp *ConstantPool) GetMemberRef(index uint16) (MemberRef, error) {
	entry, err := cp.GetConstant(index)
	if err != nil {
		return nil, err
	}
	ref, ok := entry.(MemberRef)
	if !ok {
		return nil, mismatch(index, entry, "member reference")
	}
	return ref, nil
}

// GetConstantString returns the string behind a Class, String, Module,
// Package or MethodType entry. tag must match the entry's tag.
func (cp *ConstantPool) GetConstantString(index uint16, tag uint8) (string, error) {
	entry, err := cp.GetConstantTagged(index, tag)
	if err != nil {
		return "", err
	}
	var utf8Index uint16
	switch c := entry.(type) {
	case *ConstantClass:
		utf8Index = c.NameIndex
	case *ConstantString:
		utf8Index = c.StringIndex
	case *ConstantModule:
		utf8Index = c.NameIndex
	case *ConstantPackage:
		utf8Index = c.NameIndex
	case *ConstantMethodType:
		utf8Index = c.DescriptorIndex
	default:
		return "", fmt.Errorf("%w: %s has no string form", ErrPoolTypeMismatch, TagName(tag))
	}
	return cp.GetUtf8(utf8Index)
}

// MemberRefInfo holds a resolved field or method reference. ClassName is in
// internal form.
type MemberRefInfo struct {
	Tag        uint8
	ClassName  string
	Name       string
	Descriptor string
}

// ResolveMemberRef resolves any member reference entry through its
// NameAndType and Class entries.
func (cp *ConstantPool) ResolveMemberRef(index uint16) (*MemberRefInfo, error) {
	ref, err := cp.GetMemberRef(index)
	if err != nil {
		return nil, err
	}
	classIndex, natIndex := ref.RefIndices()

	className, err := cp.GetClassName(classIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving %s class: %w", TagName(ref.Tag()), err)
	}

	nat, err := cp.GetNameAndType(natIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving %s name and type: %w", TagName(ref.Tag()), err)
	}

	name, err := cp.GetUtf8(nat.NameIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving member name: %w", err)
	}

	descriptor, err := cp.GetUtf8(nat.DescriptorIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving member descriptor: %w", err)
	}

	return &MemberRefInfo{
		Tag:        ref.Tag(),
		ClassName:  className,
		Name:       name,
		Descriptor: descriptor,
	}, nil
}

func (cp *ConstantPool) resolveTagged(index uint16, tag uint8) (*MemberRefInfo, error) {
	if _, err := cp.GetConstantTagged(index, tag); err != nil {
		return nil, err
	}
	return cp.ResolveMemberRef(index)
}

// ResolveMethodref resolves a CONSTANT_Methodref entry.
func (cp *ConstantPool) ResolveMethodref(index uint16) (*MemberRefInfo, error) {
	return cp.resolveTagged(index, TagMethodref)
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func (cp *ConstantPool) ResolveInterfaceMethodref(index uint16) (*MemberRefInfo, error) {
	return cp.resolveTagged(index, TagInterfaceMethodref)
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func (cp *ConstantPool) ResolveFieldref(index uint16) (*MemberRefInfo, error) {
	return cp.resolveTagged(index, TagFieldref)
}

// parseConstantPool reads constant_pool_count-1 entries from the reader.
func parseConstantPool(r io.Reader, count uint16) (*ConstantPool, error) {
	pool := make([]ConstantPoolEntry, count)
	// pool[0] is unused (constant pool is 1-indexed)

	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("reading constant pool tag at index %d: %w", i, err)
		}

		switch tag {
		case TagUtf8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, fmt.Errorf("reading Utf8 length at index %d: %w", i, err)
			}
			bytes := make([]byte, length)
			if _, err := io.ReadFull(r, bytes); err != nil {
				return nil, fmt.Errorf("reading Utf8 bytes at index %d: %w", i, err)
			}
			pool[i] = &ConstantUtf8{Value: string(bytes)}

		case TagInteger:
			var val int32
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, fmt.Errorf("reading Integer at index %d: %w", i, err)
			}
			pool[i] = &ConstantInteger{Value: val}

		case TagFloat:
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Float at index %d: %w", i, err)
			}
			pool[i] = &ConstantFloat{Value: math.Float32frombits(bits)}

		case TagLong:
			var val int64
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, fmt.Errorf("reading Long at index %d: %w", i, err)
			}
			pool[i] = &ConstantLong{Value: val}
			i++ // long takes 2 slots

		case TagDouble:
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Double at index %d: %w", i, err)
			}
			pool[i] = &ConstantDouble{Value: math.Float64frombits(bits)}
			i++ // double takes 2 slots

		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			var ref uint16
			if err := binary.Read(r, binary.BigEndian, &ref); err != nil {
				return nil, fmt.Errorf("reading %s at index %d: %w", TagName(tag), i, err)
			}
			pool[i] = singleRefEntry(tag, ref)

		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			var first, second uint16
			if err := binary.Read(r, binary.BigEndian, &first); err != nil {
				return nil, fmt.Errorf("reading %s at index %d: %w", TagName(tag), i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &second); err != nil {
				return nil, fmt.Errorf("reading %s at index %d: %w", TagName(tag), i, err)
			}
			pool[i] = pairRefEntry(tag, first, second)

		case TagMethodHandle:
			var kind uint8
			var ref uint16
			if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
				return nil, fmt.Errorf("reading MethodHandle kind at index %d: %w", i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &ref); err != nil {
				return nil, fmt.Errorf("reading MethodHandle reference at index %d: %w", i, err)
			}
			pool[i] = &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: ref}

		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
	}

	return &ConstantPool{entries: pool}, nil
}

func singleRefEntry(tag uint8, ref uint16) ConstantPoolEntry {
	switch tag {
	case TagClass:
		return &ConstantClass{NameIndex: ref}
	case TagString:
		return &ConstantString{StringIndex: ref}
	case TagMethodType:
		return &ConstantMethodType{DescriptorIndex: ref}
	case TagModule:
		return &ConstantModule{NameIndex: ref}
	default:
		return &ConstantPackage{NameIndex: ref}
	}
}

func pairRefEntry(tag uint8, first, second uint16) ConstantPoolEntry {
	switch tag {
	case TagFieldref:
		return &ConstantFieldref{ClassIndex: first, NameAndTypeIndex: second}
	case TagMethodref:
		return &ConstantMethodref{ClassIndex: first, NameAndTypeIndex: second}
	case TagInterfaceMethodref:
		return &ConstantInterfaceMethodref{ClassIndex: first, NameAndTypeIndex: second}
	case TagNameAndType:
		return &ConstantNameAndType{NameIndex: first, DescriptorIndex: second}
	case TagDynamic:
		return &ConstantDynamic{BootstrapMethodAttrIndex: first, NameAndTypeIndex: second}
	default:
		return &ConstantInvokeDynamic{BootstrapMethodAttrIndex: first, NameAndTypeIndex: second}
	}
}

// writeConstantPool writes constant_pool_count followed by every entry.
func writeConstantPool(w *writer, cp *ConstantPool) error {
	count, err := safecast.Conv[uint16](cp.Count())
	if err != nil {
		return fmt.Errorf("constant pool count: %w", err)
	}
	w.u16(count)

	for i := 1; i < len(cp.entries); i++ {
		entry, wideBefore := cp.entries[i], isWide(cp.entries[i-1])
		if entry == nil {
			if !wideBefore {
				return fmt.Errorf("%w: unused slot %d does not follow a long or double", ErrPoolLayout, i)
			}
			continue
		}
		if wideBefore {
			return fmt.Errorf("%w: %s at %d occupies the slot reserved by the entry before it",
				ErrPoolLayout, TagName(entry.Tag()), i)
		}
		if isWide(entry) && i == len(cp.entries)-1 {
			return fmt.Errorf("%w: %s at %d is the last slot", ErrPoolLayout, TagName(entry.Tag()), i)
		}
		w.u8(entry.Tag())
		switch c := entry.(type) {
		case *ConstantUtf8:
			length, err := safecast.Conv[uint16](len(c.Value))
			if err != nil {
				return fmt.Errorf("Utf8 at index %d too long: %w", i, err)
			}
			w.u16(length)
			w.bytes([]byte(c.Value))
		case *ConstantInteger:
			w.u32(uint32(c.Value))
		case *ConstantFloat:
			w.u32(math.Float32bits(c.Value))
		case *ConstantLong:
			w.u64(uint64(c.Value))
		case *ConstantDouble:
			w.u64(math.Float64bits(c.Value))
		case *ConstantClass:
			w.u16(c.NameIndex)
		case *ConstantString:
			w.u16(c.StringIndex)
		case *ConstantMethodType:
			w.u16(c.DescriptorIndex)
		case *ConstantModule:
			w.u16(c.NameIndex)
		case *ConstantPackage:
			w.u16(c.NameIndex)
		case *ConstantFieldref:
			w.u16(c.ClassIndex)
			w.u16(c.NameAndTypeIndex)
		case *ConstantMethodref:
			w.u16(c.ClassIndex)
			w.u16(c.NameAndTypeIndex)
		case *ConstantInterfaceMethodref:
			w.u16(c.ClassIndex)
			w.u16(c.NameAndTypeIndex)
		case *ConstantNameAndType:
			w.u16(c.NameIndex)
			w.u16(c.DescriptorIndex)
		case *ConstantDynamic:
			w.u16(c.BootstrapMethodAttrIndex)
			w.u16(c.NameAndTypeIndex)
		case *ConstantInvokeDynamic:
			w.u16(c.BootstrapMethodAttrIndex)
			w.u16(c.NameAndTypeIndex)
		case *ConstantMethodHandle:
			w.u8(c.ReferenceKind)
			w.u16(c.ReferenceIndex)
		default:
			return fmt.Errorf("cannot encode constant pool entry %s at index %d", TagName(entry.Tag()), i)
		}
	}
	return nil
}
