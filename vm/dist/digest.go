package dist

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/chazu/starling/vm"
)

// ClassDigest is the structural summary of a registered class: everything
// that affects its public shape, plus the hashes of its method signatures.
// Two classes with the same digest hash are interchangeable on the wire.
type ClassDigest struct {
	Name         string     `cbor:"1,keyasint"`
	Parent       string     `cbor:"2,keyasint,omitempty"`
	Interfaces   []string   `cbor:"3,keyasint,omitempty"`
	Variables    []string   `cbor:"4,keyasint,omitempty"`
	ClassVars    []string   `cbor:"5,keyasint,omitempty"`
	MethodHashes [][32]byte `cbor:"6,keyasint,omitempty"`
	Hash         [32]byte   `cbor:"7,keyasint"`
}

// HashMethod computes the content hash of one method: the owning class,
// the method name, and the full signature.
func HashMethod(className, name, signature string) [32]byte {
	var buf []byte
	buf = append(buf, 0x02)
	buf = appendString(buf, className)
	buf = appendString(buf, name)
	buf = appendString(buf, signature)
	return sha256.Sum256(buf)
}

// HashClass computes the SHA-256 of a class's structure. Variable names and
// method hashes are sorted so declaration order does not change the hash.
func HashClass(name, parent string, interfaces, variables, classVars []string, methodHashes [][32]byte) [32]byte {
	sorted := make([][32]byte, len(methodHashes))
	copy(sorted, methodHashes)
	sort.Slice(sorted, func(i, j int) bool {
		for k := 0; k < 32; k++ {
			if sorted[i][k] != sorted[j][k] {
				return sorted[i][k] < sorted[j][k]
			}
		}
		return false
	})

	var buf []byte
	buf = append(buf, 0x01)
	buf = appendString(buf, name)
	buf = appendString(buf, parent)
	buf = appendStringSlice(buf, interfaces)
	buf = appendStringSlice(buf, variables)
	buf = appendStringSlice(buf, classVars)

	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(sorted)))
	buf = append(buf, n[:]...)
	for _, h := range sorted {
		buf = append(buf, h[:]...)
	}
	return sha256.Sum256(buf)
}

// DigestClass builds a ClassDigest from a registered class. Inherited
// members are included: they are part of the object layout a receiver
// must reproduce.
func DigestClass(cl *vm.Class) *ClassDigest {
	d := &ClassDigest{Name: cl.Name}
	if cl.Extends != nil {
		d.Parent = cl.Extends.Name
	}
	for _, itf := range cl.Impls {
		d.Interfaces = append(d.Interfaces, itf.Name)
	}
	for _, m := range cl.Members {
		d.Variables = append(d.Variables, m.Name)
	}
	for _, m := range cl.ClassMembers {
		d.ClassVars = append(d.ClassVars, m.Name)
	}
	for _, m := range cl.Methods {
		d.MethodHashes = append(d.MethodHashes,
			HashMethod(m.DefClass.Name, m.Name, m.Signature()))
	}
	for _, m := range cl.ClassMethods {
		d.MethodHashes = append(d.MethodHashes,
			HashMethod(cl.Name, m.Name, m.Signature()))
	}
	if cl.NewMethod != nil {
		d.MethodHashes = append(d.MethodHashes,
			HashMethod(cl.Name, "new", cl.NewMethod.Signature()))
	}
	d.Hash = HashClass(d.Name, d.Parent, d.Interfaces, d.Variables, d.ClassVars, d.MethodHashes)
	return d
}

// ClassToChunk packages a registered class for the wire, carrying its
// declaration source so the receiver can re-register and verify.
func ClassToChunk(cl *vm.Class, deps [][32]byte) *Chunk {
	d := DigestClass(cl)
	return &Chunk{
		Hash:         d.Hash,
		Type:         ChunkClass,
		Content:      cl.Text,
		Dependencies: deps,
	}
}

func appendString(buf []byte, s string) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	buf = append(buf, n[:]...)
	return append(buf, s...)
}

func appendStringSlice(buf []byte, ss []string) []byte {
	cp := make([]string, len(ss))
	copy(cp, ss)
	sort.Strings(cp)
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(cp)))
	buf = append(buf, n[:]...)
	for _, s := range cp {
		buf = appendString(buf, s)
	}
	return buf
}
