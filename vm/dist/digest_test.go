package dist

import (
	"testing"

	"github.com/chazu/starling/vm"
)

func registerClass(t *testing.T, e *vm.Engine, src string) {
	t.Helper()
	if err := e.ExecScript("test.sta", src); err != nil {
		t.Fatalf("exec: %v", err)
	}
}

const pointSrc = `
class Point
  var x: number = 0
  var y: number = 0
  def Move(dx: number, dy: number)
    this.x = this.x + dx
    this.y = this.y + dy
  enddef
endclass
`

func TestDigestClass_Deterministic(t *testing.T) {
	a := vm.NewEngine()
	b := vm.NewEngine()
	registerClass(t, a, pointSrc)
	registerClass(t, b, pointSrc)

	da := DigestClass(a.Classes().Lookup("Point"))
	db := DigestClass(b.Classes().Lookup("Point"))
	if da.Hash != db.Hash {
		t.Errorf("same class produced different hashes:\n%x\n%x", da.Hash, db.Hash)
	}
	if len(da.MethodHashes) != 2 {
		t.Errorf("method hashes = %d, want 2 (Move and new)", len(da.MethodHashes))
	}
}

func TestDigestClass_SensitiveToSignature(t *testing.T) {
	a := vm.NewEngine()
	b := vm.NewEngine()
	registerClass(t, a, `
class C
  def F(n: number)
  enddef
endclass
`)
	registerClass(t, b, `
class C
  def F(n: string)
  enddef
endclass
`)
	da := DigestClass(a.Classes().Lookup("C"))
	db := DigestClass(b.Classes().Lookup("C"))
	if da.Hash == db.Hash {
		t.Error("changing a parameter type should change the class hash")
	}
}

func TestDigestClass_RecordsHeritage(t *testing.T) {
	e := vm.NewEngine()
	registerClass(t, e, `
interface Shape
  def Area(): float
endinterface
class Circle implements Shape
  var r: float = 1.0
  def Area(): float
    return 3.0 * this.r * this.r
  enddef
endclass
`)
	d := DigestClass(e.Classes().Lookup("Circle"))
	if len(d.Interfaces) != 1 || d.Interfaces[0] != "Shape" {
		t.Errorf("interfaces = %v, want [Shape]", d.Interfaces)
	}
	if d.Parent != "" {
		t.Errorf("parent = %q, want empty", d.Parent)
	}
}

func TestHashClass_OrderIndependentForMethods(t *testing.T) {
	h1 := HashMethod("C", "A", "A(): void")
	h2 := HashMethod("C", "B", "B(): void")
	a := HashClass("C", "", nil, nil, nil, [][32]byte{h1, h2})
	b := HashClass("C", "", nil, nil, nil, [][32]byte{h2, h1})
	if a != b {
		t.Error("method hash order should not affect the class hash")
	}
}

func TestWire_ChunkRoundTripAndVerify(t *testing.T) {
	e := vm.NewEngine()
	registerClass(t, e, pointSrc)
	cl := e.Classes().Lookup("Point")
	chunk := ClassToChunk(cl, nil)

	data, err := MarshalChunk(chunk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalChunk(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Hash != chunk.Hash || got.Type != ChunkClass {
		t.Errorf("round trip changed chunk identity")
	}

	// verification re-registers the source and compares digests
	err = VerifyChunkClass(got, func(source string) ([32]byte, error) {
		e2 := vm.NewEngine()
		if serr := e2.ExecScript("verify.sta", source); serr != nil {
			return [32]byte{}, serr
		}
		return DigestClass(e2.Classes().Lookup("Point")).Hash, nil
	})
	if err != nil {
		t.Errorf("verify: %v", err)
	}

	// a chunk whose declared hash does not match its source must be rejected
	got.Hash[0] ^= 0xff
	err = VerifyChunkClass(got, func(source string) ([32]byte, error) {
		e2 := vm.NewEngine()
		if serr := e2.ExecScript("verify.sta", source); serr != nil {
			return [32]byte{}, serr
		}
		return DigestClass(e2.Classes().Lookup("Point")).Hash, nil
	})
	if err == nil {
		t.Error("chunk with a forged hash should fail verification")
	}
}
