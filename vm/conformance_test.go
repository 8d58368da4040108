package vm

import "testing"

func TestConformance_MissingMethod(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
interface Shape
  def Area(): float
endinterface
class Square implements Shape
  var side: float
endclass
`)
	wantKind(t, err, ErrMethodNotImplemented)
}

func TestConformance_SignatureMustMatchExactly(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
interface Shape
  def Area(): float
endinterface
class Square implements Shape
  var side: float
  def Area(): number
    return 0
  enddef
endclass
`)
	wantKind(t, err, ErrSignatureMismatch)
}

func TestConformance_VariableTypeMustMatch(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
interface Named
  var name: string
endinterface
class Thing implements Named
  var name: number
endclass
`)
	wantKind(t, err, ErrTypeMismatch)
}

func TestConformance_InheritedMethodSatisfiesInterface(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
interface Shape
  def Area(): float
endinterface
class Base
  def Area(): float
    return 1.0
  enddef
endclass
class Square extends Base implements Shape
endclass
`)
	sq := e.Classes().Lookup("Square")
	shape := e.Classes().Lookup("Shape")
	_, methods := sq.ItfIndex(shape)
	if methods == nil {
		t.Fatal("Square should carry index tables for Shape")
	}
	if got := sq.Methods[methods[0]].Name; got != "Area" {
		t.Errorf("interface method 0 should map to Area, got %s", got)
	}
}

func TestConformance_SuperInterfaceRequired(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
interface Closeable
  def Close()
endinterface
interface Stream extends Closeable
  def Read(): string
endinterface
class File implements Stream
  def Read(): string
    return ''
  enddef
endclass
`)
	wantKind(t, err, ErrMethodNotImplemented)
}

func TestInstanceOf_WalksExtendsAndInterfaces(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
interface Closeable
  def Close()
endinterface
class Base implements Closeable
  def Close()
  enddef
endclass
class Child extends Base
endclass
`)
	child := e.Classes().Lookup("Child")
	base := e.Classes().Lookup("Base")
	closeable := e.Classes().Lookup("Closeable")
	if !child.InstanceOf(base) {
		t.Error("Child should be an instance of Base")
	}
	if !child.InstanceOf(closeable) {
		t.Error("Child should be an instance of Closeable through Base")
	}
	if base.InstanceOf(child) {
		t.Error("Base should not be an instance of Child")
	}
}
