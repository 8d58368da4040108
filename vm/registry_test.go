package vm

import (
	"strings"
	"testing"
)

func mustExec(t *testing.T, e *Engine, src string) {
	t.Helper()
	if err := e.ExecScript("test.sta", src); err != nil {
		t.Fatalf("ExecScript failed: %v", err)
	}
}

func execErr(t *testing.T, e *Engine, src string) *ScriptError {
	t.Helper()
	err := e.ExecScript("test.sta", src)
	if err == nil {
		t.Fatal("ExecScript should have failed")
	}
	return err
}

func wantKind(t *testing.T, err *ScriptError, kind ErrorKind) {
	t.Helper()
	if err.Kind != kind {
		t.Errorf("error kind: got %s, want %s (%s)", err.Kind, kind, err.Message)
	}
}

func TestRegisterClass_Basic(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Point
  var x: number
  var y: number
endclass
`)
	cl := e.Classes().Lookup("Point")
	if cl == nil {
		t.Fatal("Point should be registered")
	}
	if len(cl.Members) != 2 {
		t.Fatalf("Members: got %d, want 2", len(cl.Members))
	}
	if cl.Members[0].Name != "x" || cl.Members[1].Name != "y" {
		t.Errorf("member order: got %s, %s", cl.Members[0].Name, cl.Members[1].Name)
	}
	if cl.NewMethod == nil {
		t.Fatal("default constructor should be synthesized")
	}
	if len(cl.NewMethod.Params) != 2 {
		t.Errorf("constructor params: got %d, want 2", len(cl.NewMethod.Params))
	}
	for _, p := range cl.NewMethod.Params {
		if !p.IsMember || !p.HasDflt {
			t.Errorf("param %s should be an optional member parameter", p.Name)
		}
	}
}

func TestRegisterClass_NameMustBeUppercase(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, "class point\nendclass\n")
	wantKind(t, err, ErrInvalidClassName)
}

func TestRegisterClass_IdenticalReloadIsNoop(t *testing.T) {
	e := NewEngine()
	src := `
class Point
  var x: number
endclass
`
	mustExec(t, e, src)
	first := e.Classes().Lookup("Point")
	mustExec(t, e, src)
	if e.Classes().Lookup("Point") != first {
		t.Error("identical reload should keep the registered class")
	}
}

func TestRegisterClass_ChangedRedefinitionFails(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, "class Point\n  var x: number\nendclass\n")
	err := execErr(t, e, "class Point\n  var y: number\nendclass\n")
	wantKind(t, err, ErrClassRedefined)
}

func TestRegisterClass_DuplicateMemberUnderscoreFolded(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
class C
  var count: number
  var _count: number
endclass
`)
	wantKind(t, err, ErrDuplicateVariable)
}

func TestRegisterClass_DuplicateAcrossLineage(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
class Base
  var name: string
endclass
class Child extends Base
  var _name: string
endclass
`)
	wantKind(t, err, ErrDuplicateVariable)
	if !strings.Contains(err.Message, "Base") {
		t.Errorf("message should name the conflicting class: %s", err.Message)
	}
}

func TestRegisterClass_ExtendsUnknown(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, "class C extends Missing\nendclass\n")
	wantKind(t, err, ErrClassNotFound)
}

func TestRegisterClass_ClassCannotExtendInterface(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
interface Shape
  def Area(): float
endinterface
class C extends Shape
endclass
`)
	wantKind(t, err, ErrCannotExtend)
}

func TestRegisterClass_OverrideChecksSignature(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
class Base
  def Describe(): string
    return 'base'
  enddef
endclass
class Child extends Base
  def Describe(): number
    return 0
  enddef
endclass
`)
	wantKind(t, err, ErrSignatureMismatch)
}

func TestRegisterClass_OverrideKeepsVtableIndex(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Base
  def First(): string
    return 'a'
  enddef
  def Second(): string
    return 'b'
  enddef
endclass
class Child extends Base
  def Second(): string
    return 'B'
  enddef
endclass
`)
	base := e.Classes().Lookup("Base")
	child := e.Classes().Lookup("Child")
	if got := child.FindMethod("Second").Index; got != base.FindMethod("Second").Index {
		t.Errorf("override should reuse the parent's vtable index, got %d", got)
	}
	if child.FindMethod("Second").DefClass != child {
		t.Error("override should be owned by the child")
	}
	if child.FindMethod("First").DefClass != base {
		t.Error("inherited method should keep the base as defining class")
	}
}

func TestRegisterClass_AbstractMethodsMustBeImplemented(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
abstract class Shape
  abstract def Area(): float
endclass
class Circle extends Shape
endclass
`)
	wantKind(t, err, ErrAbstractMissing)
}

func TestRegisterClass_ConstructorShorthandMustNameMember(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
class C
  var x: number
  def new(this.missing)
  enddef
endclass
`)
	wantKind(t, err, ErrShorthandInvalid)
}

func TestRegisterClass_AbstractClassCannotDeclareConstructor(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
abstract class A
  var x: number = 0
  def new(this.x)
  enddef
endclass
`)
	wantKind(t, err, ErrConstructorInvalid)
}

func TestRegisterClass_ConstructorCannotReturnValue(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
class C
  var x: number = 0
  def new()
    if this.x == 0
      return 5
    endif
  enddef
endclass
`)
	wantKind(t, err, ErrConstructorInvalid)
}

func TestRegisterClass_ShorthandDefaultMustBeNone(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
class C
  var x: number = 0
  def new(this.x = 3)
  enddef
endclass
`)
	wantKind(t, err, ErrShorthandInvalid)
}

func TestRegisterClass_ShorthandOnlyInConstructor(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
class C
  var x: number = 0
  def Set(this.x)
  enddef
endclass
`)
	wantKind(t, err, ErrShorthandInvalid)
}

func TestRegisterClass_ConstructorArgCannotShadowMember(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
class C
  var x: number
  def new(x: number)
  enddef
endclass
`)
	wantKind(t, err, ErrArgShadowsMember)
}

func TestRegisterClass_ClassMethodsNotInherited(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Base
  static def Make(): number
    return 1
  enddef
endclass
class Child extends Base
endclass
`)
	child := e.Classes().Lookup("Child")
	if child.FindClassMethod("Make") != nil {
		t.Error("class methods should not be inherited")
	}
	if e.Classes().Lookup("Base").FindClassMethod("Make") == nil {
		t.Error("Base should keep its class method")
	}
}

func TestRegisterClass_ReservedMemberName(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, "class C\n  var __secret: number\nendclass\n")
	wantKind(t, err, ErrReservedName)
}

func TestRegisterClass_ClassVarInitialized(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Counter
  static var total: number = 41
endclass
`)
	cl := e.Classes().Lookup("Counter")
	if len(cl.ClassVars) != 1 || cl.ClassVars[0].Num != 41 {
		t.Fatalf("class var should be initialized to 41, got %v", cl.ClassVars)
	}
}

func TestRegisterClass_SelfReferentialType(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Node
  public var next: Node
  def Link(other: Node)
    this.next = other
  enddef
endclass
var a = Node.new()
var b = Node.new()
a.Link(b)
echo instanceof(a.next, Node)
`)
	if got := lastMessage(t, e); got != "true" {
		t.Errorf("self-typed member: got %q", got)
	}
}

func TestRegisterClass_RolledBackOnError(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
class Broken
  var x: number = 0
  var x: string = ''
endclass
`)
	wantKind(t, err, ErrDuplicateVariable)
	if e.Classes().Lookup("Broken") != nil {
		t.Error("failed registration should leave no class behind")
	}
}
