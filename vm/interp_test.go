package vm

import "testing"

func evalIn(t *testing.T, e *Engine, expr string) Value {
	t.Helper()
	v, err := e.EvalExpr("test.sta", expr)
	if err != nil {
		t.Fatalf("EvalExpr(%q) failed: %v", expr, err)
	}
	return v
}

func lastMessage(t *testing.T, e *Engine) string {
	t.Helper()
	if len(e.Messages) == 0 {
		t.Fatal("no messages")
	}
	return e.Messages[len(e.Messages)-1]
}

func TestNew_DefaultConstructorKeepsInitializers(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Point
  var x: number = 7
  var y: number = 9
endclass
var a = Point.new()
var b = Point.new(1)
var c = Point.new(none, 2)
echo string(a) string(b) string(c)
`)
	want := "object of Point {x: 7, y: 9} object of Point {x: 1, y: 9} object of Point {x: 7, y: 2}"
	if got := lastMessage(t, e); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNew_DeclaredConstructorRunsBody(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Rect
  var w: number
  var h: number
  var area: number
  def new(this.w, this.h)
    this.area = this.w * this.h
  enddef
endclass
var r = Rect.new(3, 4)
echo r.area
`)
	if got := lastMessage(t, e); got != "12" {
		t.Errorf("area: got %q, want 12", got)
	}
}

func TestNew_AbstractAndInterfaceCannotInstantiate(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
abstract class Shape
  abstract def Area(): float
endclass
interface Named
  var name: string
endinterface
`)
	_, err := e.EvalExpr("test.sta", "Shape.new()")
	if err == nil {
		t.Fatal("instantiating an abstract class should fail")
	}
	wantKind(t, err, ErrAbstractInstantiate)
	_, err = e.EvalExpr("test.sta", "Named.new()")
	if err == nil {
		t.Fatal("instantiating an interface should fail")
	}
	wantKind(t, err, ErrAbstractInstantiate)
}

func TestMethodDispatch_VirtualThroughBaseReference(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Animal
  def Speak(): string
    return 'generic'
  enddef
  def Describe(): string
    return this.Speak()
  enddef
endclass
class Dog extends Animal
  def Speak(): string
    return 'woof'
  enddef
endclass
var d = Dog.new()
echo d.Describe()
`)
	if got := lastMessage(t, e); got != "woof" {
		t.Errorf("dispatch: got %q, want woof", got)
	}
}

func TestSuper_CallsParentImplementation(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Animal
  def Speak(): string
    return 'generic'
  enddef
endclass
class Dog extends Animal
  def Speak(): string
    return super.Speak() .. '+woof'
  enddef
endclass
echo Dog.new().Speak()
`)
	if got := lastMessage(t, e); got != "generic+woof" {
		t.Errorf("super call: got %q", got)
	}
}

func TestString_ClassAndObjectRendering(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Point
  var x: number = 1
  var y: string = 'hi'
endclass
echo string(Point)
echo string(Point.new())
`)
	if got := e.Messages[0]; got != "class Point" {
		t.Errorf("class rendering: got %q", got)
	}
	if got := e.Messages[1]; got != "object of Point {x: 1, y: 'hi'}" {
		t.Errorf("object rendering: got %q", got)
	}
}

func TestEquality_StructuralAndIdentity(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Point
  var x: number = 0
endclass
var a = Point.new(1)
var b = Point.new(1)
var c = a
echo a == b
echo a is b
echo a is c
`)
	if e.Messages[0] != "true" {
		t.Error("objects with equal slots should compare equal")
	}
	if e.Messages[1] != "false" {
		t.Error("distinct allocations should not be identical")
	}
	if e.Messages[2] != "true" {
		t.Error("aliases should be identical")
	}
}

func TestNullObject_AccessFails(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Point
  var x: number = 0
endclass
var p: Point = null
`)
	_, err := e.EvalExpr("test.sta", "p.x")
	if err == nil {
		t.Fatal("member access on a null object should fail")
	}
	wantKind(t, err, ErrNullObject)
}

func TestClassVar_BareNameWalksLineageQualifiedDoesNot(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Base
  static var tag: string = 'base'
  def BaseTag(): string
    return tag
  enddef
endclass
class Child extends Base
  def ChildTag(): string
    return tag
  enddef
endclass
var c = Child.new()
echo c.BaseTag() c.ChildTag()
`)
	if got := lastMessage(t, e); got != "base base" {
		t.Errorf("bare-name class var lookup: got %q", got)
	}
	_, err := e.EvalExpr("test.sta", "Child.tag")
	if err == nil {
		t.Fatal("qualified class var access should not walk the lineage")
	}
	wantKind(t, err, ErrVariableNotFound)
}

func TestClassVar_ShadowingInSubclass(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Base
  static var tag: string = 'base'
endclass
class Child extends Base
  static var tag: string = 'child'
  def Tag(): string
    return tag
  enddef
endclass
echo Child.new().Tag()
echo Base.tag
echo Child.tag
`)
	if e.Messages[0] != "child" {
		t.Errorf("bare name should find the nearest class var, got %q", e.Messages[0])
	}
	if e.Messages[1] != "base" || e.Messages[2] != "child" {
		t.Errorf("qualified access should be per class: %v", e.Messages[1:])
	}
}

func TestClassVar_CannotAccessThroughObject(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Counter
  static var total: number = 0
endclass
var c = Counter.new()
`)
	_, err := e.EvalExpr("test.sta", "c.total")
	if err == nil {
		t.Fatal("class var access through an object should fail")
	}
	wantKind(t, err, ErrClassQualifier)
}

func TestClassVar_ObjectQualifierAllowedInsideDeclaringClass(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Counter
  static var total: number = 0
  def BumpVia(other: Counter)
    other.total = other.total + 1
  enddef
endclass
var a = Counter.new()
var b = Counter.new()
a.BumpVia(b)
echo Counter.total
`)
	if got := lastMessage(t, e); got != "1" {
		t.Errorf("class var through object inside declaring class: got %q", got)
	}
}

func TestObjectVar_CannotAccessThroughClass(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Point
  var x: number = 0
endclass
`)
	_, err := e.EvalExpr("test.sta", "Point.x")
	if err == nil {
		t.Fatal("object var access through the class should fail")
	}
	wantKind(t, err, ErrObjectQualifier)
}

func TestInstanceof_Builtin(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
interface Closeable
  def Close()
endinterface
class File implements Closeable
  def Close()
  enddef
endclass
class Other
endclass
var f = File.new()
echo instanceof(f, File) instanceof(f, Closeable) instanceof(f, Other)
`)
	if got := lastMessage(t, e); got != "true true false" {
		t.Errorf("instanceof: got %q", got)
	}
}

func TestTypename_Builtin(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Point
  var x: number = 0
endclass
echo typename(Point.new()) typename(Point) typename(42) typename('s')
`)
	if got := lastMessage(t, e); got != "object<Point> class<Point> number string" {
		t.Errorf("typename: got %q", got)
	}
}

func TestTryCatch_CatchesScriptErrors(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Point
  var x: number = 0
endclass
var p: Point = null
var caught = ''
try
  echo p.x
catch err
  caught = 'yes'
endtry
echo caught
`)
	if got := lastMessage(t, e); got != "yes" {
		t.Errorf("catch: got %q", got)
	}
}

func TestScriptFunc_DefAndCall(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
def Twice(n: number): number
  return n * 2
enddef
echo Twice(21)
`)
	if got := lastMessage(t, e); got != "42" {
		t.Errorf("script func: got %q", got)
	}
}

func TestVariadic_CollectsRest(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
def Sum(...nums: list<number>): number
  var total = 0
  var i = 0
  while i < len(nums)
    total = total + nums[i]
    i = i + 1
  endwhile
  return total
enddef
echo Sum(1, 2, 3, 4)
`)
	if got := lastMessage(t, e); got != "10" {
		t.Errorf("variadic sum: got %q", got)
	}
}

func TestReturn_LocalObjectSurvivesCall(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Point
  var x: number = 3
  var y: number = 4
endclass
def Make(): Point
  var p = Point.new()
  return p
enddef
var made = Make()
echo made.x
`)
	if got := lastMessage(t, e); got != "3" {
		t.Errorf("object returned through a local: got %q", got)
	}
}

func TestReturn_LocalListSurvivesCall(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
def Pair(): list<number>
  var l = [1, 2]
  return l
enddef
var xs = Pair()
echo len(xs) .. ':' .. xs[0]
`)
	if got := lastMessage(t, e); got != "2:1" {
		t.Errorf("list returned through a local: got %q", got)
	}
}

func TestEquals_CyclicObjectsTerminate(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Cell
  public var next: Cell
  public var tag: number = 0
endclass
var a = Cell.new()
var b = Cell.new()
a.next = a
b.next = b
echo a == b
`)
	if got := lastMessage(t, e); got != "true" {
		t.Errorf("matching one-node cycles: got %q", got)
	}
	mustExec(t, e, `
var c = Cell.new()
c.next = c
c.tag = 1
echo a == c
`)
	if got := lastMessage(t, e); got != "false" {
		t.Errorf("cycles differing in a slot: got %q", got)
	}
}
