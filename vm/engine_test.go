package vm

import "testing"

// End-to-end scenario: an interface, an abstract base, two concrete
// subclasses, virtual dispatch, class variables, and ahead-of-time
// compilation, loaded across two scripts the way a project manifest loads
// them.
func TestEngine_ProjectStyleLoad(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
interface Shape
  def Area(): float
endinterface

abstract class BaseShape implements Shape
  var _name: string = 'shape'
  abstract def Area(): float
  def Describe(): string
    return this._name .. ':' .. string(this.Area())
  enddef
endclass

class Circle extends BaseShape
  var _r: float = 1.0
  def new(this._r)
    this._name = 'circle'
  enddef
  def Area(): float
    return 3.0 * this._r * this._r
  enddef
endclass

class Square extends BaseShape
  var _side: float = 1.0
  static var made: number = 0
  def new(this._side)
    this._name = 'square'
    Square.made += 1
  enddef
  def Area(): float
    return this._side * this._side
  enddef
endclass
`)

	mustExec(t, e, `
var shapes: list<any> = [Circle.new(2.0), Square.new(3.0), Square.new(1.0)]
var i = 0
var out = ''
while i < len(shapes)
  out = out .. ' ' .. shapes[i].Describe()
  i += 1
endwhile
echo out
echo Square.made
`)
	msgs := e.Messages
	if len(msgs) < 2 {
		t.Fatalf("messages = %v", msgs)
	}
	if got := msgs[len(msgs)-2]; got != " circle:12.0 square:9.0 square:1.0" {
		t.Errorf("describe output = %q", got)
	}
	if got := msgs[len(msgs)-1]; got != "2" {
		t.Errorf("class counter = %q, want 2", got)
	}

	if err := e.CompileAll(); err != nil {
		t.Errorf("compile all: %v", err)
	}

	v := evalIn(t, e, "instanceof(shapes[0], Shape)")
	if v.Kind != KindBool || !v.Bool {
		t.Errorf("instanceof through abstract base = %v", v)
	}
}

func TestEngine_IdempotentReloadAcrossScripts(t *testing.T) {
	e := NewEngine()
	src := `
class Cfg
  var mode: string = 'dev'
endclass
`
	mustExec(t, e, src)
	// re-sourcing the identical declaration text is a no-op
	if err := e.ExecScript("other.sta", src); err != nil {
		t.Fatalf("identical reload: %v", err)
	}
	if err := e.ExecScript("other.sta", "class Cfg\n  var mode: string = 'prod'\nendclass\n"); err == nil {
		t.Error("changed redefinition should be rejected")
	}
}

func TestEngine_SyntaxErrorReportsScriptAndLine(t *testing.T) {
	e := NewEngine()
	err := e.ExecScript("broken.sta", "var = \n")
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	if err.Kind != ErrSyntax {
		t.Errorf("kind = %v, want ErrSyntax", err.Kind)
	}
	if err.Script != "broken.sta" {
		t.Errorf("script = %q", err.Script)
	}
}
