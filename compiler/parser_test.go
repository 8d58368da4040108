package compiler

import (
	"strings"
	"testing"
)

func parseOK(t *testing.T, src string) *Script {
	t.Helper()
	p := NewParser("test.sta", src)
	script := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return script
}

func parseErr(t *testing.T, src, want string) {
	t.Helper()
	p := NewParser("test.sta", src)
	p.Parse()
	errs := p.Errors()
	if len(errs) == 0 {
		t.Fatalf("expected a parse error containing %q", want)
	}
	if !strings.Contains(errs[0], want) {
		t.Errorf("error = %q, want it to contain %q", errs[0], want)
	}
}

func classDecl(t *testing.T, script *Script) *ClassDecl {
	t.Helper()
	for _, s := range script.Stmts {
		if cd, ok := s.(*ClassDecl); ok {
			return cd
		}
	}
	t.Fatal("no class declaration in script")
	return nil
}

func TestParse_ClassWithMembersAndMethods(t *testing.T) {
	src := `class Point
  var x: number = 0
  public var y: number
  final tag: string = 'p'
  const limits: list<number> = [10, 20]
  static var count: number = 0

  def Move(dx: number, dy: number)
    this.x = this.x + dx
  enddef

  static def Count(): number
    return count
  enddef
endclass
`
	cd := classDecl(t, parseOK(t, src))
	if cd.Name != "Point" || cd.IsInterface || cd.Abstract {
		t.Fatalf("decl = %+v", cd)
	}
	if len(cd.Members) != 5 {
		t.Fatalf("members = %d, want 5", len(cd.Members))
	}
	m := cd.Members
	if m[0].Public || m[0].Type.Name != "number" {
		t.Errorf("x = %+v", m[0])
	}
	if !m[1].Public || m[1].Init != nil {
		t.Errorf("y = %+v", m[1])
	}
	if !m[2].Final || m[3].Const == false || m[3].Type.Elem.Name != "number" {
		t.Errorf("tag/limits = %+v %+v", m[2], m[3])
	}
	if !m[4].Static {
		t.Errorf("count should be static: %+v", m[4])
	}
	if len(cd.Methods) != 2 || cd.Methods[1].Static != true {
		t.Fatalf("methods = %+v", cd.Methods)
	}
	move := cd.Methods[0]
	if len(move.Params) != 2 || move.Params[0].Name != "dx" || move.Return != nil {
		t.Errorf("Move = %+v", move)
	}
}

func TestParse_ClassTextPreserved(t *testing.T) {
	src := "class A\n  var n: number = 1\nendclass\n"
	cd := classDecl(t, parseOK(t, src))
	if !strings.HasPrefix(cd.Text, "class A") || !strings.Contains(cd.Text, "endclass") {
		t.Errorf("text = %q", cd.Text)
	}
	if cd.Line != 1 || cd.EndLine != 3 {
		t.Errorf("lines = %d..%d, want 1..3", cd.Line, cd.EndLine)
	}
}

func TestParse_InterfaceAndHeritage(t *testing.T) {
	src := `interface Shape
  def Area(): float
endinterface

abstract class Base
  abstract def Kind(): string
endclass

class Circle extends Base implements Shape
  def Area(): float
    return 1.0
  enddef
  def Kind(): string
    return 'circle'
  enddef
endclass
`
	script := parseOK(t, src)
	var decls []*ClassDecl
	for _, s := range script.Stmts {
		if cd, ok := s.(*ClassDecl); ok {
			decls = append(decls, cd)
		}
	}
	if len(decls) != 3 {
		t.Fatalf("class decls = %d, want 3", len(decls))
	}
	if !decls[0].IsInterface {
		t.Error("Shape should be an interface")
	}
	if !decls[1].Abstract || !decls[1].Methods[0].Abstract || decls[1].Methods[0].HasBody {
		t.Errorf("Base = %+v", decls[1])
	}
	circle := decls[2]
	if len(circle.Extends) != 1 || circle.Extends[0] != "Base" {
		t.Errorf("extends = %v", circle.Extends)
	}
	if len(circle.Implements) != 1 || circle.Implements[0] != "Shape" {
		t.Errorf("implements = %v", circle.Implements)
	}
}

func TestParse_ConstructorShorthandAndDefaults(t *testing.T) {
	src := `class P
  var x: number = 0
  def new(this.x, scale: number = 2)
  enddef
endclass
`
	cd := classDecl(t, parseOK(t, src))
	ctor := cd.Methods[0]
	if ctor.Name != "new" || len(ctor.Params) != 2 {
		t.Fatalf("ctor = %+v", ctor)
	}
	if !ctor.Params[0].IsMember || ctor.Params[0].Name != "x" {
		t.Errorf("shorthand param = %+v", ctor.Params[0])
	}
	if ctor.Params[1].Default == nil {
		t.Errorf("scale should carry a default: %+v", ctor.Params[1])
	}
}

func TestParse_VariadicParams(t *testing.T) {
	src := `def Sum(base: number, ...rest: list<number>): number
  return base
enddef
`
	script := parseOK(t, src)
	fn, ok := script.Stmts[0].(*FuncDecl)
	if !ok {
		t.Fatalf("stmt = %T", script.Stmts[0])
	}
	if !fn.Variadic || len(fn.Params) != 2 {
		t.Errorf("fn = %+v", fn)
	}
}

func TestParse_ControlFlowStatements(t *testing.T) {
	src := `var n = 0
while n < 3
  n += 1
endwhile
if n == 3
  echo 'three'
elseif n == 4
  echo 'four'
else
  echo 'other'
endif
try
  throw 'boom'
catch err
  echo err
finally
  echo 'done'
endtry
`
	script := parseOK(t, src)
	if len(script.Stmts) != 4 {
		t.Fatalf("stmts = %d, want 4", len(script.Stmts))
	}
	w, ok := script.Stmts[1].(*WhileStmt)
	if !ok || len(w.Body) != 1 {
		t.Errorf("while = %+v", script.Stmts[1])
	}
	ifs, ok := script.Stmts[2].(*IfStmt)
	if !ok || len(ifs.ElseIfs) != 1 || len(ifs.Else) != 1 {
		t.Errorf("if = %+v", script.Stmts[2])
	}
	try, ok := script.Stmts[3].(*TryStmt)
	if !ok || try.CatchVar != "err" || len(try.Finally) != 1 {
		t.Errorf("try = %+v", script.Stmts[3])
	}
}

func TestParse_ExprPrecedence(t *testing.T) {
	p := NewParser("test.sta", "1 + 2 * 3")
	expr := p.ParseExpr()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	add, ok := expr.(*BinaryExpr)
	if !ok || add.Op != TokenPlus {
		t.Fatalf("top = %+v", expr)
	}
	mul, ok := add.R.(*BinaryExpr)
	if !ok || mul.Op != TokenStar {
		t.Errorf("right = %+v", add.R)
	}
}

func TestParse_MemberModifierErrors(t *testing.T) {
	parseErr(t, "interface I\n  final n: number = 1\nendinterface\n", "final")
	parseErr(t, "class C\n  public x = 1\nendclass\n", "public")
	parseErr(t, "class C\n  static x = 1\nendclass\n", "static")
}

func TestParse_UnterminatedClass(t *testing.T) {
	p := NewParser("test.sta", "class C\n  var x = 1\n")
	p.Parse()
	if len(p.Errors()) == 0 {
		t.Error("unterminated class should be a parse error")
	}
}

func TestParse_DefcompileForms(t *testing.T) {
	script := parseOK(t, "defcompile\ndefcompile Point\ndefcompile Point.Move\n")
	want := []struct{ class, method string }{
		{"", ""}, {"Point", ""}, {"Point", "Move"},
	}
	for i, w := range want {
		dc, ok := script.Stmts[i].(*DefcompileStmt)
		if !ok {
			t.Fatalf("stmt %d = %T", i, script.Stmts[i])
		}
		if dc.Class != w.class || dc.Method != w.method {
			t.Errorf("stmt %d = %+v, want %+v", i, dc, w)
		}
	}
}

func TestParse_EchoSpaceSeparatedArgs(t *testing.T) {
	script := parseOK(t, "echo string(1) string(2), string(3)\n")
	es, ok := script.Stmts[0].(*EchoStmt)
	if !ok {
		t.Fatalf("expected an echo statement, got %T", script.Stmts[0])
	}
	if len(es.Args) != 3 {
		t.Errorf("echo argument count: got %d, want 3", len(es.Args))
	}
}
