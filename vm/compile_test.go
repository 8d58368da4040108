package vm

import (
	"strings"
	"testing"
)

func TestDefcompile_CatchesUndefinedVariable(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Broken
  def Run(): number
    return missing + 1
  enddef
endclass
`)
	err := e.ExecScript("test.sta", "defcompile Broken\n")
	if err == nil {
		t.Fatal("defcompile should report the undefined variable")
	}
	wantKind(t, err, ErrUndefined)
}

func TestDefcompile_CatchesMissingMember(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Point
  var x: number = 0
  def Show(): number
    return this.y
  enddef
endclass
`)
	err := e.ExecScript("test.sta", "defcompile Point\n")
	if err == nil {
		t.Fatal("defcompile should report the missing member")
	}
	wantKind(t, err, ErrVariableNotFound)
}

func TestDefcompile_CatchesConstWriteOutsideConstructor(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Settings
  const limit: number = 10
  def new(this.limit)
  enddef
  def Reset()
    this.limit = 0
  enddef
endclass
`)
	err := e.ExecScript("test.sta", "defcompile Settings.Reset\n")
	if err == nil {
		t.Fatal("defcompile should reject a const write outside new")
	}
	wantKind(t, err, ErrConstWrite)
}

func TestDefcompile_ThisInvalidInStaticMethod(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Util
  var n: number = 0
  static def Peek(): number
    return this.n
  enddef
endclass
`)
	err := e.ExecScript("test.sta", "defcompile Util\n")
	if err == nil {
		t.Fatal("defcompile should reject this in a static method")
	}
	wantKind(t, err, ErrUndefined)
}

func TestDefcompile_SingleMethodAndRecompileNoop(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Greeter
  def Hello(): string
    return 'hi'
  enddef
endclass
`)
	cl := e.Classes().Lookup("Greeter")
	if cl == nil {
		t.Fatal("class Greeter not registered")
	}
	mustExec(t, e, "defcompile Greeter.Hello\n")
	m := cl.FindMethod("Hello")
	if m == nil || !m.Compiled {
		t.Fatal("Hello should be marked compiled")
	}
	// compiling again must not error
	mustExec(t, e, "defcompile Greeter.Hello\n")
}

func TestDefcompile_BareCoversScriptClasses(t *testing.T) {
	e := NewEngine()
	err := e.ExecScript("test.sta", `
class Ok
  def Fine(): number
    return 1
  enddef
endclass
def Helper(): number
  return nope
enddef
defcompile
`)
	if err == nil {
		t.Fatal("bare defcompile should check script functions too")
	}
	wantKind(t, err, ErrUndefined)
}

func TestCompileAll_ChecksEveryRegisteredClass(t *testing.T) {
	e := NewEngine()
	mustExec(t, e, `
class Fine
  def A(): number
    return 1
  enddef
endclass
class Bad
  def B(): number
    return ghost
  enddef
endclass
`)
	err := e.CompileAll()
	if err == nil {
		t.Fatal("CompileAll should surface the bad method")
	}
	wantKind(t, err, ErrUndefined)
}

func TestDefcompile_UnknownClass(t *testing.T) {
	e := NewEngine()
	err := e.ExecScript("test.sta", "defcompile Ghost\n")
	if err == nil {
		t.Fatal("defcompile of an unknown class should fail")
	}
	wantKind(t, err, ErrClassNotFound)
}

func TestDefcompile_BareReportsFunctionsInStableOrder(t *testing.T) {
	e := NewEngine()
	err := execErr(t, e, `
def Zulu()
  echo missingZulu
enddef
def Alpha()
  echo missingAlpha
enddef
defcompile
`)
	wantKind(t, err, ErrUndefined)
	if !strings.Contains(err.Message, "missingAlpha") {
		t.Errorf("first error should come from the first function by name, got %q", err.Message)
	}
}
