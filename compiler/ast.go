package compiler

// ---------------------------------------------------------------------------
// AST node types for Starling
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() int // 1-based source line
}

// Expr is implemented by all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// TypeExpr is a structured type annotation. The runtime resolves it to a
// concrete type at class registration time, when class names can be looked
// up. Name holds a builtin type name ("number", "float", "string", "bool",
// "list", "dict", "func", "any", "void") or a class/interface name.
type TypeExpr struct {
	Name     string
	Elem     *TypeExpr   // element type for list<...> and dict<...>
	Params   []*TypeExpr // parameter types for func(...)
	Return   *TypeExpr   // return type for func(...): ...
	Variadic bool        // func(...) with trailing "..."
	Line     int
}

func (t *TypeExpr) Pos() int { return t.Line }

// String renders the type annotation back to source form.
func (t *TypeExpr) String() string {
	if t == nil {
		return "any"
	}
	switch t.Name {
	case "list", "dict":
		if t.Elem != nil {
			return t.Name + "<" + t.Elem.String() + ">"
		}
		return t.Name + "<any>"
	case "func":
		s := "func("
		for i, p := range t.Params {
			if i > 0 {
				s += ", "
			}
			s += p.String()
		}
		if t.Variadic {
			if len(t.Params) > 0 {
				s += ", "
			}
			s += "..."
		}
		s += ")"
		if t.Return != nil {
			s += ": " + t.Return.String()
		}
		return s
	default:
		return t.Name
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// NumberLit is an integer literal.
type NumberLit struct {
	Value int64
	Line  int
}

// FloatLit is a floating point literal.
type FloatLit struct {
	Value float64
	Line  int
}

// StringLit is a string literal.
type StringLit struct {
	Value string
	Line  int
}

// BoolLit is true or false.
type BoolLit struct {
	Value bool
	Line  int
}

// NullLit is the null literal.
type NullLit struct {
	Line int
}

// NoneLit is the "no value supplied" sentinel literal.
type NoneLit struct {
	Line int
}

// ListLit is a list literal: [e1, e2, ...].
type ListLit struct {
	Elems []Expr
	Line  int
}

// DictLit is a dict literal: {key: value, ...}. Keys are string literals or
// bare identifiers (treated as string keys).
type DictLit struct {
	Keys   []string
	Values []Expr
	Line   int
}

// Ident is a bare name reference.
type Ident struct {
	Name string
	Line int
}

// ThisExpr is the "this" receiver reference.
type ThisExpr struct {
	Line int
}

// SuperExpr is the "super" reference; legal only as a call receiver.
type SuperExpr struct {
	Line int
}

// MemberExpr is receiver.name.
type MemberExpr struct {
	X    Expr
	Name string
	Line int
}

// IndexExpr is receiver[index].
type IndexExpr struct {
	X     Expr
	Index Expr
	Line  int
}

// CallExpr is fn(args...). Method calls are CallExpr with a MemberExpr Fn.
type CallExpr struct {
	Fn   Expr
	Args []Expr
	Line int
}

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	Op   TokenType
	L, R Expr
	Line int
}

// UnaryExpr is a prefix operation (! or -).
type UnaryExpr struct {
	Op   TokenType
	X    Expr
	Line int
}

func (e *NumberLit) Pos() int  { return e.Line }
func (e *FloatLit) Pos() int   { return e.Line }
func (e *StringLit) Pos() int  { return e.Line }
func (e *BoolLit) Pos() int    { return e.Line }
func (e *NullLit) Pos() int    { return e.Line }
func (e *NoneLit) Pos() int    { return e.Line }
func (e *ListLit) Pos() int    { return e.Line }
func (e *DictLit) Pos() int    { return e.Line }
func (e *Ident) Pos() int      { return e.Line }
func (e *ThisExpr) Pos() int   { return e.Line }
func (e *SuperExpr) Pos() int  { return e.Line }
func (e *MemberExpr) Pos() int { return e.Line }
func (e *IndexExpr) Pos() int  { return e.Line }
func (e *CallExpr) Pos() int   { return e.Line }
func (e *BinaryExpr) Pos() int { return e.Line }
func (e *UnaryExpr) Pos() int  { return e.Line }

func (*NumberLit) exprNode()  {}
func (*FloatLit) exprNode()   {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*NullLit) exprNode()    {}
func (*NoneLit) exprNode()    {}
func (*ListLit) exprNode()    {}
func (*DictLit) exprNode()    {}
func (*Ident) exprNode()      {}
func (*ThisExpr) exprNode()   {}
func (*SuperExpr) exprNode()  {}
func (*MemberExpr) exprNode() {}
func (*IndexExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// VarDeclStmt declares a script or local variable: var name[: type] [= expr].
type VarDeclStmt struct {
	Name  string
	Type  *TypeExpr
	Init  Expr // may be nil when a type is given
	Const bool // const at script/local level
	Line  int
}

// AssignStmt assigns to an identifier, member, or index target.
// Op is TokenAssign, TokenPlusEq, TokenMinusEq or TokenConcatEq.
type AssignStmt struct {
	Target Expr
	Op     TokenType
	Value  Expr
	Line   int
}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct {
	X    Expr
	Line int
}

// ReturnStmt returns from the enclosing method or function.
type ReturnStmt struct {
	Value Expr // nil for a bare return
	Line  int
}

// ElseIf is one elseif arm of an IfStmt.
type ElseIf struct {
	Cond Expr
	Body []Stmt
	Line int
}

// IfStmt is if/elseif/else/endif.
type IfStmt struct {
	Cond    Expr
	Then    []Stmt
	ElseIfs []ElseIf
	Else    []Stmt
	Line    int
}

// WhileStmt is while/endwhile.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
	Line int
}

// TryStmt is try/catch/finally/endtry. CatchVar names the variable bound to
// the caught error message; it may be empty.
type TryStmt struct {
	Body     []Stmt
	HasCatch bool
	CatchVar string
	Catch    []Stmt
	Finally  []Stmt
	Line     int
}

// ThrowStmt raises a script exception.
type ThrowStmt struct {
	Value Expr
	Line  int
}

// EchoStmt prints its arguments to the message list.
type EchoStmt struct {
	Args []Expr
	Line int
}

// LockStmt is lockvar/unlockvar applied to a variable or member target.
type LockStmt struct {
	Lock   bool // false for unlockvar
	Target Expr
	Line   int
}

// DefcompileStmt triggers method compilation: bare "defcompile" compiles all
// classes in the current script; "defcompile Class.Method" targets one.
type DefcompileStmt struct {
	Class  string // empty for all
	Method string // empty for all methods of Class
	Line   int
}

func (s *VarDeclStmt) Pos() int    { return s.Line }
func (s *AssignStmt) Pos() int     { return s.Line }
func (s *ExprStmt) Pos() int       { return s.Line }
func (s *ReturnStmt) Pos() int     { return s.Line }
func (s *IfStmt) Pos() int         { return s.Line }
func (s *WhileStmt) Pos() int      { return s.Line }
func (s *TryStmt) Pos() int        { return s.Line }
func (s *ThrowStmt) Pos() int      { return s.Line }
func (s *EchoStmt) Pos() int       { return s.Line }
func (s *LockStmt) Pos() int       { return s.Line }
func (s *DefcompileStmt) Pos() int { return s.Line }

func (*VarDeclStmt) stmtNode()    {}
func (*AssignStmt) stmtNode()     {}
func (*ExprStmt) stmtNode()       {}
func (*ReturnStmt) stmtNode()     {}
func (*IfStmt) stmtNode()         {}
func (*WhileStmt) stmtNode()      {}
func (*TryStmt) stmtNode()        {}
func (*ThrowStmt) stmtNode()      {}
func (*EchoStmt) stmtNode()       {}
func (*LockStmt) stmtNode()       {}
func (*DefcompileStmt) stmtNode() {}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// Param is a single method or function parameter. IsMember marks the
// constructor shorthand form "this.name", which declares the parameter and
// assigns it to the named instance member.
type Param struct {
	Name     string
	Type     *TypeExpr
	Default  Expr // nil when no default
	IsMember bool
	Line     int
}

// MemberDecl is a member line inside a class or interface body.
type MemberDecl struct {
	Name   string
	Public bool // explicit "public" keyword seen
	Static bool
	Final  bool
	Const  bool
	Type   *TypeExpr // nil when inferred from the initializer
	Init   Expr      // nil when only a type is given
	Line   int
}

// MethodDecl is a method inside a class or interface body. Abstract and
// interface methods have a nil Body.
type MethodDecl struct {
	Name     string
	Static   bool
	Abstract bool
	Params   []Param
	Variadic bool
	Return   *TypeExpr // nil means void
	Body     []Stmt
	HasBody  bool
	Line     int
}

// ClassDecl is a class or interface declaration. Text preserves the exact
// source text of the declaration for idempotent re-sourcing.
type ClassDecl struct {
	Name        string
	IsInterface bool
	Abstract    bool
	Extends     []string // single entry for classes, many for interfaces
	Implements  []string
	Members     []*MemberDecl
	Methods     []*MethodDecl
	Text        string
	Line        int
	EndLine     int
}

// FuncDecl is a script-level function: def Name(...) ... enddef.
type FuncDecl struct {
	Name     string
	Params   []Param
	Variadic bool
	Return   *TypeExpr
	Body     []Stmt
	Line     int
}

func (d *ClassDecl) Pos() int { return d.Line }
func (d *FuncDecl) Pos() int  { return d.Line }

func (*ClassDecl) stmtNode() {}
func (*FuncDecl) stmtNode()  {}

// Script is a parsed source file.
type Script struct {
	Name  string
	Stmts []Stmt
}
