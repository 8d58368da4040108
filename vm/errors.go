package vm

import "fmt"

// ---------------------------------------------------------------------------
// Structured script errors
// ---------------------------------------------------------------------------

// ErrorKind is a stable symbolic identifier for a script error. Kinds are
// part of the scripting surface: tests and catch handlers match on them, so
// they must not change between releases.
type ErrorKind string

const (
	// Declaration errors (raised at script load time)
	ErrDuplicateClass     ErrorKind = "duplicate-class"
	ErrClassRedefined     ErrorKind = "class-redefined"
	ErrDuplicateVariable  ErrorKind = "duplicate-variable"
	ErrDuplicateMethod    ErrorKind = "duplicate-method"
	ErrInvalidClassName   ErrorKind = "invalid-class-name"
	ErrReservedName       ErrorKind = "reserved-name"
	ErrClassNotFound      ErrorKind = "class-not-found"
	ErrInterfaceNotFound  ErrorKind = "interface-not-found"
	ErrCannotExtend       ErrorKind = "cannot-extend"
	ErrExtendsCycle       ErrorKind = "extends-cycle"
	ErrNotAnInterface     ErrorKind = "not-an-interface"
	ErrAbstractMissing    ErrorKind = "abstract-not-implemented"
	ErrConstructorInvalid ErrorKind = "constructor-invalid"
	ErrShorthandInvalid   ErrorKind = "shorthand-invalid"
	ErrArgShadowsMember   ErrorKind = "argument-shadows-member"

	// Conformance errors (raised at script load time)
	ErrVariableNotImplemented ErrorKind = "interface-variable-missing"
	ErrMethodNotImplemented   ErrorKind = "interface-method-missing"
	ErrSignatureMismatch      ErrorKind = "signature-mismatch"
	ErrAccessMismatch         ErrorKind = "access-mismatch"
	ErrTypeMismatch           ErrorKind = "type-mismatch"

	// Access errors (raised at compile time or execution time)
	ErrProtectedAccess ErrorKind = "protected-access"
	ErrClassQualifier  ErrorKind = "class-qualifier"
	ErrObjectQualifier ErrorKind = "object-qualifier"
	ErrReadOnlyWrite   ErrorKind = "readonly-write"
	ErrFinalWrite      ErrorKind = "final-write"
	ErrConstWrite      ErrorKind = "const-write"
	ErrLocked          ErrorKind = "locked"
	ErrLockInvalid     ErrorKind = "lock-invalid"

	// Runtime errors (always raised at execution time)
	ErrNullObject          ErrorKind = "null-object"
	ErrVariableNotFound    ErrorKind = "variable-not-found"
	ErrMethodNotFound      ErrorKind = "method-not-found"
	ErrArgumentCount       ErrorKind = "argument-count"
	ErrArgumentType        ErrorKind = "argument-type"
	ErrWrongType           ErrorKind = "wrong-type"
	ErrNotCallable         ErrorKind = "not-callable"
	ErrAbstractInstantiate ErrorKind = "abstract-instantiate"
	ErrUndefined           ErrorKind = "undefined-variable"
	ErrIndexRange          ErrorKind = "index-out-of-range"
	ErrKeyNotFound         ErrorKind = "key-not-found"
	ErrDivideByZero        ErrorKind = "divide-by-zero"
	ErrException           ErrorKind = "exception"
	ErrSyntax              ErrorKind = "syntax"
)

// ScriptError is a structured script-level failure: a stable symbolic kind,
// a human-readable message, and the source location. Uncaught script errors
// are appended to the engine's message list.
type ScriptError struct {
	Kind    ErrorKind
	Message string
	Script  string
	Line    int
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	if e.Script == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s line %d: [%s] %s", e.Script, e.Line, e.Kind, e.Message)
}

// errf builds a ScriptError with a formatted message.
func errf(kind ErrorKind, script string, line int, format string, args ...interface{}) *ScriptError {
	return &ScriptError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Script:  script,
		Line:    line,
	}
}

// AsScriptError unwraps err as a *ScriptError if it is one.
func AsScriptError(err error) (*ScriptError, bool) {
	se, ok := err.(*ScriptError)
	return se, ok
}
