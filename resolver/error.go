package resolver

import "fmt"

// Kind distinguishes the handful of compile-time name errors this package
// raises.
type Kind int

const (
	NameError Kind = iota
	RedeclarationError
	ReservedNameMisuse
)

func (k Kind) String() string {
	switch k {
	case NameError:
		return "NameError"
	case RedeclarationError:
		return "RedeclarationError"
	case ReservedNameMisuse:
		return "ReservedNameMisuse"
	default:
		return "ResolutionError"
	}
}

// ResolutionError is raised while binding identifiers to scopes: reading a
// name nothing ever assigned, redeclaring a parameter/pattern name already
// in use, or touching a reserved name (`this`, `$`, `$N`) as an ordinary
// binding target.
type ResolutionError struct {
	Kind    Kind
	Line    int32
	Column  int
	Name    string
	Message string
}

func (e ResolutionError) Error() string {
	return fmt.Sprintf("💥 yqlang %s:\nline:%d, column:%d - %s", e.Kind, e.Line, e.Column, e.Message)
}

func newNameError(name string, line int32, col int) ResolutionError {
	return ResolutionError{Kind: NameError, Line: line, Column: col, Name: name,
		Message: fmt.Sprintf("undefined name %q", name)}
}

func newRedeclarationError(name string, line int32, col int) ResolutionError {
	return ResolutionError{Kind: RedeclarationError, Line: line, Column: col, Name: name,
		Message: fmt.Sprintf("%q is already declared in this scope", name)}
}

func newReservedNameError(name string, line int32, col int) ResolutionError {
	return ResolutionError{Kind: ReservedNameMisuse, Line: line, Column: col, Name: name,
		Message: fmt.Sprintf("%q is a reserved name and cannot be assigned directly", name)}
}
