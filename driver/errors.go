package driver

import (
	"fmt"

	"yqlang/compiler"
	"yqlang/lexer"
	"yqlang/parser"
	"yqlang/resolver"
	"yqlang/vm"
)

// BudgetError reports that a run was cancelled for exceeding its allowance
// or total allowance, as distinct from a program bug.
type BudgetError struct {
	Message string
	Elapsed int64
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("⏱️ %s (elapsed %dms)", e.Message, e.Elapsed)
}

// SerializationError reports that one or more persisted globals could not be
// round-tripped through JSON. Serialization is non-fatal: the offending
// values are dropped and the run's result is still returned.
type SerializationError struct {
	Message string
	Dropped []string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("🗃️ %s (dropped: %v)", e.Message, e.Dropped)
}

// TooManyInstances reports that a run was rejected because its script
// already has max_instances concurrent runs in flight.
type TooManyInstances struct {
	Limit int
}

func (e *TooManyInstances) Error() string {
	return fmt.Sprintf("⏱️ too many concurrent instances (limit %d)", e.Limit)
}

// BoundaryErrorKind classifies a BoundaryError for a host that only wants to
// branch on category, not message text.
type BoundaryErrorKind int

const (
	KindCompile BoundaryErrorKind = iota
	KindRuntime
	KindDriver
)

func (k BoundaryErrorKind) String() string {
	switch k {
	case KindCompile:
		return "compile"
	case KindRuntime:
		return "runtime"
	case KindDriver:
		return "driver"
	default:
		return "unknown"
	}
}

// BoundaryError is the shape every failure crosses the host boundary as: a
// kind, a human-readable message, and either a source location (compile
// errors) or an instruction index (runtime errors).
type BoundaryError struct {
	Kind         BoundaryErrorKind
	Message      string
	Line, Column int
	InstrIndex   int
}

func (e *BoundaryError) Error() string {
	switch e.Kind {
	case KindCompile:
		return fmt.Sprintf("Compile Error: %s (line %d, column %d)", e.Message, e.Line, e.Column)
	case KindRuntime:
		return fmt.Sprintf("Runtime Error: %s (instruction %d)", e.Message, e.InstrIndex)
	default:
		return fmt.Sprintf("Driver Error: %s", e.Message)
	}
}

// ClassifyCompileError wraps the first error out of the lex/parse/resolve/
// compile front end into the typed {kind, message, source_loc} triple a host
// receives at the boundary, carrying the source location through when the
// underlying error has one. Returns nil for a nil err.
func ClassifyCompileError(err error) *BoundaryError {
	if err == nil {
		return nil
	}
	be := &BoundaryError{Kind: KindCompile, Message: err.Error()}
	switch e := err.(type) {
	case *lexer.TokenizerError:
		be.Line, be.Column, be.Message = int(e.Line), e.Column, e.Message
	case parser.SyntaxError:
		be.Line, be.Column, be.Message = int(e.Line), e.Column, e.Message
	case resolver.ResolutionError:
		be.Line, be.Column, be.Message = int(e.Line), e.Column, e.Message
	case compiler.SemanticError:
		be.Message = e.Message
	case compiler.DeveloperError:
		be.Message = e.Message
	}
	return be
}

// classifyRuntimeError wraps a VM failure into the {kind, message,
// instr_index} triple a host receives at the boundary. Errors it doesn't
// recognize (e.g. a host-delivery error bubbled up from drainAndDeliver)
// pass through unchanged.
func classifyRuntimeError(err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(vm.RuntimeError); ok {
		return &BoundaryError{Kind: KindRuntime, Message: re.Message, InstrIndex: re.InstructionIndex}
	}
	return err
}
