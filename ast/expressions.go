package ast

import "yqlang/token"

// Binary is a two-operand arithmetic or comparison expression: `left OP right`.
type Binary struct {
	Left     Expression
	Operator token.Token
	Right    Expression
}

func (e *Binary) Accept(v ExpressionVisitor) any { return v.VisitBinary(e) }

// Logical is `&&`/`||`, kept distinct from Binary so the code generator can
// emit short-circuiting jumps instead of eager operand evaluation.
type Logical struct {
	Left     Expression
	Operator token.Token
	Right    Expression
}

func (e *Logical) Accept(v ExpressionVisitor) any { return v.VisitLogical(e) }

// Unary is a single-operand prefix expression: `!x` or `-x`.
type Unary struct {
	Operator token.Token
	Right    Expression
}

func (e *Unary) Accept(v ExpressionVisitor) any { return v.VisitUnary(e) }

// Literal wraps a compile-time constant: int64, float64, string, bool, or nil.
type Literal struct {
	Value any
}

func (e *Literal) Accept(v ExpressionVisitor) any { return v.VisitLiteral(e) }

// Grouping is a parenthesized expression, kept as a distinct node only to
// preserve source fidelity for the AST printer; it compiles transparently.
type Grouping struct {
	Expression Expression
}

func (e *Grouping) Accept(v ExpressionVisitor) any { return v.VisitGrouping(e) }

// Variable is a bare identifier reference, including the reserved forms
// `this`, `$`, and `$0`, `$1`, ... which the resolver treats specially.
type Variable struct {
	Name token.Token
}

func (e *Variable) Accept(v ExpressionVisitor) any { return v.VisitVariable(e) }

// Call is a function/procedure invocation: `callee(args...)`.
type Call struct {
	Callee Expression
	Args   []Expression
	Paren  token.Token // closing ')' — carried for error source locations
}

func (e *Call) Accept(v ExpressionVisitor) any { return v.VisitCall(e) }

// Index is a subscript or slice postfix: `target[begin]` or
// `target[begin:end]`. IsSlice distinguishes the two; Begin/End may be nil
// (an omitted bound in a slice expression).
type Index struct {
	Target  Expression
	Begin   Expression
	End     Expression
	IsSlice bool
	Bracket token.Token
}

func (e *Index) Accept(v ExpressionVisitor) any { return v.VisitIndex(e) }

// Attribute is a `.name` postfix.
type Attribute struct {
	Target Expression
	Name   token.Token
}

func (e *Attribute) Accept(v ExpressionVisitor) any { return v.VisitAttribute(e) }

// ListLiteral is `[e1, e2, ...]`.
type ListLiteral struct {
	Elements []Expression
}

func (e *ListLiteral) Accept(v ExpressionVisitor) any { return v.VisitListLiteral(e) }

// ObjectLiteral is `{ key: value, ... }`.
type ObjectLiteral struct {
	Keys   []token.Token
	Values []Expression
}

func (e *ObjectLiteral) Accept(v ExpressionVisitor) any { return v.VisitObjectLiteral(e) }

// Lambda is a closure literal. Params is non-nil only for the `{ p1, p2 -> BODY }`
// form; the brace-only form `{ ... }` takes no declared parameters and relies
// on the reserved `$`/`$N` names to read its arguments.
type Lambda struct {
	Params []token.Token
	Body   Stmt
}

func (e *Lambda) Accept(v ExpressionVisitor) any { return v.VisitLambda(e) }

// ListPattern is a destructuring assignment/for-loop target: `[a, b[0], [c,d]]`.
// Each element is itself an assignable expression (Variable, Index,
// Attribute, or a nested ListPattern).
type ListPattern struct {
	Elements []Expression
}

func (e *ListPattern) Accept(v ExpressionVisitor) any { return v.VisitListPattern(e) }
