package ast

import "yqlang/token"

// ExpressionStmt is a bare expression evaluated for its side effects; its
// value becomes the "last expression value" the REPL/driver may report.
type ExpressionStmt struct {
	Expression Expression
}

func (s *ExpressionStmt) Accept(v StmtVisitor) any { return v.VisitExpressionStmt(s) }

// ActionStmt is one of `say`, `nudge`, `picsave`, `picsend`. Kind holds the
// originating keyword token type.
type ActionStmt struct {
	Kind  token.TokenType
	Value Expression
}

func (s *ActionStmt) Accept(v StmtVisitor) any { return v.VisitActionStmt(s) }

// BlockStmt groups statements under a new lexical scope.
type BlockStmt struct {
	Statements []Stmt
}

func (s *BlockStmt) Accept(v StmtVisitor) any { return v.VisitBlockStmt(s) }

// IfStmt is `if COND STMT [else STMT]`. Else may be nil.
type IfStmt struct {
	Condition Expression
	Then      Stmt
	Else      Stmt
}

func (s *IfStmt) Accept(v StmtVisitor) any { return v.VisitIfStmt(s) }

// WhileStmt is `while COND STMT`.
type WhileStmt struct {
	Condition Expression
	Body      Stmt
}

func (s *WhileStmt) Accept(v StmtVisitor) any { return v.VisitWhileStmt(s) }

// ForStmt is `for PATTERN in ITER STMT`. Pattern is either a *Variable or a
// *ListPattern for destructuring.
type ForStmt struct {
	Pattern  Expression
	Iterable Expression
	Body     Stmt
}

func (s *ForStmt) Accept(v StmtVisitor) any { return v.VisitForStmt(s) }

// FuncStmt is `func NAME(PARAMS) BODY`, sugar for assigning a closure with
// those parameters and body to NAME.
type FuncStmt struct {
	Name   token.Token
	Params []token.Token
	Body   Stmt
}

func (s *FuncStmt) Accept(v StmtVisitor) any { return v.VisitFuncStmt(s) }

// ReturnStmt is `return [EXPR]`. Value is nil for a bare `return`.
type ReturnStmt struct {
	Keyword token.Token
	Value   Expression
}

func (s *ReturnStmt) Accept(v StmtVisitor) any { return v.VisitReturnStmt(s) }

// BreakStmt is `break`.
type BreakStmt struct {
	Keyword token.Token
}

func (s *BreakStmt) Accept(v StmtVisitor) any { return v.VisitBreakStmt(s) }

// ContinueStmt is `continue`.
type ContinueStmt struct {
	Keyword token.Token
}

func (s *ContinueStmt) Accept(v StmtVisitor) any { return v.VisitContinueStmt(s) }

// AssignStmt is `LVAL (= | += | -= | *= | /= | %=) EXPR`. Target is one of
// *Variable, *Index, *Attribute, or *ListPattern (destructuring, `=` only).
type AssignStmt struct {
	Target   Expression
	Operator token.Token
	Value    Expression
}

func (s *AssignStmt) Accept(v StmtVisitor) any { return v.VisitAssignStmt(s) }

// InitStmt is `init STMT`: its body runs only the first time this script
// executes for a given persisted-globals lifetime, gated by a
// JUMP_NOT_FIRST_RUN guard at codegen time.
type InitStmt struct {
	Body Stmt
}

func (s *InitStmt) Accept(v StmtVisitor) any { return v.VisitInitStmt(s) }
