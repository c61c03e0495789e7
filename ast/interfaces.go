// Package ast defines the syntax tree produced by the parser: statement and
// expression node types plus the visitor interfaces used by the resolver,
// compiler, and disassembler to walk them.
package ast

// Expression is the base interface for every expression node. Nodes follow
// the visitor design pattern: Accept dispatches to the matching method of an
// ExpressionVisitor so new passes over the tree don't require type switches
// scattered through the codebase.
type Expression interface {
	Accept(v ExpressionVisitor) any
}

// Stmt is the base interface for every statement node.
type Stmt interface {
	Accept(v StmtVisitor) any
}

// ExpressionVisitor is implemented by every pass that evaluates or inspects
// expressions (the resolver, the code generator, the AST printer).
type ExpressionVisitor interface {
	VisitBinary(e *Binary) any
	VisitLogical(e *Logical) any
	VisitUnary(e *Unary) any
	VisitLiteral(e *Literal) any
	VisitGrouping(e *Grouping) any
	VisitVariable(e *Variable) any
	VisitCall(e *Call) any
	VisitIndex(e *Index) any
	VisitAttribute(e *Attribute) any
	VisitListLiteral(e *ListLiteral) any
	VisitObjectLiteral(e *ObjectLiteral) any
	VisitLambda(e *Lambda) any
	VisitListPattern(e *ListPattern) any
}

// StmtVisitor is implemented by every pass that walks statements.
type StmtVisitor interface {
	VisitExpressionStmt(s *ExpressionStmt) any
	VisitActionStmt(s *ActionStmt) any
	VisitBlockStmt(s *BlockStmt) any
	VisitIfStmt(s *IfStmt) any
	VisitWhileStmt(s *WhileStmt) any
	VisitForStmt(s *ForStmt) any
	VisitFuncStmt(s *FuncStmt) any
	VisitReturnStmt(s *ReturnStmt) any
	VisitBreakStmt(s *BreakStmt) any
	VisitContinueStmt(s *ContinueStmt) any
	VisitAssignStmt(s *AssignStmt) any
	VisitInitStmt(s *InitStmt) any
}
