package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"yqlang/ast"
	"yqlang/token"
)

const (
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// astPrinter implements the visitor interfaces and builds a JSON-friendly
// representation of the AST using maps and slices.
type astPrinter struct{}

func (p astPrinter) VisitExpressionStmt(s *ast.ExpressionStmt) any {
	return map[string]any{"type": "ExpressionStmt", "expression": s.Expression.Accept(p)}
}

func (p astPrinter) VisitActionStmt(s *ast.ActionStmt) any {
	return map[string]any{"type": "ActionStmt", "kind": string(s.Kind), "value": s.Value.Accept(p)}
}

func (p astPrinter) VisitBlockStmt(s *ast.BlockStmt) any {
	stmts := make([]any, 0, len(s.Statements))
	for _, stmt := range s.Statements {
		stmts = append(stmts, stmt.Accept(p))
	}
	return map[string]any{"type": "BlockStmt", "statements": stmts}
}

func (p astPrinter) VisitWhileStmt(s *ast.WhileStmt) any {
	return map[string]any{"type": "WhileStmt", "condition": s.Condition.Accept(p), "body": s.Body.Accept(p)}
}

func (p astPrinter) VisitIfStmt(s *ast.IfStmt) any {
	var elseVal any
	if s.Else != nil {
		elseVal = s.Else.Accept(p)
	}
	return map[string]any{"type": "IfStmt", "condition": s.Condition.Accept(p), "then": s.Then.Accept(p), "else": elseVal}
}

func (p astPrinter) VisitForStmt(s *ast.ForStmt) any {
	return map[string]any{
		"type":     "ForStmt",
		"pattern":  s.Pattern.Accept(p),
		"iterable": s.Iterable.Accept(p),
		"body":     s.Body.Accept(p),
	}
}

func (p astPrinter) VisitFuncStmt(s *ast.FuncStmt) any {
	return map[string]any{"type": "FuncStmt", "name": s.Name.Lexeme, "params": paramNames(s.Params), "body": s.Body.Accept(p)}
}

func (p astPrinter) VisitReturnStmt(s *ast.ReturnStmt) any {
	return map[string]any{"type": "ReturnStmt", "value": nilOrAccept(s.Value, p)}
}

func (p astPrinter) VisitBreakStmt(s *ast.BreakStmt) any { return map[string]any{"type": "BreakStmt"} }

func (p astPrinter) VisitContinueStmt(s *ast.ContinueStmt) any {
	return map[string]any{"type": "ContinueStmt"}
}

func (p astPrinter) VisitAssignStmt(s *ast.AssignStmt) any {
	return map[string]any{
		"type":     "AssignStmt",
		"operator": s.Operator.Lexeme,
		"target":   s.Target.Accept(p),
		"value":    s.Value.Accept(p),
	}
}

func (p astPrinter) VisitInitStmt(s *ast.InitStmt) any {
	return map[string]any{"type": "InitStmt", "body": s.Body.Accept(p)}
}

func (p astPrinter) VisitBinary(e *ast.Binary) any {
	return map[string]any{"type": "Binary", "operator": e.Operator.Lexeme, "left": e.Left.Accept(p), "right": e.Right.Accept(p)}
}

func (p astPrinter) VisitLogical(e *ast.Logical) any {
	return map[string]any{"type": "Logical", "operator": e.Operator.Lexeme, "left": e.Left.Accept(p), "right": e.Right.Accept(p)}
}

func (p astPrinter) VisitUnary(e *ast.Unary) any {
	return map[string]any{"type": "Unary", "operator": e.Operator.Lexeme, "right": e.Right.Accept(p)}
}

func (p astPrinter) VisitLiteral(e *ast.Literal) any { return e.Value }

func (p astPrinter) VisitGrouping(e *ast.Grouping) any {
	return map[string]any{"type": "Grouping", "expression": e.Expression.Accept(p)}
}

func (p astPrinter) VisitVariable(e *ast.Variable) any {
	return map[string]any{"type": "Variable", "name": e.Name.Lexeme}
}

func (p astPrinter) VisitCall(e *ast.Call) any {
	args := make([]any, 0, len(e.Args))
	for _, a := range e.Args {
		args = append(args, a.Accept(p))
	}
	return map[string]any{"type": "Call", "callee": e.Callee.Accept(p), "args": args}
}

func (p astPrinter) VisitIndex(e *ast.Index) any {
	return map[string]any{
		"type":    "Index",
		"target":  e.Target.Accept(p),
		"begin":   nilOrAccept(e.Begin, p),
		"end":     nilOrAccept(e.End, p),
		"isSlice": e.IsSlice,
	}
}

func (p astPrinter) VisitAttribute(e *ast.Attribute) any {
	return map[string]any{"type": "Attribute", "target": e.Target.Accept(p), "name": e.Name.Lexeme}
}

func (p astPrinter) VisitListLiteral(e *ast.ListLiteral) any {
	elements := make([]any, 0, len(e.Elements))
	for _, el := range e.Elements {
		elements = append(elements, el.Accept(p))
	}
	return map[string]any{"type": "ListLiteral", "elements": elements}
}

func (p astPrinter) VisitObjectLiteral(e *ast.ObjectLiteral) any {
	pairs := make([]any, 0, len(e.Keys))
	for i, k := range e.Keys {
		pairs = append(pairs, map[string]any{"key": k.Lexeme, "value": e.Values[i].Accept(p)})
	}
	return map[string]any{"type": "ObjectLiteral", "pairs": pairs}
}

func (p astPrinter) VisitLambda(e *ast.Lambda) any {
	return map[string]any{"type": "Lambda", "params": paramNames(e.Params), "body": e.Body.Accept(p)}
}

func (p astPrinter) VisitListPattern(e *ast.ListPattern) any {
	elements := make([]any, 0, len(e.Elements))
	for _, el := range e.Elements {
		elements = append(elements, el.Accept(p))
	}
	return map[string]any{"type": "ListPattern", "elements": elements}
}

func paramNames(params []token.Token) []string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Lexeme)
	}
	return names
}

func nilOrAccept(expr ast.Expression, p ast.ExpressionVisitor) any {
	if expr == nil {
		return nil
	}
	return expr.Accept(p)
}

// PrintASTJSON converts a slice of statements into a prettified JSON string.
func PrintASTJSON(statements []ast.Stmt) (string, error) {
	printer := astPrinter{}
	out := make([]any, 0, len(statements))
	for _, s := range statements {
		out = append(out, s.Accept(printer))
	}
	bytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}

	jsonStr := string(bytes)
	fmt.Println(colorYellow + "----- AST JSON -----")
	fmt.Println(colorYellow + jsonStr)
	fmt.Println(colorYellow + "-----" + colorReset)
	fmt.Println("")
	return jsonStr, nil
}

// WriteASTJSONToFile writes the prettified AST JSON to the given file path.
func WriteASTJSONToFile(statements []ast.Stmt, path string) error {
	s, err := PrintASTJSON(statements)
	if err != nil {
		return err
	}
	fDescriptor, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating AST file: %s", err.Error())
	}
	defer fDescriptor.Close()

	if _, err := fDescriptor.Write([]byte(s)); err != nil {
		return fmt.Errorf("error writing AST to file: %s", err.Error())
	}
	return nil
}
