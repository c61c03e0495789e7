// Recursive descent parser
// https://en.wikipedia.org/wiki/Recursive_descent_parser
//
// A recursive descent parser is a top-down parser: it starts from the top
// grammar rule and works its way down into nested sub-expressions before
// reaching the leaves of the syntax tree (terminal rules).
package parser

import (
	"fmt"

	"yqlang/ast"
	"yqlang/token"
)

var comparisonTokenTypes = []token.TokenType{
	token.LARGER,
	token.LARGER_EQUAL,
	token.LESS,
	token.LESS_EQUAL,
}

var equalityTokenTypes = []token.TokenType{
	token.NOT_EQUAL,
	token.EQUAL_EQUAL,
}

var termTokenTypes = []token.TokenType{
	token.SUB,
	token.ADD,
}

var factorExpressionTypes = []token.TokenType{
	token.MULT,
	token.DIV,
	token.MOD,
}

var unaryExpressionTypes = []token.TokenType{
	token.BANG,
	token.SUB,
}

var assignOperators = []token.TokenType{
	token.ASSIGN,
	token.PLUS_ASSIGN,
	token.MINUS_ASSIGN,
	token.MULT_ASSIGN,
	token.DIV_ASSIGN,
	token.MOD_ASSIGN,
}

var actionKeywords = []token.TokenType{
	token.SAY,
	token.NUDGE,
	token.PICSAVE,
	token.PICSEND,
}

type Parser struct {
	tokens   []token.Token
	position int
}

// NOTE: the parser's position is always one unit ahead of the current token.

// Make initializes and returns a new Parser instance over the given tokens.
func Make(tokens []token.Token) *Parser {
	return &Parser{
		tokens:   tokens,
		position: 0,
	}
}

// Print prints the AST as prettified JSON to standard output.
func (parser *Parser) Print(statements []ast.Stmt) {
	_, err := PrintASTJSON(statements)
	if err != nil {
		fmt.Println("error producing AST JSON:", err)
	}
}

// PrintToFile writes the AST for the provided statements to a .json file.
func (parser *Parser) PrintToFile(statements []ast.Stmt, path string) error {
	return WriteASTJSONToFile(statements, path)
}

func (parser *Parser) peek() token.Token {
	return parser.tokens[parser.position]
}

func (parser *Parser) peekAt(offset int) token.Token {
	pos := parser.position + offset
	if pos >= len(parser.tokens) {
		return parser.tokens[len(parser.tokens)-1]
	}
	return parser.tokens[pos]
}

func (parser *Parser) previous() token.Token {
	return parser.tokens[parser.position-1]
}

func (parser *Parser) advance() token.Token {
	if !parser.isFinished() {
		parser.position++
	}
	return parser.previous()
}

func (parser *Parser) isFinished() bool {
	tok := parser.peek()
	return tok.TokenType == token.EOF
}

func (parser *Parser) checkType(tokenType token.TokenType) bool {
	if parser.isFinished() {
		return false
	}
	return parser.peek().TokenType == tokenType
}

func (parser *Parser) isMatch(tokenTypes []token.TokenType) bool {
	for _, tokenType := range tokenTypes {
		if parser.checkType(tokenType) {
			parser.advance()
			return true
		}
	}
	return false
}

// skipSeparators consumes any run of statement-separating semicolons.
func (parser *Parser) skipSeparators() {
	for parser.checkType(token.SEMICOLON) {
		parser.advance()
	}
}

// Parse parses the entire token stream into a slice of Stmt nodes,
// continuing until the end of input. Errors during parsing are collected
// but parsing continues to find additional errors where possible.
func (parser *Parser) Parse() ([]ast.Stmt, []error) {
	statements := []ast.Stmt{}
	errors := []error{}

	parser.skipSeparators()
	for !parser.isFinished() {
		statement, err := parser.declaration()
		if err != nil {
			errors = append(errors, err)
			if !parser.isFinished() {
				parser.position++
			}
			parser.skipSeparators()
			continue
		}
		statements = append(statements, statement)
		parser.skipSeparators()
	}

	return statements, errors
}

func (parser *Parser) declaration() (ast.Stmt, error) {
	return parser.statement()
}

func (parser *Parser) statement() (ast.Stmt, error) {
	switch {
	case parser.isMatch([]token.TokenType{token.LCUR}):
		statements, err := parser.block()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStmt{Statements: statements}, nil

	case parser.isMatch([]token.TokenType{token.IF}):
		return parser.ifStatement()

	case parser.isMatch([]token.TokenType{token.WHILE}):
		return parser.whileStatement()

	case parser.isMatch([]token.TokenType{token.FOR}):
		return parser.forStatement()

	case parser.isMatch([]token.TokenType{token.FUNC}):
		return parser.funcStatement()

	case parser.isMatch([]token.TokenType{token.INIT}):
		body, err := parser.statement()
		if err != nil {
			return nil, err
		}
		return &ast.InitStmt{Body: body}, nil

	case parser.isMatch([]token.TokenType{token.RETURN}):
		return parser.returnStatement()

	case parser.isMatch([]token.TokenType{token.BREAK}):
		return &ast.BreakStmt{Keyword: parser.previous()}, nil

	case parser.isMatch([]token.TokenType{token.CONTINUE}):
		return &ast.ContinueStmt{Keyword: parser.previous()}, nil

	case parser.isMatch(actionKeywords):
		return parser.actionStatement()
	}

	return parser.expressionOrAssignStatement()
}

func (parser *Parser) actionStatement() (ast.Stmt, error) {
	kind := parser.previous().TokenType
	value, err := parser.expression()
	if err != nil {
		return nil, err
	}
	return &ast.ActionStmt{Kind: kind, Value: value}, nil
}

func (parser *Parser) returnStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	if parser.checkType(token.SEMICOLON) || parser.checkType(token.RCUR) || parser.isFinished() {
		return &ast.ReturnStmt{Keyword: keyword}, nil
	}
	value, err := parser.expression()
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Keyword: keyword, Value: value}, nil
}

func (parser *Parser) whileStatement() (ast.Stmt, error) {
	expr, err := parser.expression()
	if err != nil {
		return nil, err
	}
	body, err := parser.statement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Condition: expr, Body: body}, nil
}

// forStatement parses `for PATTERN in ITER STMT`.
func (parser *Parser) forStatement() (ast.Stmt, error) {
	pattern, err := parser.assignTarget()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.IN, "Expected 'in' after for-loop pattern."); err != nil {
		return nil, err
	}
	iterable, err := parser.expression()
	if err != nil {
		return nil, err
	}
	body, err := parser.statement()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{Pattern: pattern, Iterable: iterable, Body: body}, nil
}

// funcStatement parses `func NAME(PARAMS) STMT`, sugar for declaring a
// closure-valued global/local named NAME.
func (parser *Parser) funcStatement() (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected function name after 'func'.")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LPA, "Expected '(' after function name."); err != nil {
		return nil, err
	}
	params := []token.Token{}
	if !parser.checkType(token.RPA) {
		for {
			p, err := parser.consume(token.IDENTIFIER, "Expected parameter name.")
			if err != nil {
				return nil, err
			}
			params = append(params, p)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after parameters."); err != nil {
		return nil, err
	}
	body, err := parser.statement()
	if err != nil {
		return nil, err
	}
	return &ast.FuncStmt{Name: name, Params: params, Body: body}, nil
}

func (parser *Parser) ifStatement() (ast.Stmt, error) {
	conditionExpr, err := parser.expression()
	if err != nil {
		return nil, err
	}
	thenStmt, err := parser.statement()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Stmt
	if parser.isMatch([]token.TokenType{token.ELSE}) {
		stmt, err := parser.statement()
		if err != nil {
			return nil, err
		}
		elseStmt = stmt
	}
	return &ast.IfStmt{Condition: conditionExpr, Then: thenStmt, Else: elseStmt}, nil
}

func (parser *Parser) block() ([]ast.Stmt, error) {
	statements := []ast.Stmt{}
	parser.skipSeparators()

	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		stmt, err := parser.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
		parser.skipSeparators()
	}

	if _, err := parser.consume(token.RCUR, "Expected '}' after block."); err != nil {
		return nil, err
	}
	return statements, nil
}

// expressionOrAssignStatement parses a bare expression and, if followed by
// an assignment operator, reinterprets the already-parsed expression as an
// assignment target.
func (parser *Parser) expressionOrAssignStatement() (ast.Stmt, error) {
	expr, err := parser.expression()
	if err != nil {
		return nil, err
	}

	if parser.isMatch(assignOperators) {
		op := parser.previous()
		target, err := toAssignTarget(expr, op)
		if err != nil {
			return nil, err
		}
		value, err := parser.expression()
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{Target: target, Operator: op, Value: value}, nil
	}

	return &ast.ExpressionStmt{Expression: expr}, nil
}

// toAssignTarget validates that expr is a legal assignment target and, for
// list-literal targets, recursively reinterprets them as destructuring
// ast.ListPattern nodes.
func toAssignTarget(expr ast.Expression, op token.Token) (ast.Expression, error) {
	switch e := expr.(type) {
	case *ast.Variable, *ast.Index, *ast.Attribute:
		return expr, nil
	case *ast.ListLiteral:
		if op.TokenType != token.ASSIGN {
			return nil, CreateSyntaxError(op.Line, op.Column, "compound assignment cannot target a list pattern")
		}
		elements := make([]ast.Expression, len(e.Elements))
		for i, el := range e.Elements {
			converted, err := toAssignTarget(el, op)
			if err != nil {
				return nil, err
			}
			elements[i] = converted
		}
		return &ast.ListPattern{Elements: elements}, nil
	default:
		return nil, CreateSyntaxError(op.Line, op.Column, "invalid assignment target")
	}
}

// assignTarget parses a for-loop pattern: either a bare identifier or a
// `[a, b, ...]` destructuring pattern.
func (parser *Parser) assignTarget() (ast.Expression, error) {
	if parser.checkType(token.LBRA) {
		expr, err := parser.primary()
		if err != nil {
			return nil, err
		}
		dummy := token.Token{TokenType: token.ASSIGN}
		return toAssignTarget(expr, dummy)
	}
	name, err := parser.consume(token.IDENTIFIER, "Expected identifier in pattern.")
	if err != nil {
		return nil, err
	}
	return &ast.Variable{Name: name}, nil
}

// expression is the entry point for parsing expressions, starting from the
// lowest-precedence `in` rule.
func (parser *Parser) expression() (ast.Expression, error) {
	return parser.inExpr()
}

func (parser *Parser) inExpr() (ast.Expression, error) {
	expr, err := parser.or()
	if err != nil {
		return nil, err
	}
	for parser.isMatch([]token.TokenType{token.IN}) {
		op := parser.previous()
		right, err := parser.or()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (parser *Parser) or() (ast.Expression, error) {
	expr, err := parser.and()
	if err != nil {
		return nil, err
	}
	for parser.isMatch([]token.TokenType{token.OR}) {
		op := parser.previous()
		right, err := parser.and()
		if err != nil {
			return nil, err
		}
		expr = &ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (parser *Parser) and() (ast.Expression, error) {
	expr, err := parser.equality()
	if err != nil {
		return nil, err
	}
	for parser.isMatch([]token.TokenType{token.AND}) {
		op := parser.previous()
		right, err := parser.equality()
		if err != nil {
			return nil, err
		}
		expr = &ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (parser *Parser) equality() (ast.Expression, error) {
	exp, err := parser.comparison()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(equalityTokenTypes) {
		operator := parser.previous()
		right, err := parser.comparison()
		if err != nil {
			return nil, err
		}
		exp = &ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

func (parser *Parser) comparison() (ast.Expression, error) {
	exp, err := parser.term()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(comparisonTokenTypes) {
		operator := parser.previous()
		right, err := parser.term()
		if err != nil {
			return nil, err
		}
		exp = &ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

func (parser *Parser) term() (ast.Expression, error) {
	exp, err := parser.factor()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(termTokenTypes) {
		operator := parser.previous()
		right, err := parser.factor()
		if err != nil {
			return nil, err
		}
		exp = &ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

func (parser *Parser) factor() (ast.Expression, error) {
	exp, err := parser.unary()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(factorExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		exp = &ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

func (parser *Parser) unary() (ast.Expression, error) {
	if parser.isMatch(unaryExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Operator: operator, Right: right}, nil
	}
	return parser.call()
}

// call parses a primary expression followed by any chain of postfix
// `(args)`, `.name`, `[index]`, or `[begin:end]` forms.
func (parser *Parser) call() (ast.Expression, error) {
	expr, err := parser.primary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case parser.isMatch([]token.TokenType{token.LPA}):
			expr, err = parser.finishCall(expr)
			if err != nil {
				return nil, err
			}
		case parser.isMatch([]token.TokenType{token.DOT}):
			name, err := parser.consume(token.IDENTIFIER, "Expected property name after '.'.")
			if err != nil {
				return nil, err
			}
			expr = &ast.Attribute{Target: expr, Name: name}
		case parser.isMatch([]token.TokenType{token.LBRA}):
			expr, err = parser.finishIndex(expr)
			if err != nil {
				return nil, err
			}
		default:
			return expr, nil
		}
	}
}

func (parser *Parser) finishCall(callee ast.Expression) (ast.Expression, error) {
	args := []ast.Expression{}
	if !parser.checkType(token.RPA) {
		for {
			arg, err := parser.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	paren, err := parser.consume(token.RPA, "Expected ')' after arguments.")
	if err != nil {
		return nil, err
	}
	return &ast.Call{Callee: callee, Args: args, Paren: paren}, nil
}

func (parser *Parser) finishIndex(target ast.Expression) (ast.Expression, error) {
	bracket := parser.previous()
	var begin, end ast.Expression
	var err error

	if !parser.checkType(token.COLON) {
		begin, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}

	isSlice := false
	if parser.isMatch([]token.TokenType{token.COLON}) {
		isSlice = true
		if !parser.checkType(token.RBRA) {
			end, err = parser.expression()
			if err != nil {
				return nil, err
			}
		}
	}

	if _, err := parser.consume(token.RBRA, "Expected ']' after index expression."); err != nil {
		return nil, err
	}

	return &ast.Index{Target: target, Begin: begin, End: end, IsSlice: isSlice, Bracket: bracket}, nil
}

func (parser *Parser) primary() (ast.Expression, error) {
	switch {
	case parser.isMatch([]token.TokenType{token.FALSE}):
		return &ast.Literal{Value: false}, nil
	case parser.isMatch([]token.TokenType{token.TRUE}):
		return &ast.Literal{Value: true}, nil
	case parser.isMatch([]token.TokenType{token.NULL}):
		return &ast.Literal{Value: nil}, nil
	case parser.isMatch([]token.TokenType{token.FLOAT, token.INT, token.STRING}):
		return &ast.Literal{Value: parser.previous().Literal}, nil
	case parser.isMatch([]token.TokenType{token.IDENTIFIER, token.THIS}):
		return &ast.Variable{Name: parser.previous()}, nil
	case parser.isMatch([]token.TokenType{token.LPA}):
		expr, err := parser.expression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.RPA, fmt.Sprintf("expression is missing '%s'", token.RPA)); err != nil {
			return nil, err
		}
		return &ast.Grouping{Expression: expr}, nil
	case parser.isMatch([]token.TokenType{token.LBRA}):
		return parser.listLiteral()
	case parser.isMatch([]token.TokenType{token.LCUR}):
		return parser.braceExpression()
	}

	currentToken := parser.peek()
	return nil, CreateSyntaxError(currentToken.Line, currentToken.Column, "Unrecognised expression.")
}

func (parser *Parser) listLiteral() (ast.Expression, error) {
	elements := []ast.Expression{}
	if !parser.checkType(token.RBRA) {
		for {
			el, err := parser.expression()
			if err != nil {
				return nil, err
			}
			elements = append(elements, el)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RBRA, "Expected ']' after list literal."); err != nil {
		return nil, err
	}
	return &ast.ListLiteral{Elements: elements}, nil
}

// braceExpression disambiguates `{` in expression position between an
// object literal (`{ ident: expr, ... }`) and a lambda literal
// (`{ body }` or `{ p1, p2 -> body }`).
func (parser *Parser) braceExpression() (ast.Expression, error) {
	if parser.checkType(token.RCUR) {
		parser.advance()
		return &ast.ObjectLiteral{}, nil
	}

	if parser.checkType(token.IDENTIFIER) && parser.peekAt(1).TokenType == token.COLON {
		return parser.objectLiteral()
	}

	if parser.hasTopLevelArrow() {
		return parser.lambdaWithParams()
	}

	return parser.lambdaBody(nil)
}

// hasTopLevelArrow scans forward from the parser's current position (just
// past the opening `{`) to see whether an ARROW token appears before the
// matching closing brace, without descending into nested groupings.
func (parser *Parser) hasTopLevelArrow() bool {
	depth := 0
	for i := parser.position; i < len(parser.tokens); i++ {
		tt := parser.tokens[i].TokenType
		switch tt {
		case token.LCUR, token.LPA, token.LBRA:
			depth++
		case token.RCUR:
			if depth == 0 {
				return false
			}
			depth--
		case token.RPA, token.RBRA:
			depth--
		case token.ARROW:
			if depth == 0 {
				return true
			}
		case token.EOF:
			return false
		}
	}
	return false
}

func (parser *Parser) lambdaWithParams() (ast.Expression, error) {
	params := []token.Token{}
	for {
		p, err := parser.consume(token.IDENTIFIER, "Expected parameter name in lambda.")
		if err != nil {
			return nil, err
		}
		params = append(params, p)
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
	}
	if _, err := parser.consume(token.ARROW, "Expected '->' after lambda parameters."); err != nil {
		return nil, err
	}
	return parser.lambdaBody(params)
}

func (parser *Parser) lambdaBody(params []token.Token) (ast.Expression, error) {
	statements, err := parser.block()
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{Params: params, Body: &ast.BlockStmt{Statements: statements}}, nil
}

func (parser *Parser) objectLiteral() (ast.Expression, error) {
	keys := []token.Token{}
	values := []ast.Expression{}
	for {
		key, err := parser.consume(token.IDENTIFIER, "Expected object key.")
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.COLON, "Expected ':' after object key."); err != nil {
			return nil, err
		}
		value, err := parser.expression()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		values = append(values, value)
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
		if parser.checkType(token.RCUR) {
			break
		}
	}
	if _, err := parser.consume(token.RCUR, "Expected '}' after object literal."); err != nil {
		return nil, err
	}
	return &ast.ObjectLiteral{Keys: keys, Values: values}, nil
}

// consume advances past the current token if it matches tokenType, else
// produces a SyntaxError.
func (parser *Parser) consume(tokenType token.TokenType, errorMessage string) (token.Token, error) {
	if parser.checkType(tokenType) {
		return parser.advance(), nil
	}
	currentToken := parser.peek()
	return token.CreateToken(token.EOF, 0, 0), CreateSyntaxError(currentToken.Line, currentToken.Column, errorMessage)
}
