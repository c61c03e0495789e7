package resolver

import (
	"testing"

	"yqlang/ast"
	"yqlang/lexer"
	"yqlang/parser"
	"yqlang/value"
)

func parseProgram(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	toks, err := lexer.New(src).Scan()
	if err != nil {
		t.Fatalf("lexer error: %v", err)
	}
	stmts, errs := parser.Make(toks).Parse()
	if len(errs) > 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return stmts
}

func TestResolveGlobalCreatedOnFirstReference(t *testing.T) {
	stmts := parseProgram(t, "x = 1; y = x + 1;")
	mem := value.NewMemory()
	res, err := Resolve(stmts, mem)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(mem.Globals) != 2 {
		t.Fatalf("expected 2 globals, got %d (%v)", len(mem.Globals), mem.GlobalNames)
	}
	assign := stmts[1].(*ast.AssignStmt)
	xRef := assign.Value.(*ast.Binary).Left.(*ast.Variable)
	b, ok := res.Bindings[xRef]
	if !ok || b.Type != GLOBAL {
		t.Fatalf("expected x to resolve as GLOBAL, got %+v ok=%v", b, ok)
	}
}

func TestResolveReadOfUndefinedNameErrors(t *testing.T) {
	stmts := parseProgram(t, "y = z + 1;")
	_, err := Resolve(stmts, value.NewMemory())
	if err == nil {
		t.Fatalf("expected a NameError for reading an undefined name")
	}
	re, ok := err.(ResolutionError)
	if !ok || re.Kind != NameError {
		t.Fatalf("expected NameError, got %#v", err)
	}
}

func TestResolveLambdaCapturesEnclosingLocal(t *testing.T) {
	stmts := parseProgram(t, `
		counter = {
			total = 0;
			inc = { total = total + 1; return total; };
			return inc;
		};
	`)
	res, err := Resolve(stmts, value.NewMemory())
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	outerAssign := stmts[0].(*ast.AssignStmt)
	outerLambda := outerAssign.Value.(*ast.Lambda)
	outerInfo := res.LambdaFrames[outerLambda]
	if len(outerInfo.CellLocals) != 1 {
		t.Fatalf("expected outer frame to have 1 promoted cell local, got %v", outerInfo.CellLocals)
	}

	innerBlock := outerLambda.Body.(*ast.BlockStmt)
	var innerLambda *ast.Lambda
	for _, s := range innerBlock.Statements {
		if as, ok := s.(*ast.AssignStmt); ok {
			if lam, ok := as.Value.(*ast.Lambda); ok {
				innerLambda = lam
			}
		}
	}
	if innerLambda == nil {
		t.Fatalf("could not find inner lambda in parsed AST")
	}
	innerInfo := res.LambdaFrames[innerLambda]
	if len(innerInfo.Captures) != 1 || innerInfo.Captures[0].FromType != LOCAL {
		t.Fatalf("expected inner frame to capture the outer local, got %+v", innerInfo.Captures)
	}
}

func TestResolveDuplicateParamIsRedeclarationError(t *testing.T) {
	stmts := parseProgram(t, "f = { a, a -> return a; };")
	_, err := Resolve(stmts, value.NewMemory())
	if err == nil {
		t.Fatalf("expected a RedeclarationError for duplicate parameter names")
	}
	re, ok := err.(ResolutionError)
	if !ok || re.Kind != RedeclarationError {
		t.Fatalf("expected RedeclarationError, got %#v", err)
	}
}

func TestResolveAssignToThisIsReservedNameMisuse(t *testing.T) {
	stmts := parseProgram(t, "this = 1;")
	_, err := Resolve(stmts, value.NewMemory())
	if err == nil {
		t.Fatalf("expected a ReservedNameMisuse error")
	}
	re, ok := err.(ResolutionError)
	if !ok || re.Kind != ReservedNameMisuse {
		t.Fatalf("expected ReservedNameMisuse, got %#v", err)
	}
}

func TestResolveTopLevelForLoopPatternBindsGlobal(t *testing.T) {
	stmts := parseProgram(t, "for x in [1, 2, 3] { y = x; }")
	mem := value.NewMemory()
	if _, err := Resolve(stmts, mem); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(mem.Globals) != 2 {
		t.Fatalf("expected loop variable + y as 2 globals, got %d (%v)", len(mem.Globals), mem.GlobalNames)
	}
}
