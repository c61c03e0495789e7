package parser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"yqlang/ast"
	"yqlang/token"
)

func TestPrintASTJSON_ActionStmt(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.ActionStmt{Kind: token.SAY, Value: &ast.Literal{Value: int64(42)}},
	}

	jsonString, err := PrintASTJSON(stmts)
	if err != nil {
		t.Fatalf("PrintASTJSON error: %v", err)
	}

	var out []map[string]any
	if err := json.Unmarshal([]byte(jsonString), &out); err != nil {
		t.Fatalf("unmarshal json: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(out))
	}

	node := out[0]
	if typ, ok := node["type"].(string); !ok || typ != "ActionStmt" {
		t.Fatalf("expected type ActionStmt, got %v", node["type"])
	}

	value := node["value"]
	if num, ok := value.(float64); !ok || num != 42 {
		t.Fatalf("expected value 42, got %v", value)
	}
}

func TestPrintASTJSON_AssignStmt_NilPattern(t *testing.T) {
	name := token.CreateLiteralToken(token.IDENTIFIER, nil, "x", 0, 0)
	stmts := []ast.Stmt{
		&ast.AssignStmt{
			Target:   &ast.Variable{Name: name},
			Operator: token.CreateToken(token.ASSIGN, 0, 0),
			Value:    &ast.Literal{Value: nil},
		},
	}

	jsonStr, err := PrintASTJSON(stmts)
	if err != nil {
		t.Fatalf("PrintASTJSON error: %v", err)
	}

	var out []map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		t.Fatalf("unmarshal json: %v", err)
	}

	node := out[0]
	if typ, ok := node["type"].(string); !ok || typ != "AssignStmt" {
		t.Fatalf("expected type AssignStmt, got %v", node["type"])
	}

	target, ok := node["target"].(map[string]any)
	if !ok {
		t.Fatalf("expected target object, got %v", node["target"])
	}
	if nameVal, ok := target["name"].(string); !ok || nameVal != "x" {
		t.Fatalf("expected name 'x', got %v", target["name"])
	}
}

func TestPrintASTJSON_BinaryExpression(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.ExpressionStmt{Expression: &ast.Binary{
			Left:     &ast.Literal{Value: int64(1)},
			Operator: token.CreateToken(token.ADD, 0, 0),
			Right:    &ast.Literal{Value: int64(2)},
		}},
	}

	jsonStr, err := PrintASTJSON(stmts)
	if err != nil {
		t.Fatalf("PrintASTJSON error: %v", err)
	}

	var out []map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		t.Fatalf("unmarshal json: %v", err)
	}

	node := out[0]
	if typ, ok := node["type"].(string); !ok || typ != "ExpressionStmt" {
		t.Fatalf("expected type ExpressionStmt, got %v", node["type"])
	}

	expr, ok := node["expression"].(map[string]any)
	if !ok {
		t.Fatalf("expected expression object, got %v", node["expression"])
	}

	if typ, ok := expr["type"].(string); !ok || typ != "Binary" {
		t.Fatalf("expected Binary expression, got %v", expr["type"])
	}
	if op, ok := expr["operator"].(string); !ok || op != "+" {
		t.Fatalf("expected operator '+', got %v", expr["operator"])
	}
}

func TestWriteASTJSONToFile(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.ActionStmt{Kind: token.SAY, Value: &ast.Literal{Value: "hello yqlang!"}},
	}

	filePath := filepath.Join(os.TempDir(), "yqlang_ast_printer_test.json")
	defer os.Remove(filePath)

	if err := WriteASTJSONToFile(stmts, filePath); err != nil {
		t.Fatalf("WriteASTJSONToFile error: %v", err)
	}

	bytes, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}

	var out []map[string]any
	if err := json.Unmarshal(bytes, &out); err != nil {
		t.Fatalf("unmarshal json: %v", err)
	}

	node := out[0]
	if typ, ok := node["type"].(string); !ok || typ != "ActionStmt" {
		t.Fatalf("expected type ActionStmt, got %v", node["type"])
	}
	if value, ok := node["value"].(string); !ok || value != "hello yqlang!" {
		t.Fatalf("expected value 'hello yqlang!', got %v", node["value"])
	}
}
