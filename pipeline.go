package main

import (
	"fmt"
	"os"

	"yqlang/compiler"
	"yqlang/lexer"
	"yqlang/parser"
	"yqlang/resolver"
	"yqlang/value"
)

// compileSource runs the full front end — lex, parse, resolve, compile — and
// returns the first failing stage's error. Parse errors are also printed,
// every one of them, to stderr; the other stages' errors are only returned.
// mem is nil on a lex or parse error and is returned alongside a resolve or
// compile error, since the resolver may have already defined global slots a
// caller wants to inspect.
func compileSource(source string) (*compiler.Bytecode, *value.Memory, error) {
	lex := lexer.New(source)
	tokens, err := lex.Scan()
	if err != nil {
		return nil, nil, err
	}

	p := parser.Make(tokens)
	statements, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		for _, pErr := range parseErrs {
			fmt.Fprintln(os.Stderr, pErr)
		}
		return nil, nil, parseErrs[0]
	}

	mem := value.NewMemory()
	res, err := resolver.Resolve(statements, mem)
	if err != nil {
		return nil, mem, err
	}

	bc, err := compiler.Compile(statements, res, mem)
	if err != nil {
		return nil, mem, err
	}

	return bc, mem, nil
}
