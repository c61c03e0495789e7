package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"yqlang/driver"
	"yqlang/lexer"
	"yqlang/parser"
	"yqlang/token"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"
)

// replCmd implements the REPL: each accepted block is compiled from scratch
// and run through the driver against the same persisted globals as the
// session progresses, so a variable assigned in one line is still visible in
// the next.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive yqlang session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive yqlang session.
`
}
func (*replCmd) SetFlags(f *flag.FlagSet) {}

func (*replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("\nWelcome to yqlang!")

	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to start readline: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	var buffer strings.Builder
	var state []byte

	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return subcommands.ExitSuccess
			}
			fmt.Fprintf(os.Stderr, "💥 %s\n", err)
			return subcommands.ExitFailure
		}

		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		if !readyToCompile(source) {
			continue
		}

		bc, mem, err := compileSource(source)
		if err != nil {
			fmt.Fprintln(os.Stderr, driver.ClassifyCompileError(err))
			buffer.Reset()
			continue
		}

		tmpl := driver.NewTemplate(bc, mem)
		opts := driver.NewOptions(driver.WithAllowance(driver.DefaultTotalAllowanceMS))
		pool := driver.NewPool(tmpl, stdoutHost{}, opts)

		res := pool.Run(ctx, state, nil)
		if res.Err != nil {
			fmt.Fprintln(os.Stderr, res.Err)
		} else {
			state = res.State
		}
		buffer.Reset()
	}
}

// readyToCompile tentatively lexes/parses source and reports whether it
// looks finished rather than merely waiting on the next line: braces must
// balance, and the parse must either succeed or fail somewhere before EOF
// (an error compileSource then reports). Parse errors only at EOF mean the
// input is incomplete.
func readyToCompile(source string) bool {
	lex := lexer.New(source)
	tokens, err := lex.Scan()
	if err != nil {
		return true // let compileSource report the lexing error
	}
	if !isInputReady(tokens) {
		return false
	}

	p := parser.Make(tokens)
	_, parseErrs := p.Parse()
	if len(parseErrs) == 0 {
		return true
	}
	return !allParseErrorsAtEOF(parseErrs, tokens[len(tokens)-1])
}

// isInputReady checks whether source looks complete: braces balanced, and
// the last non-EOF token isn't one that obviously expects a continuation.
func isInputReady(tokens []token.Token) bool {
	braceBalance := 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.LCUR:
			braceBalance++
		case token.RCUR:
			braceBalance--
		}
	}
	if braceBalance > 0 {
		return false
	}

	last := lastNonEOF(tokens)
	if last == nil {
		return true
	}

	switch last.TokenType {
	case token.ASSIGN,
		token.PLUS_ASSIGN,
		token.MINUS_ASSIGN,
		token.MULT_ASSIGN,
		token.DIV_ASSIGN,
		token.MOD_ASSIGN,
		token.ADD,
		token.SUB,
		token.MULT,
		token.DIV,
		token.MOD,
		token.BANG,
		token.EQUAL_EQUAL,
		token.NOT_EQUAL,
		token.LESS,
		token.LESS_EQUAL,
		token.LARGER,
		token.LARGER_EQUAL,
		token.COMMA,
		token.LPA,
		token.LCUR,
		token.IF,
		token.ELSE,
		token.WHILE,
		token.FOR,
		token.FUNC,
		token.RETURN,
		token.VAR,
		token.AND,
		token.OR:
		return false
	}
	return true
}

// lastNonEOF returns the last non-EOF token, or nil if every token is EOF.
func lastNonEOF(tokens []token.Token) *token.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].TokenType != token.EOF {
			return &tokens[i]
		}
	}
	return nil
}

// allParseErrorsAtEOF reports whether every parse error is a syntax error
// located at the EOF token's position — the signature of input that simply
// isn't finished yet, rather than an actual mistake.
func allParseErrorsAtEOF(parseErrs []error, eof token.Token) bool {
	for _, parseErr := range parseErrs {
		syntaxErr, ok := parseErr.(parser.SyntaxError)
		if !ok {
			return false
		}
		if syntaxErr.Line != eof.Line || syntaxErr.Column != eof.Column {
			return false
		}
	}
	return len(parseErrs) > 0
}
