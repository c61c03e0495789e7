package token

import "testing"

func TestCreateToken(t *testing.T) {
	tok := CreateToken(ASSIGN, 3, 7)
	if tok.TokenType != ASSIGN || tok.Lexeme != "=" || tok.Line != 3 || tok.Column != 7 {
		t.Errorf("CreateToken(ASSIGN, 3, 7) = %+v", tok)
	}
}

func TestCreateLiteralToken(t *testing.T) {
	tok := CreateLiteralToken(INT, int64(42), "42", 1, 0)
	if tok.TokenType != INT || tok.Literal != int64(42) || tok.Lexeme != "42" {
		t.Errorf("CreateLiteralToken(INT, 42, ...) = %+v", tok)
	}
}

func TestKeywordLookup(t *testing.T) {
	cases := map[string]TokenType{
		"func":     FUNC,
		"say":      SAY,
		"nudge":    NUDGE,
		"picsave":  PICSAVE,
		"picsend":  PICSEND,
		"init":     INIT,
		"this":     THIS,
		"continue": CONTINUE,
		"in":       IN,
	}
	for lexeme, want := range cases {
		got, ok := KeyWords[lexeme]
		if !ok {
			t.Errorf("expected %q to be a keyword", lexeme)
			continue
		}
		if got != want {
			t.Errorf("KeyWords[%q] = %v, want %v", lexeme, got, want)
		}
	}
	if _, ok := KeyWords["notAKeyword"]; ok {
		t.Errorf("did not expect 'notAKeyword' to be a registered keyword")
	}
}
