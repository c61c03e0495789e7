package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"yqlang/token"
)

const (
	HASH_COMMENT_CHAR = '#'
)

// closingQuote maps an opening string delimiter to its matching closer.
// yqlang accepts the plain ASCII quote as well as the typographic ones,
// so `"foo"`, `'foo'`, `“foo”` and `‘foo’` are all valid string literals.
var closingQuote = map[rune]rune{
	'"': '"',
	'\'': '\'',
	'“': '”',
	'‘': '’',
}

func isLetter(char rune) bool {
	return rune('a') <= char && char <= rune('z') || rune('A') <= char && char <= rune('Z') || char == rune('_')
}

func isNumber(char rune) bool {
	return rune('0') <= char && char <= rune('9')
}

func isIdentifierPart(char rune) bool {
	return isLetter(char) || isNumber(char)
}

// Lexer represents a lexical scanner for processing input text into tokens.
// It maintains the current scanning state, including the position within the
// input, the current character, and metadata for line/column tracking.
// The Lexer also records tokens and errors encountered during scanning.
type Lexer struct {
	// rune slice of the input string being scanned.
	characters []rune

	// Total number of runes in the input.
	totalChars int

	// Stores the sequence of tokens produced during lexing.
	tokens []token.Token

	// The index of the character that was previously read
	position int

	// The current character being examined.
	currentChar rune

	// The index of the next position where the next character
	// will be read
	readPosition int

	// Tracks the number of lines processed (incremented on newline).
	lineCount int32

	// Tracks the character's position within the current line.
	// Gets reset on every new line back to 0
	column int

	// Stores any scanning errors that occur during lexing.
	errors []error
}

// New initializes and returns a new Lexer instance for the given source text.
func New(input string) *Lexer {
	lexer := &Lexer{
		characters: []rune(input),
	}
	lexer.totalChars = len(lexer.characters)
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) advance() {
	lexer.position = lexer.readPosition
	lexer.readPosition++
	lexer.column = lexer.readPosition
}

func (lexer *Lexer) isFinished() bool {
	return lexer.readPosition >= lexer.totalChars
}

func (lexer *Lexer) readChar() {
	if lexer.isFinished() {
		lexer.currentChar = rune(0)
	} else {
		lexer.currentChar = lexer.characters[lexer.readPosition]
	}
	lexer.advance()
}

func (lexer *Lexer) readIllegal(startPos int) string {
	for !lexer.isWhiteSpace(lexer.currentChar) && !lexer.isFinished() {
		lexer.readChar()
	}
	return string(lexer.characters[startPos:lexer.readPosition])
}

// peek returns the character at the Lexer's readPosition without consuming it.
func (lexer *Lexer) peek() rune {
	if lexer.isFinished() {
		return rune(0)
	}
	return lexer.characters[lexer.readPosition]
}

func (lexer *Lexer) peekNext() rune {
	nextReadPos := lexer.readPosition + 1
	if nextReadPos >= lexer.totalChars {
		return rune(0)
	}
	return lexer.characters[nextReadPos]
}

// handleHashComment consumes until end of line; the scanner calls it for
// both `#...` and `//...` line comments.
func (lexer *Lexer) handleHashComment() {
	for lexer.currentChar != rune('\n') && !lexer.isFinished() {
		lexer.readChar()
	}
}

// handleNumber scans a sequence of digits (and at most one decimal point) from
// the input and creates an integer or floating-point literal token accordingly.
func (lexer *Lexer) handleNumber() error {
	initPos := lexer.position
	decimalCount := 0

	for {
		nextChar := lexer.peek()
		if nextChar == rune(0) || nextChar == rune('\n') || !isNumber(nextChar) && nextChar != rune('.') {
			break
		}
		if nextChar == '.' {
			// handles numbers such as 1.
			if lexer.peekNext() == rune(0) || !isNumber(lexer.peekNext()) {
				break
			}
			// handles numbers such as 1.1.
			if decimalCount == 1 {
				illegalNumber := lexer.readIllegal(initPos)
				return CreateTokenizerMessageError(lexer.lineCount, lexer.column, fmt.Sprintf("invalid number: '%s'", string(illegalNumber)))
			}
			decimalCount++
		}
		lexer.advance()
	}
	number := string(lexer.characters[initPos:lexer.readPosition])
	var tok token.Token

	if decimalCount == 0 {
		result, _ := strconv.ParseInt(number, 0, 64)
		tok = token.CreateLiteralToken(token.INT, result, number, lexer.lineCount, lexer.column)
	} else {
		result, _ := strconv.ParseFloat(number, 64)
		tok = token.CreateLiteralToken(token.FLOAT, result, number, lexer.lineCount, lexer.column)
	}
	lexer.tokens = append(lexer.tokens, tok)

	return nil
}

// handleIdentifier processes a user identifier or a language keyword.
func (lexer *Lexer) handleIdentifier() {
	initPos := lexer.position
	for {
		result := lexer.peek()
		if result == rune(0) || !isIdentifierPart(result) {
			break
		}
		lexer.advance()
	}

	identifier := lexer.characters[initPos:lexer.readPosition]
	lexeme := token.Token{
		TokenType: token.IDENTIFIER,
		Lexeme:    string(identifier),
		Line:      lexer.lineCount,
		Column:    lexer.column,
	}

	if keywordType, exists := token.KeyWords[lexeme.Lexeme]; exists {
		lexeme.TokenType = keywordType
	}

	lexer.tokens = append(lexer.tokens, lexeme)
}

// handleArgRef recognizes the reserved `$` and `$N` forms used to name the
// argument list and its positional elements inside a lambda body.
func (lexer *Lexer) handleArgRef() {
	initPos := lexer.position
	for isNumber(lexer.peek()) {
		lexer.advance()
	}
	lexeme := string(lexer.characters[initPos:lexer.readPosition])
	lexer.tokens = append(lexer.tokens, token.Token{
		TokenType: token.IDENTIFIER,
		Lexeme:    lexeme,
		Line:      lexer.lineCount,
		Column:    lexer.column,
	})
}

// handleStringLiteral processes string literals delimited by any of the
// quote characters in closingQuote. raw disables escape-sequence processing
// (the `r"..."` form).
func (lexer *Lexer) handleStringLiteral(opening rune, raw bool) error {
	closer := closingQuote[opening]
	initPos := lexer.position
	isClosed := false
	var sb strings.Builder

	for {
		result := lexer.peek()
		if result == 0 {
			break
		}
		lexer.advance()
		if result == closer {
			isClosed = true
			break
		}
		if result == '\\' && !raw {
			escaped := lexer.peek()
			lexer.advance()
			switch escaped {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '\\':
				sb.WriteRune('\\')
			default:
				sb.WriteRune(escaped)
			}
			continue
		}
		sb.WriteRune(result)
	}

	if !isClosed {
		return CreateTokenizerMessageError(lexer.lineCount, lexer.column, fmt.Sprintf("unclosed string literal: '%s'", string(lexer.characters[initPos+1:lexer.readPosition])))
	}

	stringLiteral := sb.String()
	lexer.tokens = append(lexer.tokens, token.CreateLiteralToken(token.STRING, stringLiteral, stringLiteral, lexer.lineCount, lexer.column))
	return nil
}

// isMatch determines if the next character in the source matches `expected`,
// consuming it if so.
func (lexer *Lexer) isMatch(expected rune) bool {
	if lexer.isFinished() {
		return false
	}
	if lexer.characters[lexer.readPosition] == expected {
		lexer.readPosition++
		return true
	}
	return false
}

// isWhiteSpace determines whether a given rune represents whitespace.
func (lexer *Lexer) isWhiteSpace(char rune) bool {
	if char == rune(' ') || char == rune('\r') || char == rune('\t') {
		return true
	}
	if lexer.currentChar == rune('\n') {
		lexer.lineCount++
		lexer.column = 0
		return true
	}
	return false
}

func (lexer *Lexer) skipWhiteSpace() {
	for lexer.isWhiteSpace(lexer.currentChar) {
		lexer.readChar()
	}
}

// createToken processes the current character and creates a token if applicable.
func (lexer *Lexer) createToken() {
	lexer.skipWhiteSpace()

	switch lexer.currentChar {
	case rune('('):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LPA, lexer.lineCount, lexer.column))
	case rune(')'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RPA, lexer.lineCount, lexer.column))
	case rune('['):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LBRA, lexer.lineCount, lexer.column))
	case rune(']'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RBRA, lexer.lineCount, lexer.column))
	case rune('{'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LCUR, lexer.lineCount, lexer.column))
	case rune('}'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RCUR, lexer.lineCount, lexer.column))
	case rune(';'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.SEMICOLON, lexer.lineCount, lexer.column))
	case rune(','):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.COMMA, lexer.lineCount, lexer.column))
	case rune(':'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.COLON, lexer.lineCount, lexer.column))
	case rune('.'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.DOT, lexer.lineCount, lexer.column))
	case rune('*'):
		tok := token.CreateToken(token.MULT, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.MULT_ASSIGN, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('%'):
		tok := token.CreateToken(token.MOD, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.MOD_ASSIGN, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('+'):
		tok := token.CreateToken(token.ADD, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.PLUS_ASSIGN, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('-'):
		tok := token.CreateToken(token.SUB, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('>')) {
			tok = token.CreateToken(token.ARROW, lexer.lineCount, lexer.column)
		} else if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.MINUS_ASSIGN, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('/'):
		if lexer.peek() == rune('/') {
			lexer.handleHashComment()
			break
		}
		tok := token.CreateToken(token.DIV, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.DIV_ASSIGN, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('='):
		tok := token.CreateToken(token.ASSIGN, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.EQUAL_EQUAL, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('!'):
		tok := token.CreateToken(token.BANG, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.NOT_EQUAL, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('<'):
		tok := token.CreateToken(token.LESS, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.LESS_EQUAL, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('>'):
		tok := token.CreateToken(token.LARGER, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.LARGER_EQUAL, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('&'):
		if lexer.isMatch(rune('&')) {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.AND, lexer.lineCount, lexer.column))
		} else {
			position, column, currentChar := lexer.position, lexer.column, lexer.currentChar
			illegal := lexer.readIllegal(position)
			lexer.errors = append(lexer.errors, CreateTokenizerError(lexer.lineCount, column, currentChar, illegal))
		}
	case rune('|'):
		if lexer.isMatch(rune('|')) {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.OR, lexer.lineCount, lexer.column))
		} else {
			position, column, currentChar := lexer.position, lexer.column, lexer.currentChar
			illegal := lexer.readIllegal(position)
			lexer.errors = append(lexer.errors, CreateTokenizerError(lexer.lineCount, column, currentChar, illegal))
		}
	case rune('$'):
		lexer.handleArgRef()
	case rune('"'), rune('\''), rune('“'), rune('‘'):
		err := lexer.handleStringLiteral(lexer.currentChar, false)
		if err != nil {
			lexer.errors = append(lexer.errors, err)
		}
	case rune(HASH_COMMENT_CHAR):
		lexer.handleHashComment()
	default:
		if lexer.currentChar == 'r' && (lexer.peek() == '"' || lexer.peek() == '\'') {
			lexer.readChar()
			err := lexer.handleStringLiteral(lexer.currentChar, true)
			if err != nil {
				lexer.errors = append(lexer.errors, err)
			}
		} else if isLetter(lexer.currentChar) {
			lexer.handleIdentifier()
		} else if isNumber(lexer.currentChar) || lexer.currentChar == rune('.') {
			err := lexer.handleNumber()
			if err != nil {
				lexer.errors = append(lexer.errors, err)
			}
		} else if !lexer.isFinished() {
			position := lexer.position
			column := lexer.column
			currentChar := lexer.currentChar
			illegal := lexer.readIllegal(position)

			lexer.errors = append(lexer.errors, CreateTokenizerError(lexer.lineCount, column, currentChar, illegal))
		}
	}

	lexer.readChar()
}

// Scan performs lexical analysis on the input and returns the token stream.
func (lexer *Lexer) Scan() ([]token.Token, error) {
	if lexer.totalChars > 1 {
		for lexer.currentChar != rune(0) {
			lexer.createToken()
			if len(lexer.errors) == 1 {
				return lexer.tokens, lexer.errors[0]
			}
		}
	} else {
		lexer.createToken()
		if len(lexer.errors) == 1 {
			return lexer.tokens, lexer.errors[0]
		}
	}
	lexer.tokens = append(lexer.tokens, token.CreateToken(token.EOF, lexer.lineCount, lexer.column))
	return lexer.tokens, nil
}
