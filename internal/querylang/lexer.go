package querylang

import "strings"

// Kind classifies a token.
type Kind uint8

const (
	TokEOF Kind = iota
	TokWord
	TokQuoted
	TokColon
	TokMinus
	TokTilde
	TokPipe
	TokLParen
	TokRParen
	TokDotDot
	TokLt
	TokLte
	TokGt
	TokGte
	TokComma
)

func (k Kind) String() string {
	switch k {
	case TokEOF:
		return "end of query"
	case TokWord:
		return "word"
	case TokQuoted:
		return "quoted text"
	case TokColon:
		return "':'"
	case TokMinus:
		return "'-'"
	case TokTilde:
		return "'~'"
	case TokPipe:
		return "'|'"
	case TokLParen:
		return "'('"
	case TokRParen:
		return "')'"
	case TokDotDot:
		return "'..'"
	case TokLt:
		return "'<'"
	case TokLte:
		return "'<='"
	case TokGt:
		return "'>'"
	case TokGte:
		return "'>='"
	case TokComma:
		return "','"
	}
	return "token"
}

// Token is a lexical unit. Wild is set on unquoted words containing '*' or
// '?'; quoted text is always literal.
type Token struct {
	Kind Kind
	Text string
	Pos  int
	Wild bool
}

// Tokenize splits input into tokens terminated by a TokEOF token.
//
// '-' and '~' are prefix operators only where a term can start (beginning of
// input, after whitespace, '(' , '|', or another prefix); elsewhere they are
// part of the surrounding word, so "s1=e1-e12" stays one word.
func Tokenize(input string) ([]Token, error) {
	var toks []Token
	termStart := true
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case isSpace(c):
			i++
			termStart = true
			continue
		case c == '"':
			tok, next, err := lexQuoted(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
			termStart = false
			continue
		case c == '(':
			toks = append(toks, Token{Kind: TokLParen, Text: "(", Pos: i})
			i++
			termStart = true
			continue
		case c == ')':
			toks = append(toks, Token{Kind: TokRParen, Text: ")", Pos: i})
			i++
			termStart = false
			continue
		case c == '|':
			toks = append(toks, Token{Kind: TokPipe, Text: "|", Pos: i})
			i++
			termStart = true
			continue
		case c == ',':
			toks = append(toks, Token{Kind: TokComma, Text: ",", Pos: i})
			i++
			termStart = false
			continue
		case c == ':':
			toks = append(toks, Token{Kind: TokColon, Text: ":", Pos: i})
			i++
			termStart = false
			continue
		case c == '<' || c == '>':
			kind, text := TokLt, "<"
			if c == '>' {
				kind, text = TokGt, ">"
			}
			if i+1 < len(input) && input[i+1] == '=' {
				text += "="
				if kind == TokLt {
					kind = TokLte
				} else {
					kind = TokGte
				}
			}
			toks = append(toks, Token{Kind: kind, Text: text, Pos: i})
			i += len(text)
			termStart = false
			continue
		case c == '.' && i+1 < len(input) && input[i+1] == '.':
			toks = append(toks, Token{Kind: TokDotDot, Text: "..", Pos: i})
			i += 2
			termStart = false
			continue
		case termStart && (c == '-' || c == '~'):
			kind := TokMinus
			if c == '~' {
				kind = TokTilde
			}
			toks = append(toks, Token{Kind: kind, Text: string(c), Pos: i})
			i++
			continue
		}

		start := i
		for i < len(input) && !endsWord(input, i) {
			i++
		}
		text := input[start:i]
		toks = append(toks, Token{
			Kind: TokWord,
			Text: text,
			Pos:  start,
			Wild: strings.ContainsAny(text, "*?"),
		})
		termStart = false
	}
	toks = append(toks, Token{Kind: TokEOF, Pos: len(input)})
	return toks, nil
}

func lexQuoted(input string, start int) (Token, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		switch {
		case c == '\\' && i+1 < len(input):
			b.WriteByte(input[i+1])
			i += 2
		case c == '"':
			return Token{Kind: TokQuoted, Text: b.String(), Pos: start}, i + 1, nil
		default:
			b.WriteByte(c)
			i++
		}
	}
	return Token{}, 0, errorf(start, "unterminated quote")
}

func endsWord(input string, i int) bool {
	c := input[i]
	if isSpace(c) {
		return true
	}
	switch c {
	case '"', '(', ')', ':', '|', ',', '<', '>':
		return true
	case '.':
		return i+1 < len(input) && input[i+1] == '.'
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
