package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/npillmayer/ovm"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// Token types of inspector commands.
const (
	tokWord = iota + 1
	tokNum
	tokString
)

var cmdLexer *lexmachine.Lexer
var cmdLexerErr error
var lexerOnce sync.Once // monitors one-time creation of the lexer

func commandLexer() (*lexmachine.Lexer, error) {
	lexerOnce.Do(func() {
		lexer := lexmachine.NewLexer()
		lexer.Add([]byte(`([a-z]|[A-Z])([a-z]|[A-Z]|[0-9]|_|-)*`), makeToken(tokWord))
		lexer.Add([]byte(`\-?[0-9]+`), makeToken(tokNum))
		lexer.Add([]byte(`\"[^"]*\"`), makeToken(tokString))
		lexer.Add([]byte(`( |\t|\n|\r)+`), skip)
		if err := lexer.Compile(); err != nil {
			gtrace.SyntaxTracer.Errorf("Error compiling DFA: %v", err)
			cmdLexerErr = err
			return
		}
		cmdLexer = lexer
	})
	return cmdLexer, cmdLexerErr
}

func skip(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return nil, nil
}

func makeToken(id int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(id, string(m.Bytes), m), nil
	}
}

// command is a scanned inspector command: a verb followed by arguments.
type command struct {
	verb string
	args []*lexmachine.Token
}

var errNoCommand = errors.New("command expected")

// scanCommand splits an input line into a command. An empty line yields a
// command with an empty verb.
func scanCommand(line string) (command, error) {
	lexer, err := commandLexer()
	if err != nil {
		return command{}, err
	}
	s, err := lexer.Scanner([]byte(line))
	if err != nil {
		return command{}, err
	}
	var toks []*lexmachine.Token
	for tok, err, eof := s.Next(); !eof; tok, err, eof = s.Next() {
		if err != nil {
			if ui, is := err.(*machines.UnconsumedInput); is {
				return command{}, fmt.Errorf("unexpected input at column %d", ui.FailTC+1)
			}
			return command{}, err
		}
		toks = append(toks, tok.(*lexmachine.Token))
	}
	if len(toks) == 0 {
		return command{}, nil
	}
	if toks[0].Type != tokWord {
		return command{}, fmt.Errorf("%w, have %q", errNoCommand, toks[0].Lexeme)
	}
	cmd := command{
		verb: strings.ToLower(string(toks[0].Lexeme)),
		args: toks[1:],
	}
	tracer().Debugf("command %s with %d argument(s)", cmd.verb, len(cmd.args))
	return cmd, nil
}

// handle returns argument i as a handle. If the argument is missing, def is
// returned if given.
func (cmd command) handle(i int, def ...ovm.Handle) (ovm.Handle, error) {
	if i >= len(cmd.args) {
		if len(def) > 0 {
			return def[0], nil
		}
		return 0, fmt.Errorf("%s: handle expected", cmd.verb)
	}
	tok := cmd.args[i]
	if tok.Type != tokNum {
		return 0, fmt.Errorf("%s: handle expected, have %q", cmd.verb, tok.Lexeme)
	}
	n, err := strconv.ParseInt(string(tok.Lexeme), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", cmd.verb, err)
	}
	return ovm.Handle(n), nil
}

// str returns argument i as an unquoted string.
func (cmd command) str(i int) (string, error) {
	if i >= len(cmd.args) || cmd.args[i].Type != tokString {
		return "", fmt.Errorf("%s: quoted string expected", cmd.verb)
	}
	lexeme := string(cmd.args[i].Lexeme)
	return lexeme[1 : len(lexeme)-1], nil
}
