package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers to interactive questions. Passwords are read
// without echo when In is a terminal.
type Prompter struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

// NewPrompter returns a Prompter on stdin and stderr.
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr}
}

func (p *Prompter) lines() *bufio.Scanner {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	return p.scanner
}

// Line asks label and returns the trimmed answer.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprintf(p.Out, "%s: ", label)
	s := p.lines()
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(s.Text()), nil
}

// Password asks label and returns the answer as typed.
func (p *Prompter) Password(label string) (string, error) {
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(p.Out, "%s: ", label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	fmt.Fprintf(p.Out, "%s: ", label)
	s := p.lines()
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimRight(s.Text(), "\r"), nil
}
