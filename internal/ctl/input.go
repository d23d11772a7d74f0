package ctl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sgics/sgics/internal/common"
	"golang.org/x/term"
)

// readPassword and isTerminal are test seams for golang.org/x/term.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var errPasswordMismatch = errors.New("passwords do not match")

// terminalPrompt returns a prompt that reads a password twice from the
// terminal without echo, or nil when stdin is not a terminal.
func terminalPrompt(w io.Writer) func() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return nil
	}
	return func() ([]byte, error) {
		pw, err := getPassword(w, fd, "Password: ")
		if err != nil {
			return nil, err
		}
		if len(pw) == 0 {
			return nil, nil
		}
		again, err := getPassword(w, fd, "Password (again): ")
		if err != nil {
			common.WipeByteArray(pw)
			return nil, err
		}
		defer common.WipeByteArray(again)
		if !bytes.Equal(pw, again) {
			common.WipeByteArray(pw)
			return nil, errPasswordMismatch
		}
		return pw, nil
	}
}

// getPassword prints prompt to w and reads a line from fd without echo. A
// newline is printed after the read to keep the terminal tidy.
func getPassword(w io.Writer, fd int, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}
