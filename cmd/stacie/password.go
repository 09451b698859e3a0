package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/vaultsandbox/stacie"
)

var errNoPassword = errors.New("no password: use --password-file or run on a terminal")

// readPassword reads the password from --password-file ("-" for stdin) or
// prompts on the terminal, and moves it into a buffer from the engine's
// allocator. The intermediate copy is cleared.
func (a *app) readPassword(engine *stacie.Engine) (*stacie.SecureBuffer, error) {
	raw, err := a.rawPassword()
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	password := bytes.TrimRight(raw, "\r\n")
	if len(password) == 0 {
		return nil, errors.New("empty password")
	}

	buf, err := engine.Allocator().Alloc(len(password))
	if err != nil {
		return nil, fmt.Errorf("allocate password buffer: %w", err)
	}
	copy(buf.Bytes(), password)
	return buf, nil
}

func (a *app) rawPassword() ([]byte, error) {
	switch a.passwordFile {
	case "-":
		raw, err := io.ReadAll(a.streams.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read password from stdin: %w", err)
		}
		return raw, nil
	case "":
	default:
		raw, err := os.ReadFile(a.passwordFile)
		if err != nil {
			return nil, fmt.Errorf("read password file: %w", err)
		}
		return raw, nil
	}

	f, ok := a.streams.Stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, errNoPassword
	}
	fmt.Fprint(a.streams.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.streams.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return raw, nil
}
