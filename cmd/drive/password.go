package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// PasswordEnv holds a new user's password for scripted setup.
const PasswordEnv = "DRIVE_PASSWORD"

// readPassword returns $DRIVE_PASSWORD if set. Otherwise it prompts twice on
// out and reads from in without echo, which requires in to be a terminal.
func readPassword(in *os.File, out io.Writer) (string, error) {
	if p := os.Getenv(PasswordEnv); p != "" {
		return p, nil
	}

	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to prompt for a password: set %s", PasswordEnv)
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(first) == 0 {
		return "", errors.New("password must not be empty")
	}

	fmt.Fprint(out, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if !bytes.Equal(first, second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
