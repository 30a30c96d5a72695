// Package cli holds interactive terminal prompts.
package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrNoChoices is returned by SelectOne when there is nothing to choose from.
var ErrNoChoices = errors.New("no choices given")

// SelectOptions overrides the terminal a prompt talks to.
type SelectOptions struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// SelectOne asks the user to pick one of choices and returns it. Typing
// filters choices by prefix.
func SelectOne(label string, opts SelectOptions, choices ...string) (string, error) {
	if len(choices) == 0 {
		return "", ErrNoChoices
	}

	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	sel := &promptui.Select{
		Label: label,
		Items: choices,
		Searcher: func(input string, index int) bool {
			return strings.HasPrefix(strings.ToLower(choices[index]), strings.ToLower(input))
		},
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
	}

	_, value, err := sel.Run()
	if err != nil {
		return "", err
	}

	return value, nil
}
