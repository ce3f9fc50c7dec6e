// Package prompt asks the operator for confirmation and selections.
// Forms are rendered with huh on a terminal; otherwise a plain line
// prompt is used so answers can be piped in.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrCancelled is returned when the operator quits a prompt.
var ErrCancelled = errors.New("cancelled by user")

// ConfirmWord is the literal answer that confirms a destructive action.
const ConfirmWord = "yes"

// Prompter reads answers from In and writes prompts to Out.
type Prompter struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool

	scanner *bufio.Scanner
}

// New returns a Prompter on stdin/stdout, interactive when both are
// terminals.
func New() *Prompter {
	return &Prompter{
		In:          os.Stdin,
		Out:         os.Stdout,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (p *Prompter) readLine() (string, error) {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// Confirm asks the operator to type ConfirmWord. Any other answer,
// including EOF, declines.
func (p *Prompter) Confirm(title, description string) (bool, error) {
	var answer string
	if p.Interactive {
		err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description(description).
				Placeholder(ConfirmWord).
				Value(&answer),
		)).WithTheme(huh.ThemeBase16()).Run()
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	} else {
		if description != "" {
			fmt.Fprintln(p.Out, description)
		}
		fmt.Fprintf(p.Out, "%s (type '%s' to continue): ", title, ConfirmWord)
		line, err := p.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.Out)
			return false, nil
		}
		if err != nil {
			return false, err
		}
		answer = line
	}
	return strings.TrimSpace(answer) == ConfirmWord, nil
}

// Choice is one selectable item.
type Choice struct {
	Label string
	Value string
}

// Select asks the operator to pick one of choices. Entering "q" on the
// plain prompt cancels.
func (p *Prompter) Select(title string, choices []Choice) (Choice, error) {
	if len(choices) == 0 {
		return Choice{}, errors.New("nothing to select")
	}

	if p.Interactive {
		idx := 0
		opts := make([]huh.Option[int], 0, len(choices))
		for i, c := range choices {
			opts = append(opts, huh.NewOption(c.Label, i))
		}
		err := huh.NewForm(huh.NewGroup(
			huh.NewSelect[int]().
				Title(title).
				Options(opts...).
				Value(&idx),
		)).WithTheme(huh.ThemeBase16()).Run()
		if errors.Is(err, huh.ErrUserAborted) {
			return Choice{}, ErrCancelled
		}
		if err != nil {
			return Choice{}, err
		}
		return choices[idx], nil
	}

	rule := strings.Repeat("=", 60)
	fmt.Fprintf(p.Out, "\n%s\n%s\n%s\n", rule, title, strings.Repeat("-", 60))
	for i, c := range choices {
		fmt.Fprintf(p.Out, "  %d. %s\n", i+1, c.Label)
	}
	fmt.Fprintln(p.Out, rule)

	for {
		fmt.Fprintf(p.Out, "\nSelect number (or 'q' to quit): ")
		line, err := p.readLine()
		if errors.Is(err, io.EOF) {
			return Choice{}, ErrCancelled
		}
		if err != nil {
			return Choice{}, err
		}
		if strings.EqualFold(line, "q") {
			return Choice{}, ErrCancelled
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(p.Out, "Invalid input. Please enter a number.")
			continue
		}
		if n < 1 || n > len(choices) {
			fmt.Fprintf(p.Out, "Please enter a number between 1 and %d\n", len(choices))
			continue
		}
		return choices[n-1], nil
	}
}
