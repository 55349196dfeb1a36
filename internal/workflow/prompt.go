package workflow

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Prompter reads sequential answers from the terminal. All invalid input
// is recovered locally by reprompting; only EOF aborts.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter builds a Prompter on the given streams.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

func (p *Prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", fmt.Errorf("read input: %w", io.EOF)
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// mmddRe matches a bare MM-DD, which assumes the current year.
var mmddRe = regexp.MustCompile(`^\d{1,2}-\d{1,2}$`)

// ParseDateInput turns flexible user input into a calendar date.
// Accepts "today", "yesterday", MM-DD (current year) and anything
// dateparse recognizes (YYYY-MM-DD, YYYYMMDD, ...).
func ParseDateInput(text string, now time.Time) (time.Time, error) {
	text = strings.ToLower(strings.TrimSpace(text))

	switch text {
	case "", "today":
		return now, nil
	case "yesterday":
		return now.AddDate(0, 0, -1), nil
	}

	if mmddRe.MatchString(text) {
		d, err := time.Parse("1-2", text)
		if err != nil {
			return time.Time{}, fmt.Errorf("cannot parse date %q", text)
		}
		return time.Date(now.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location()), nil
	}

	d, err := dateparse.ParseAny(text)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse date %q (use YYYY-MM-DD, YYYYMMDD, MM-DD, 'today' or 'yesterday')", text)
	}
	return d, nil
}

// Date prompts for a meeting date until the input parses.
func (p *Prompter) Date() (time.Time, error) {
	for {
		text, err := p.readLine("Meeting date [today]: ")
		if err != nil {
			return time.Time{}, err
		}
		d, err := ParseDateInput(text, time.Now())
		if err != nil {
			fmt.Fprintln(p.out, err)
			continue
		}
		return d, nil
	}
}

// Select prompts for a 1-based index into n entries and reprompts on
// anything outside [1, n]. Returns the zero-based index.
func (p *Prompter) Select(n int) (int, error) {
	for {
		text, err := p.readLine(fmt.Sprintf("Select recording [1-%d]: ", n))
		if err != nil {
			return 0, err
		}
		idx, err := strconv.Atoi(text)
		if err != nil || idx < 1 || idx > n {
			fmt.Fprintf(p.out, "Invalid selection, enter a number between 1 and %d.\n", n)
			continue
		}
		return idx - 1, nil
	}
}

// Confirm asks a yes/no question, defaulting on empty input.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		text, err := p.readLine(fmt.Sprintf("%s [%s]: ", question, hint))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(text) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}
