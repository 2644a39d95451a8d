package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/Verbena/pkg/autocomplete"
	"github.com/CTAG07/Verbena/pkg/markov"
)

const menuLetters = "abcdefghijklmnopqrstuvwxyz"

func completeCmd() *cli.Command {
	var (
		modelName   string
		suggestions int
		seedText    string
	)

	return &cli.Command{
		Name:  "complete",
		Usage: "Write text interactively by picking suggested next words",
		Flags: []cli.Flag{
			modelFlag(&modelName),
			&cli.IntFlag{
				Name:        "suggestions",
				Aliases:     []string{"k"},
				Usage:       "number of suggestions per step",
				Destination: &suggestions,
			},
			&cli.StringFlag{
				Name:        "seed",
				Usage:       "text whose last tokens form the first context",
				Destination: &seedText,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if !cmd.IsSet("suggestions") {
				suggestions = app.config.Markov.Suggestions
			}
			m, err := app.store.LoadModel(ctx, modelName, markov.WithLogger(app.logger))
			if err != nil {
				return err
			}
			seed, err := markov.ReadTokens(ctx, strings.NewReader(seedText), app.tokenizer)
			if err != nil {
				return err
			}

			loop := &completeLoop{
				src:         m,
				tokenizer:   app.tokenizer,
				suggestions: suggestions,
				in:          bufio.NewScanner(os.Stdin),
				out:         os.Stdout,
			}
			fmt.Println("Welcome! Pick the next word from the suggestions to write text in the style of the training corpus.")
			final, err := loop.run(ctx, autocomplete.NewSession(m.Order(), seed...))
			if err != nil {
				return err
			}
			app.logger.DebugContext(ctx, "Autocomplete session ended", "model_name", modelName, "tokens_written", len(final.Text))
			return nil
		},
	}
}

// completeLoop is the console menu around an autocomplete session. Options
// a, b, ... pick a suggestion; the two letters after the suggestions enter a
// different word or quit.
type completeLoop struct {
	src         autocomplete.Source
	tokenizer   markov.Tokenizer
	suggestions int
	in          *bufio.Scanner
	out         io.Writer
}

// run drives the menu until the user quits or input ends, returning the
// final session.
func (l *completeLoop) run(ctx context.Context, session autocomplete.Session) (autocomplete.Session, error) {
	k := l.suggestions
	if k <= 0 || k > len(menuLetters)-2 {
		k = len(menuLetters) - 2
	}

	for {
		if err := ctx.Err(); err != nil {
			return session, err
		}

		choices, err := autocomplete.Suggest(l.src, session, k)
		if err != nil {
			if !errors.Is(err, markov.ErrUnseenContext) {
				return session, err
			}
			_, _ = fmt.Fprintf(l.out, "\nNo suggestions after %q. Enter a different word.\n", strings.Join(session.Context, " "))
			choices = nil
		}

		l.printMenu(choices)
		line, ok := l.readLine("\nChoose an option: ")
		if !ok {
			return session, l.in.Err()
		}

		option := -1
		if len(line) == 1 {
			option = strings.IndexByte(menuLetters, strings.ToLower(line)[0])
		}
		switch {
		case option < 0:
			_, _ = fmt.Fprintf(l.out, "Unknown option %q.\n", line)
			continue
		case option < len(choices):
			session = session.Choose(choices[option].Token)
		case option == len(choices):
			word, ok := l.readLine("Word: ")
			if !ok {
				return session, l.in.Err()
			}
			// Typed text goes through the training tokenizer so it matches model keys.
			tokens, err := markov.ReadTokens(ctx, strings.NewReader(word), l.tokenizer)
			if err != nil {
				return session, err
			}
			for _, tok := range tokens {
				session = session.Choose(tok)
			}
		case option == len(choices)+1:
			return session, nil
		default:
			_, _ = fmt.Fprintf(l.out, "Unknown option %q.\n", line)
			continue
		}

		_, _ = fmt.Fprintf(l.out, "\n%s\n", l.tokenizer.Join(session.Text))
	}
}

func (l *completeLoop) printMenu(choices []autocomplete.Suggestion) {
	var sb strings.Builder
	for i, choice := range choices {
		fmt.Fprintf(&sb, "%c) %s  ", menuLetters[i], choice.Token)
	}
	if len(choices) > 0 {
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "%c) [Other word]  %c) [Quit]\n", menuLetters[len(choices)], menuLetters[len(choices)+1])
	_, _ = io.WriteString(l.out, sb.String())
}

// readLine prints prompt and reads one trimmed line. ok is false at end of input.
func (l *completeLoop) readLine(prompt string) (string, bool) {
	_, _ = io.WriteString(l.out, prompt)
	if !l.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(l.in.Text()), true
}
