package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/silolabs/sift/internal/classify"
	"github.com/silolabs/sift/internal/config"
)

// wizardChoices is what the interactive run setup produces.
type wizardChoices struct {
	pages     int
	ticketIDs []int
	reprocess bool
	refresh   bool
	model     string
	confirmed bool
}

// runWizard walks through run setup interactively. Returning
// confirmed=false means the user backed out.
func runWizard(cfg *config.Config, output string) (*wizardChoices, error) {
	rl, err := readline.New("> ")
	if err != nil {
		return nil, fmt.Errorf("initializing prompt: %w", err)
	}
	defer func() { _ = rl.Close() }()

	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s\n\n", bold("Sift run setup"))

	choices := &wizardChoices{}

	mode, err := ask(rl, "Process [r]ecent resolved tickets or specific [i]ds? (r/i)", "r")
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(mode) {
	case "i":
		raw, err := ask(rl, "Ticket IDs (comma-separated)", "")
		if err != nil {
			return nil, err
		}
		choices.ticketIDs, err = parseTicketIDs(raw)
		if err != nil {
			return nil, err
		}
		if len(choices.ticketIDs) == 0 {
			return nil, fmt.Errorf("no ticket IDs given")
		}
	default:
		raw, err := ask(rl, "Pages of resolved tickets (30 each)", strconv.Itoa(cfg.Pages))
		if err != nil {
			return nil, err
		}
		choices.pages, err = strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || choices.pages <= 0 {
			return nil, fmt.Errorf("invalid page count %q", raw)
		}
	}

	if choices.reprocess, err = askYesNo(rl, "Reprocess tickets already in the catalog?", false); err != nil {
		return nil, err
	}
	if choices.refresh, err = askYesNo(rl, "Re-fetch conversations even when cached?", false); err != nil {
		return nil, err
	}

	fmt.Println("\nAvailable models:")
	for i, m := range classify.AvailableModels {
		fmt.Printf("  %d. %s\n", i+1, m)
	}
	defaultModel := cfg.Model
	if defaultModel == "" {
		defaultModel = classify.DefaultModel
	}
	raw, err := ask(rl, "Model (number or identifier)", defaultModel)
	if err != nil {
		return nil, err
	}
	choices.model = resolveModelChoice(raw)

	fmt.Println()
	fmt.Printf("%s\n", bold("Run summary"))
	if len(choices.ticketIDs) > 0 {
		fmt.Printf("  Tickets:   %d specific IDs\n", len(choices.ticketIDs))
	} else {
		fmt.Printf("  Tickets:   %d page(s) of resolved tickets\n", choices.pages)
	}
	fmt.Printf("  Reprocess: %v\n", choices.reprocess)
	fmt.Printf("  Refresh:   %v\n", choices.refresh)
	fmt.Printf("  Model:     %s\n", choices.model)
	fmt.Printf("  Output:    %s\n", output)

	choices.confirmed, err = askYesNo(rl, "Proceed?", true)
	if err != nil {
		return nil, err
	}
	return choices, nil
}

// resolveModelChoice maps a menu number to a model identifier, passing
// anything else through as-is.
func resolveModelChoice(raw string) string {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(classify.AvailableModels) {
		return classify.AvailableModels[n-1]
	}
	return raw
}

func ask(rl *readline.Instance, question, def string) (string, error) {
	if def != "" {
		rl.SetPrompt(fmt.Sprintf("%s [%s]: ", question, def))
	} else {
		rl.SetPrompt(question + ": ")
	}
	line, err := rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return "", fmt.Errorf("setup cancelled")
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

func askYesNo(rl *readline.Instance, question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	answer, err := ask(rl, fmt.Sprintf("%s (%s)", question, hint), "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	case "":
		return def, nil
	default:
		return false, fmt.Errorf("answer y or n")
	}
}
