package toolclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"llm-toolbox/internal/render"
)

const (
	defaultTool       = "poet"
	defaultStdioTheme = "AI and technology"
	defaultNotation   = "1d20"
	demoTheme         = "artificial intelligence"
	demoNotation      = "2d6"
	demoRolls         = 3
)

type prompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{sc: bufio.NewScanner(in), out: out}
}

// ask prints label and reads one trimmed line. ok is false at end of input.
func (p *prompter) ask(label string) (line string, ok bool) {
	fmt.Fprint(p.out, render.PromptStyle.Render(label))
	if !p.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.sc.Text()), true
}

func printTools(ctx context.Context, c ToolCaller, out io.Writer) error {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return err
	}
	if len(tools) == 0 {
		fmt.Fprintln(out, "  No tools found or server not responding")
		return nil
	}
	for _, t := range tools {
		fmt.Fprintf(out, "  - %s: %s\n", t.Name, t.Description)
	}
	return nil
}

// RunStdioSession lists the tools, asks for one and runs it once.
func RunStdioSession(ctx context.Context, c ToolCaller, in io.Reader, out io.Writer) error {
	p := newPrompter(in, out)

	fmt.Fprintln(out, render.TitleStyle.Render("Available tools:"))
	if err := printTools(ctx, c, out); err != nil {
		return err
	}
	fmt.Fprintln(out)

	name, _ := p.ask("Enter tool name (or press Enter for 'poet'): ")
	if name == "" {
		name = defaultTool
	}

	switch name {
	case "poet":
		theme, _ := p.ask("Enter theme for poem: ")
		if theme == "" {
			theme = defaultStdioTheme
		}
		poem, err := c.CallTool(ctx, "poet", map[string]any{"theme": theme})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nPoem about '%s':\n%s\n", theme, poem)
	case "roll_dice":
		notation, _ := p.ask("Enter dice notation (e.g., '2d6'): ")
		if notation == "" {
			notation = defaultNotation
		}
		raw, _ := p.ask("Enter number of rolls (default 1): ")
		result, err := c.CallTool(ctx, "roll_dice", map[string]any{"notation": notation, "num_rolls": parseRolls(raw)})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nDice roll result: %s\n", result)
	default:
		fmt.Fprintf(out, "Tool '%s' not implemented in this client yet.\n", name)
	}
	return nil
}

// RunHTTPDemo lists the tools and exercises each one with fixed arguments.
func RunHTTPDemo(ctx context.Context, c ToolCaller, out io.Writer) {
	fmt.Fprintln(out, render.TitleStyle.Render("MCP HTTP Client Demo"))
	fmt.Fprintln(out, strings.Repeat("=", 40))

	fmt.Fprintln(out, "\nAvailable tools:")
	if err := printTools(ctx, c, out); err != nil {
		fmt.Fprintln(out, "  No tools found or server not responding")
	}

	fmt.Fprintln(out, "\nTesting tools...")
	fmt.Fprintf(out, "\nGenerating a poem about '%s':\n", demoTheme)
	if poem, err := c.CallTool(ctx, "poet", map[string]any{"theme": demoTheme}); err != nil {
		fmt.Fprintln(out, render.ErrorStyle.Render("Failed to generate poem: "+err.Error()))
	} else {
		fmt.Fprintln(out, poem)
	}

	fmt.Fprintf(out, "\nRolling %d dice with %s notation:\n", demoRolls, demoNotation)
	if result, err := c.CallTool(ctx, "roll_dice", map[string]any{"notation": demoNotation, "num_rolls": demoRolls}); err != nil {
		fmt.Fprintln(out, render.ErrorStyle.Render("Failed to roll dice: "+err.Error()))
	} else {
		fmt.Fprintln(out, result)
	}
}

// RunMenu loops over the numbered menu until the user exits or input ends.
func RunMenu(ctx context.Context, c ToolCaller, in io.Reader, out io.Writer) error {
	p := newPrompter(in, out)
	fmt.Fprintln(out, "\nInteractive mode (enter 3 or end input to exit):")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintln(out, "\nChoose an action:")
		fmt.Fprintln(out, "1. Generate a poem")
		fmt.Fprintln(out, "2. Roll dice")
		fmt.Fprintln(out, "3. Exit")

		choice, ok := p.ask("Enter your choice (1-3): ")
		if !ok {
			fmt.Fprintln(out, "\n\nGoodbye!")
			return nil
		}

		switch choice {
		case "1":
			theme, _ := p.ask("Enter theme for poem: ")
			if theme == "" {
				fmt.Fprintln(out, "Theme cannot be empty")
				continue
			}
			poem, err := c.CallTool(ctx, "poet", map[string]any{"theme": theme})
			if err != nil {
				fmt.Fprintln(out, render.ErrorStyle.Render("Failed to generate poem: "+err.Error()))
				continue
			}
			fmt.Fprintf(out, "\nPoem about '%s':\n%s\n", theme, poem)
		case "2":
			notation, _ := p.ask("Enter dice notation (e.g., '1d20'): ")
			if notation == "" {
				fmt.Fprintln(out, "Dice notation cannot be empty")
				continue
			}
			raw, _ := p.ask("Enter number of rolls (default 1): ")
			result, err := c.CallTool(ctx, "roll_dice", map[string]any{"notation": notation, "num_rolls": parseRolls(raw)})
			if err != nil {
				fmt.Fprintln(out, render.ErrorStyle.Render("Failed to roll dice: "+err.Error()))
				continue
			}
			fmt.Fprintf(out, "\nDice roll result: %s\n", result)
		case "3":
			fmt.Fprintln(out, render.SuccessStyle.Render("Goodbye!"))
			return nil
		default:
			fmt.Fprintln(out, "Invalid choice. Please enter 1, 2, or 3.")
		}
	}
}

// parseRolls accepts only a plain digit string and falls back to 1.
func parseRolls(raw string) int {
	if raw == "" {
		return 1
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 1
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return n
}
