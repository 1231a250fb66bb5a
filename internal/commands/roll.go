package commands

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"llm-toolbox/internal/usecase"
)

func newRollCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roll [notation]",
		Short: "Roll dice locally, e.g. 2d6 or 4d6k3",
		Long: `Roll XdY (X dice with Y sides, summed) or XdYkZ (keep the highest Z).
Without a notation the command prompts for one and for the number of rolls.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rolls, _ := cmd.Flags().GetInt("rolls")
			var notation string
			if len(args) == 1 {
				notation = args[0]
			} else {
				var err error
				notation, rolls, err = promptRoll(cmd)
				if err != nil {
					return err
				}
			}

			tools := usecase.NewToolService(nil, usecase.ToolConfig{})
			out, err := tools.RollDice(cmd.Context(), usecase.RollDiceArgs{Notation: notation, NumRolls: rolls})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntP("rolls", "n", 1, "Number of times to roll")
	return cmd
}

func promptRoll(cmd *cobra.Command) (string, int, error) {
	r := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprint(out, "Enter dice notation (e.g., 2d20k1): ")
	notation, _ := r.ReadString('\n')
	fmt.Fprint(out, "Number of rolls: ")
	raw, _ := r.ReadString('\n')

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return strings.TrimSpace(notation), 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", 0, fmt.Errorf("number of rolls %q is not a number", raw)
	}
	return strings.TrimSpace(notation), n, nil
}
