package cmd

import (
	"fmt"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/prompt"
	"github.com/spf13/cobra"
)

func newPromptCmd() *cobra.Command {
	var (
		country   string
		theme     string
		timeOfDay string
		variants  int
	)
	cmd := &cobra.Command{
		Use:          "prompt",
		Short:        "Print the prompts built for the given choices",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if variants <= 0 {
				p := prompt.Build(country, theme, timeOfDay)
				fmt.Fprintf(out, "positive: %s\nnegative: %s\n", p.Positive, p.Negative)
				return nil
			}

			r := prompt.NewRandomizer(prompt.Default())
			for i, p := range r.Variants(cmd.Context(), country, theme, timeOfDay, variants) {
				fmt.Fprintf(out, "[%d] positive: %s\n", i, p.Positive)
				if i == 0 {
					fmt.Fprintf(out, "negative: %s\n", p.Negative)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "Country key, e.g. morocco")
	cmd.Flags().StringVar(&theme, "theme", "", "Theme key, e.g. peaceful")
	cmd.Flags().StringVar(&timeOfDay, "time", "", "daytime or nighttime")
	cmd.Flags().IntVarP(&variants, "variants", "n", 0, "Print n slot variants instead of the base prompt")
	return cmd
}
