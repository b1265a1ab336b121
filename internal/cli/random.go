package cli

import (
	"gameforge/internal/generator"

	"github.com/spf13/cobra"
)

func newRandomCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Draw surprise parameters without generating anything",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.printJSON(generator.NewRandomizer().RandomParameters())
		},
	}
}
