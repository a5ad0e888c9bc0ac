package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/aurora-qa/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and exit",
	Example: `  aurora-qa ask "How many cars does Vikram Desai have?"
  aurora-qa ask --output yaml "When is Layla planning her trip to London?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("output")

		env, err := initApp(ctx, config.ModeAsk)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.QA.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if format == outputText {
			_, err := fmt.Fprintln(os.Stdout, res.Answer)
			return err
		}
		return writeStructured(os.Stdout, format, res)
	},
}

func init() {
	askCmd.Flags().StringP("output", "o", outputText, "output format: text, yaml or json")
	rootCmd.AddCommand(askCmd)
}
