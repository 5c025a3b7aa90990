package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// renderMarkdown styles markdown with glamour when stdout is a terminal.
// Piped or redirected output gets the plain markdown so tables stay
// greppable.
func renderMarkdown(markdown, theme string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return markdown
	}

	rendered, err := glamour.Render(markdown, theme)
	if err != nil {
		// Unknown theme or rendering failure, plain markdown still reads fine
		return markdown
	}
	return rendered
}

// printMarkdown renders and prints markdown using the current context's
// glamour theme. The root command already loaded the context config, so no
// disk read happens here.
func printMarkdown(cmd *cobra.Command, markdown string) error {
	theme := "auto"
	if cliCtx := getCliContext(cmd); cliCtx != nil && cliCtx.Config != nil {
		if ctx, err := cliCtx.Config.Current(); err == nil && ctx.Theme != "" {
			theme = ctx.Theme
		}
	}

	_, err := fmt.Print(renderMarkdown(markdown, theme))
	return err
}
