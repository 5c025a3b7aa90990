package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage emrctl contexts",
		Long:  "Manage named proxy contexts, similar to kubectl contexts. Each context points at a proxy config file.",
	}

	cmd.AddCommand(
		newCurrentContextCommand(),
		newUseContextCommand(),
		newListContextsCommand(),
		newAddContextCommand(),
		newDeleteContextCommand(),
		newConfigShowCommand(),
	)
	return cmd
}

func newCurrentContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current-context",
		Short: "Print the active context name",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadContexts()
			if err != nil {
				return err
			}
			fmt.Println(cfg.CurrentContext)
			return nil
		},
	}
}

func newUseContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use-context NAME",
		Short: "Switch the active context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadContexts()
			if err != nil {
				return err
			}
			if err := cfg.Use(args[0]); err != nil {
				return err
			}
			if err := saveContexts(cfg); err != nil {
				return err
			}
			fmt.Printf("Now using context %q\n", args[0])
			return nil
		},
	}
}

func newListContextsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list-contexts",
		Aliases: []string{"get-contexts"},
		Short:   "List configured contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadContexts()
			if err != nil {
				return err
			}
			if len(cfg.Contexts) == 0 {
				fmt.Println("No contexts configured")
				return nil
			}

			names := make([]string, 0, len(cfg.Contexts))
			for name := range cfg.Contexts {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "CURRENT\tNAME\tCONFIG\tTHEME")
			for _, name := range names {
				marker := " "
				if name == cfg.CurrentContext {
					marker = "*"
				}
				ctx := cfg.Contexts[name]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, name, ctx.ConfigFile, ctx.Theme)
			}
			return w.Flush()
		},
	}
}

func newAddContextCommand() *cobra.Command {
	var (
		configFile string
		theme      string
	)

	cmd := &cobra.Command{
		Use:   "add-context NAME",
		Short: "Add or update a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadContexts()
			if err != nil {
				return err
			}

			cfg.Put(args[0], &Context{ConfigFile: configFile, Theme: theme})
			if err := saveContexts(cfg); err != nil {
				return err
			}
			fmt.Printf("Context %q saved\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config-file", "", "Path to the proxy config file for this context")
	cmd.Flags().StringVar(&theme, "theme", "auto", "Glamour rendering theme")
	cmd.MarkFlagRequired("config-file")

	return cmd
}

func newDeleteContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-context NAME",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadContexts()
			if err != nil {
				return err
			}
			if err := cfg.Remove(args[0]); err != nil {
				return err
			}
			if err := saveContexts(cfg); err != nil {
				return err
			}
			fmt.Printf("Context %q deleted\n", args[0])
			return nil
		},
	}
}

// show resolves where the active context actually points, without echoing
// credentials.
func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active context and its upstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadContexts()
			if err != nil {
				return err
			}
			ctx, err := cfg.Current()
			if err != nil {
				return err
			}

			fmt.Printf("Current context: %s\n", cfg.CurrentContext)
			fmt.Printf("  Proxy config: %s\n", ctx.ConfigFile)
			fmt.Printf("  Glamour theme: %s\n", ctx.Theme)
			if path, err := cliConfigPath(); err == nil {
				fmt.Printf("  Contexts file: %s\n", path)
			}

			if ctx.ConfigFile == "" {
				return nil
			}
			proxyCfg, err := config.LoadUnvalidated(ctx.ConfigFile)
			if err != nil {
				fmt.Printf("  Upstream: (failed to load: %v)\n", err)
				return nil
			}
			fmt.Printf("  Upstream: %s (site %s, user %s)\n",
				proxyCfg.OpenEMR.BaseURL, proxyCfg.OpenEMR.Site, proxyCfg.OpenEMR.Username)
			return nil
		},
	}
}
