package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/openemr"
)

// formatDuration formats a duration in a human-friendly way (e.g., "2 days, 3 hours and 45 minutes")
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		if days == 1 {
			parts = append(parts, "1 day")
		} else {
			parts = append(parts, fmt.Sprintf("%d days", days))
		}
	}
	if hours > 0 {
		if hours == 1 {
			parts = append(parts, "1 hour")
		} else {
			parts = append(parts, fmt.Sprintf("%d hours", hours))
		}
	}
	if minutes > 0 {
		if minutes == 1 {
			parts = append(parts, "1 minute")
		} else {
			parts = append(parts, fmt.Sprintf("%d minutes", minutes))
		}
	}
	if len(parts) == 0 && seconds > 0 {
		if seconds == 1 {
			parts = append(parts, "1 second")
		} else {
			parts = append(parts, fmt.Sprintf("%d seconds", seconds))
		}
	}
	if len(parts) == 0 {
		return "0 seconds"
	}

	// Join parts with commas and "and" for the last one
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	// For 3+ parts, join all but last with ", " and add "and" before last
	result := ""
	for i := 0; i < len(parts)-1; i++ {
		if i > 0 {
			result += ", "
		}
		result += parts[i]
	}
	result += " and " + parts[len(parts)-1]
	return result
}

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Credential and token commands",
		Long:  `Check the configured OpenEMR credentials and inspect the tokens they earn.`,
	}

	cmd.AddCommand(newAuthCheckCommand())
	cmd.AddCommand(newAuthTokenCommand())
	cmd.AddCommand(newAuthStatusCommand())

	return cmd
}

// fetchToken resolves the current context and performs one password grant
func fetchToken(cmd *cobra.Command) (*upstream, *openemrToken, error) {
	cliCtx := getCliContext(cmd)

	up, err := connectUpstream(cliCtx)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), up.Config.OpenEMR.Timeout())
	defer cancel()

	access, err := up.Tokens.GetToken(ctx, false)
	if err != nil {
		return nil, nil, fmt.Errorf("token fetch failed: %w", err)
	}

	tok := &openemrToken{AccessToken: access}
	if cached := up.Tokens.Cached(); cached != nil {
		tok.Expiry = cached.Expiry
	}

	return up, tok, nil
}

// openemrToken is the slice of the oauth2 token the commands report on
type openemrToken struct {
	AccessToken string
	Expiry      time.Time
}

func newAuthCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the configured credentials against the EMR",
		Long:  `Perform one password grant against the token endpoint and report the result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			up, tok, err := fetchToken(cmd)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Credentials accepted for %s\n", up.Config.OpenEMR.Username)
			fmt.Printf("  Token expires: %s\n", tok.Expiry.Local().Format("2006-01-02 15:04:05 MST"))
			fmt.Printf("  Valid for %s\n", formatDuration(time.Until(tok.Expiry)))
			return nil
		},
	}
}

func newAuthTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Fetch and print a raw access token",
		Long:  `Fetch a token with the configured credentials and print it, for use with curl or other tooling.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tok, err := fetchToken(cmd)
			if err != nil {
				return err
			}

			fmt.Println(tok.AccessToken)
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Fetch a token and show its claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			up, tok, err := fetchToken(cmd)
			if err != nil {
				return err
			}

			var md strings.Builder
			md.WriteString("# Token status\n\n")
			md.WriteString("| Claim | Value |\n")
			md.WriteString("|-------|-------|\n")
			fmt.Fprintf(&md, "| Username | %s |\n", up.Config.OpenEMR.Username)
			fmt.Fprintf(&md, "| Role | %s |\n", up.Config.OpenEMR.Role)

			claims, err := openemr.TokenClaims(tok.AccessToken)
			switch {
			case err == nil:
				if claims.Issuer != "" {
					fmt.Fprintf(&md, "| Issuer | %s |\n", claims.Issuer)
				}
				if claims.Audience != "" {
					fmt.Fprintf(&md, "| Audience | %s |\n", claims.Audience)
				}
				if claims.Subject != "" {
					fmt.Fprintf(&md, "| Subject | %s |\n", claims.Subject)
				}
				if claims.Scope != "" {
					fmt.Fprintf(&md, "| Scope | %s |\n", claims.Scope)
				}
				if !claims.IssuedAt.IsZero() {
					fmt.Fprintf(&md, "| Issued | %s |\n", claims.IssuedAt.Local().Format("2006-01-02 15:04:05 MST"))
				}
			default:
				// Opaque tokens are fine, the manager's expiry still applies
				md.WriteString("| Claims | (opaque token) |\n")
			}
			fmt.Fprintf(&md, "| Expires | %s |\n", tok.Expiry.Local().Format("2006-01-02 15:04:05 MST"))

			if err := printMarkdown(cmd, md.String()); err != nil {
				return err
			}

			fmt.Printf("\n✓ Valid for %s\n", formatDuration(time.Until(tok.Expiry)))
			return nil
		},
	}
}
