package cli

import (
	"fmt"
	"net/http"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/config"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/openemr"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/pkg/urlutil"
)

// upstream bundles the clients a command needs to talk to OpenEMR
type upstream struct {
	Config   *config.Config
	Tokens   *openemr.TokenManager
	Patients *openemr.PatientAPI
}

// resolveProxyConfig loads the proxy config named by the current context.
// A missing password is prompted for when stdin is a terminal.
func resolveProxyConfig(cliCtx *CliContext) (*config.Config, error) {
	if cliCtx == nil || cliCtx.Config == nil {
		return nil, fmt.Errorf("no CLI configuration loaded")
	}

	ctx, err := cliCtx.Config.Current()
	if err != nil {
		return nil, err
	}
	if ctx.ConfigFile == "" {
		return nil, fmt.Errorf("current context has no proxy config file; set one with 'emrctl config add-context'")
	}

	cfg, err := config.LoadUnvalidated(ctx.ConfigFile)
	if err != nil {
		return nil, err
	}

	if cfg.OpenEMR.Password == "" {
		password, err := promptPassword(cfg.OpenEMR.Username)
		if err != nil {
			return nil, err
		}
		cfg.OpenEMR.Password = password
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// connectUpstream builds the token manager and patient API for the current context
func connectUpstream(cliCtx *CliContext) (*upstream, error) {
	cfg, err := resolveProxyConfig(cliCtx)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.OpenEMR.Timeout()}
	tokens, err := openemr.NewTokenManager(
		urlutil.TokenEndpoint(cfg.OpenEMR.BaseURL, cfg.OpenEMR.Site),
		cfg.OpenEMR.Credentials(),
		openemr.WithHTTPClient(httpClient),
		openemr.WithRefreshBuffer(cfg.OpenEMR.RefreshBuffer()),
	)
	if err != nil {
		return nil, err
	}

	forwarder, err := openemr.NewForwarder(
		urlutil.APIBase(cfg.OpenEMR.BaseURL, cfg.OpenEMR.Site), tokens,
		openemr.WithForwarderHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}

	return &upstream{
		Config:   cfg,
		Tokens:   tokens,
		Patients: openemr.NewPatientAPI(forwarder),
	}, nil
}

// promptPassword reads the grant password without echo. Fails when stdin is
// not a terminal, scripts must provide OPENEMR_PASSWORD instead.
func promptPassword(username string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", &openemr.ConfigError{Field: "password"}
	}

	if username != "" {
		fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	} else {
		fmt.Fprint(os.Stderr, "Password: ")
	}
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(passwordBytes), nil
}
