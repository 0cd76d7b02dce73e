package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/client/api"
	"github.com/atinyakov/issuetracker/internal/client/board"
	"github.com/atinyakov/issuetracker/internal/client/session"
	"github.com/atinyakov/issuetracker/internal/client/storage"
	"github.com/atinyakov/issuetracker/internal/logger"
	"github.com/atinyakov/issuetracker/internal/output"
)

const (
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 15 * time.Second
	envPrefix      = "ISSUES"
	configDirName  = "issuetracker"
)

// cli carries the state shared by every subcommand of one invocation.
type cli struct {
	v      *viper.Viper
	ui     *output.UI
	prompt *storage.Prompter
	log    *zap.Logger

	api   *api.Client
	sess  *session.Session
	board *board.Board
}

// configDirFunc returns the client config directory, replaceable in tests.
var configDirFunc = func() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDirName), nil
}

func newRootCmd(ui *output.UI, prompt *storage.Prompter) *cobra.Command {
	c := &cli{v: viper.New(), ui: ui, prompt: prompt, log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "issues",
		Short: "Track issues from the terminal",
		Long: `issues is the command-line client of the issue tracker.
Sign in with 'issues login', then list, create and update issues.`,
		Version:           fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.initConfig(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("server", "s", defaultServer, "Issue tracker server URL")
	pf.String("token-file", "", "Session file (default <config dir>/issuetracker/session.json)")
	pf.Duration("timeout", defaultTimeout, "HTTP request timeout")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.String("config", "", "Config file (default <config dir>/issuetracker/config.yaml)")

	_ = c.v.BindPFlag("server", pf.Lookup("server"))
	_ = c.v.BindPFlag("token_file", pf.Lookup("token-file"))
	_ = c.v.BindPFlag("timeout", pf.Lookup("timeout"))
	_ = c.v.BindPFlag("verbose", pf.Lookup("verbose"))

	root.AddCommand(
		c.registerCmd(), c.loginCmd(), c.logoutCmd(), c.whoamiCmd(),
		c.listCmd(), c.showCmd(), c.createCmd(), c.updateCmd(),
		c.statusCmd(), c.closeCmd(), c.deleteCmd(),
		c.configCmd(),
	)
	return root
}

func (c *cli) configFile(cmd *cobra.Command) (path string, explicit bool, err error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, true, nil
	}
	if p := os.Getenv(envPrefix + "_CONFIG"); p != "" {
		return p, true, nil
	}
	dir, err := configDirFunc()
	if err != nil {
		return "", false, err
	}
	return filepath.Join(dir, "config.yaml"), false, nil
}

// initConfig layers defaults, the optional YAML file, ISSUES_* environment
// variables and flags, then builds the console logger.
func (c *cli) initConfig(cmd *cobra.Command) error {
	path, explicit, err := c.configFile(cmd)
	if err != nil {
		return err
	}

	c.v.SetConfigFile(path)
	c.v.SetConfigType("yaml")
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.v.AutomaticEnv()

	c.v.SetDefault("server", defaultServer)
	c.v.SetDefault("token_file", "")
	c.v.SetDefault("timeout", defaultTimeout)
	c.v.SetDefault("verbose", false)

	if _, err := os.Stat(path); err == nil || explicit {
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c.ui.Verbose = c.v.GetBool("verbose")
	level := "warn"
	if c.ui.Verbose {
		level = "debug"
	}
	log, err := logger.NewConsole(level)
	if err != nil {
		return err
	}
	c.log = log
	return nil
}

// connect builds the gateway, session and board on first use.
func (c *cli) connect() error {
	if c.sess != nil {
		return nil
	}

	store, err := storage.NewTokenFile(c.v.GetString("token_file"))
	if err != nil {
		return err
	}

	hc := &http.Client{Timeout: c.v.GetDuration("timeout")}
	gw, err := api.New(c.v.GetString("server"), hc, func() string { return c.sess.Token() })
	if err != nil {
		return apperr.Validation("%s", err)
	}

	c.api = gw
	c.sess = session.New(gw, store, c.log)
	c.board = board.New(gw)
	c.ui.VerboseLog("server %s, session file %s", gw.BaseURL(), store.Path)
	return nil
}

// requireAuth restores the persisted session and fails when no valid
// token is stored.
func (c *cli) requireAuth(ctx context.Context) error {
	if err := c.connect(); err != nil {
		return err
	}
	state, err := c.sess.Restore(ctx)
	if err != nil {
		return err
	}
	if state != session.Authenticated {
		return apperr.Auth("not logged in, run 'issues login' first")
	}
	if u, ok := c.sess.User(); ok {
		c.ui.VerboseLog("signed in as %s", u.Username)
	}
	return nil
}

// resolve refreshes the board and maps an id or id prefix to a full id.
func (c *cli) resolve(ctx context.Context, ref string) (string, error) {
	if _, err := c.board.Refresh(ctx); err != nil {
		return "", err
	}
	return c.board.Resolve(ref)
}

var errorKinds = []error{
	apperr.ErrValidation, apperr.ErrAuth, apperr.ErrNotFound, apperr.ErrNetwork, apperr.ErrServer,
}

// userMessage renders err for the terminal. Classified errors get the
// shared user-facing wording; local failures print as they are.
func userMessage(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k) {
			return apperr.Message(err)
		}
	}
	return err.Error()
}
