// Package cli implements osfctl, the command-line client for the CRUD
// service.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/client"
)

const defaultServer = "http://localhost:8080"

// env holds what every subcommand needs from the root.
type env struct {
	v   *viper.Viper
	out io.Writer
}

func (e *env) client() *client.Client {
	return client.New(e.v.GetString("server"), e.v.GetDuration("timeout")).
		SetDebug(e.v.GetBool("debug"))
}

func (e *env) output() string {
	return e.v.GetString("output")
}

// NewRootCommand builds the command tree. Output goes to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	e := &env{v: viper.New(), out: out}
	var cfgFile string

	root := &cobra.Command{
		Use:   "osfctl",
		Short: "Command-line client for the OSF CRUD service",
		Long: `osfctl applies RDF documents to a dataset, reads live records and their
revision history, and re-projects records into the search index.

Settings come from flags, OSF_* environment variables, or
$HOME/.osf/config.yaml, in that order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(e.v, cfgFile)
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.osf/config.yaml)")
	flags.String("server", defaultServer, "CRUD service URL")
	flags.String("output", "table", "output format (table, json)")
	flags.Duration("timeout", 60*time.Second, "request timeout")
	flags.Bool("debug", false, "log HTTP requests and responses")

	for _, name := range []string{"server", "output", "timeout", "debug"} {
		_ = e.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newUpdateCmd(e),
		newReadCmd(e),
		newRevisionsCmd(e),
		newRevisionCmd(e),
		newReindexCmd(e),
		newVersionCmd(e),
	)
	return root
}

// Execute runs osfctl against os.Args.
func Execute() error {
	return NewRootCommand(os.Stdout).Execute()
}

func loadConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("OSF")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(filepath.Join(home, ".osf"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
