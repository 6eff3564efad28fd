package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jask/ethsend/internal/config"
	"github.com/jask/ethsend/internal/tui"
)

func newRootCmd() *cobra.Command {
	v := config.New()
	var cfgPath string

	root := &cobra.Command{
		Use:           "ethsend",
		Short:         "Send ether through a local wallet provider",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(c *cobra.Command, args []string) {
			if cfgPath != "" {
				v.SetConfigFile(cfgPath)
			}
		},
		RunE: func(c *cobra.Command, args []string) error {
			return runTUI(c, v)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "config file (default $XDG_CONFIG_HOME/ethsend/config.toml)")
	flags.String("rpc-url", "", "wallet provider JSON-RPC endpoint")
	flags.String("db", "", "transfer journal path; empty string disables it")
	flags.String("log-file", "", "log file path; empty string discards logs")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address")
	flags.Bool("halt-on-precheck", true, "stop on invalid recipient or missing provider")
	bindFlags(v, root, map[string]string{
		"wallet.rpc_url":            "rpc-url",
		"database.path":             "db",
		"log.path":                  "log-file",
		"log.level":                 "log-level",
		"metrics.addr":              "metrics-addr",
		"transfer.halt_on_precheck": "halt-on-precheck",
	})

	root.AddCommand(newSendCmd(v), newHistoryCmd(v), newConfigCmd(v))
	return root
}

// bindFlags binds config keys to persistent flags. A flag only wins over
// the file and env when it is set on the command line.
func bindFlags(v *viper.Viper, c *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, c.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func runTUI(c *cobra.Command, v *viper.Viper) error {
	ctx, cancel := context.WithCancel(c.Context())
	defer cancel()
	a, err := setup(ctx, v)
	if err != nil {
		return err
	}
	defer a.Close()

	var history tui.HistoryLister
	if a.transfers != nil {
		history = a.transfers
	}
	model := tui.New(ctx, a.controller, history, tui.Options{
		ToastDuration: a.cfg.UI.ToastDuration,
		HistoryLimit:  a.cfg.UI.HistoryLimit,
		WalletStatus:  a.walletStatus(),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	// let an in-flight submission journal its outcome before teardown
	cancel()
	a.controller.Wait()
	if err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
