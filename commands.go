package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"micmd/config"
	"micmd/model"
	"micmd/shortcut"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

var (
	flagDevice string
	flagOwner  string
	flagForce  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved commands, most recently used first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		cmds, err := e.db.List()
		if err != nil {
			return err
		}
		if len(cmds) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved commands.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), commandTable(cmds))
		return nil
	},
}

var callCmd = &cobra.Command{
	Use:   "call <did> <method> [params]",
	Short: "Call a method on a device",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		params := ""
		if len(args) == 3 {
			params = args[2]
		}
		payload, err := e.call(args[0], args[1], params)
		if err != nil {
			return err
		}
		writePayload(cmd.OutOrStdout(), payload)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a saved command on a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		did := flagDevice
		if did == "" {
			if len(e.cfg.Devices) != 1 {
				return errors.New("--device is required when the config does not list exactly one device")
			}
			did = e.cfg.Devices[0].DID
		}

		saved, err := e.db.Get(args[0])
		if err != nil {
			return err
		}
		payload, err := e.call(did, saved.Method, saved.Params)
		if err != nil {
			return err
		}
		if err := e.db.MarkUsed(saved.Name); err != nil {
			e.logger.Warn("failed to record command use", "name", saved.Name, "error", err)
		}
		writePayload(cmd.OutOrStdout(), payload)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <shortcut>",
	Short: "Check whether a shortcut can be bound",
	Long: `Checks the shortcut format, the reserved list and the shortcuts of existing
saved commands. Use --owner to ignore the command being edited.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		sc, err := shortcut.Canonical(args[0])
		if err != nil {
			return err
		}
		if err := shortcut.NewValidator(e.db).Validate(sc, flagOwner); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is available\n", sc)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !flagForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		cfg := config.Default()
		cfg.Devices = []model.Device{}
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nSet invoker.command and add your devices before starting micmd.\n", path)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&flagDevice, "device", "d", "", "Device did")
	validateCmd.Flags().StringVar(&flagOwner, "owner", "", "Saved command that may keep the shortcut")
	configInitCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(listCmd, callCmd, runCmd, validateCmd, configCmd)
}

func (e *env) call(did, method, params string) (json.RawMessage, error) {
	invoker, err := e.invoker()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.InvokeTimeout)
	defer cancel()

	e.logger.Info("calling device", "did", did, "method", method)
	payload, err := invoker.Invoke(ctx, did, method, params)
	if err != nil {
		e.logger.Warn("device call failed", "did", did, "method", method, "error", err)
		return nil, err
	}
	return payload, nil
}

func writePayload(w io.Writer, payload json.RawMessage) {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	w.Write(pretty.Pretty(payload))
}

func commandTable(cmds []model.SavedCommand) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("NAME", "METHOD", "PARAMS", "SHORTCUT", "LAST USED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})

	for _, c := range cmds {
		t.Row(c.Name, c.Method, c.Params, c.Shortcut, lastUsed(c.LastUsedAt))
	}
	return t.String()
}

func lastUsed(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}
