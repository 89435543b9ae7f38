package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/eiscpctl/internal/config"
)

// receivers add flags
var (
	addName    string
	addDefault bool
)

// receiversCmd manages the receivers in the config file
var receiversCmd = &cobra.Command{
	Use:     "receivers",
	Aliases: []string{"rx"},
	Short:   "Manage named receivers in the config file",
}

var receiversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured receivers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := flags.LoadRegistry()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(reg.Receivers) == 0 {
			fmt.Fprintln(out, "No receivers configured. Add one with 'eiscpctl receivers add NAME ADDRESS'.")
			return nil
		}
		for _, name := range reg.Names() {
			rcv := reg.Receivers[name]
			marker := " "
			if reg.Preferences != nil && reg.Preferences.DefaultReceiver == name {
				marker = "*"
			}
			line := fmt.Sprintf("%s %-12s %s", marker, name, rcv.Address)
			if rcv.Port != 0 {
				line += fmt.Sprintf(":%d", rcv.Port)
			}
			if rcv.Name != "" {
				line += "  " + rcv.Name
			}
			fmt.Fprintln(out, strings.TrimRight(line, " "))
		}
		return nil
	},
}

var receiversAddCmd = &cobra.Command{
	Use:   "add NAME ADDRESS",
	Short: "Add or replace a receiver",
	Example: `  eiscpctl receivers add den 192.168.1.40 --name "Den TX-NR696" --default
  eiscpctl receivers add loft loft-avr.lan --timeout 3s`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := flags.LoadRegistry()
		if err != nil {
			return err
		}
		// --port and --timeout are the global connection flags.
		name := args[0]
		rcv := &config.Receiver{
			Address: args[1],
			Port:    flags.Port,
			Name:    addName,
		}
		if flags.Timeout > 0 {
			rcv.Timeout = flags.Timeout.String()
		}
		reg.SetReceiver(name, rcv)
		if addDefault {
			reg.Preferences.DefaultReceiver = name
		}
		if err := reg.Validate(); err != nil {
			return err
		}
		if err := save(reg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved receiver %q\n", name)
		return nil
	},
}

var receiversRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a receiver",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := flags.LoadRegistry()
		if err != nil {
			return err
		}
		if reg.GetReceiver(args[0]) == nil {
			return fmt.Errorf("%w: %q", config.ErrReceiverNotFound, args[0])
		}
		reg.RemoveReceiver(args[0])
		if err := save(reg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed receiver %q\n", args[0])
		return nil
	},
}

var receiversDefaultCmd = &cobra.Command{
	Use:   "default NAME",
	Short: "Use NAME when --receiver is not given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := flags.LoadRegistry()
		if err != nil {
			return err
		}
		if reg.GetReceiver(args[0]) == nil {
			return fmt.Errorf("%w: %q", config.ErrReceiverNotFound, args[0])
		}
		reg.Preferences.DefaultReceiver = args[0]
		return save(reg)
	},
}

func init() {
	receiversAddCmd.Flags().StringVar(&addName, "name", "", "Display name")
	receiversAddCmd.Flags().BoolVar(&addDefault, "default", false, "Make this the default receiver")

	receiversCmd.AddCommand(receiversListCmd)
	receiversCmd.AddCommand(receiversAddCmd)
	receiversCmd.AddCommand(receiversRemoveCmd)
	receiversCmd.AddCommand(receiversDefaultCmd)
}

// save writes reg back to --config, or to the default file.
func save(reg *config.Registry) error {
	if flags.ConfigPath != "" {
		return reg.SaveTo(flags.ConfigPath)
	}
	return reg.Save()
}
