package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/store"
)

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "List and manage label to action bindings",
	RunE:  runBindingsList,
}

var bindingsAddCmd = &cobra.Command{
	Use:   "add <channel> <label> <plugin> <action>",
	Short: "Bind a label to a plugin action",
	Long: `Bind a label to a plugin action.

Example:
  mudra bindings add gesture fist desktop screenshot --config '{"dir":"/tmp"}'`,
	Args: cobra.ExactArgs(4),
	RunE: runBindingsAdd,
}

var bindingsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a binding by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runBindingsRemove,
}

func init() {
	rootCmd.AddCommand(bindingsCmd)
	bindingsCmd.AddCommand(bindingsAddCmd)
	bindingsCmd.AddCommand(bindingsRemoveCmd)

	bindingsAddCmd.Flags().String("config", "", "JSON config passed to the action")
	bindingsAddCmd.Flags().Bool("disabled", false, "Create the binding disabled")
}

func runBindingsList(cmd *cobra.Command, args []string) error {
	_, _, st, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	bindings, err := st.Bindings().List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCHANNEL\tLABEL\tACTION\tENABLED\tCONFIG")
	for _, b := range bindings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%v\t%s\n",
			b.ID, b.Channel, b.Label, b.PluginName, b.ActionName, b.Enabled, b.Config)
	}
	return w.Flush()
}

func runBindingsAdd(cmd *cobra.Command, args []string) error {
	ch, err := event.ParseChannel(args[0])
	if err != nil {
		return err
	}
	rawConfig, _ := cmd.Flags().GetString("config")
	disabled, _ := cmd.Flags().GetBool("disabled")

	var cfg json.RawMessage
	if rawConfig != "" {
		if !json.Valid([]byte(rawConfig)) {
			return fmt.Errorf("--config is not valid JSON")
		}
		cfg = json.RawMessage(rawConfig)
	}

	_, _, st, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	existing, err := st.Bindings().GetByKey(ch, args[1])
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%s/%s is already bound (id %s)", ch, args[1], existing.ID)
	}

	b := &store.Binding{
		ID:         uuid.New().String(),
		Channel:    ch,
		Label:      args[1],
		PluginName: args[2],
		ActionName: args[3],
		Config:     cfg,
		Enabled:    !disabled,
	}
	if err := st.Bindings().Create(b); err != nil {
		return err
	}
	fmt.Println(b.ID)
	return nil
}

func runBindingsRemove(cmd *cobra.Command, args []string) error {
	_, _, st, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := st.Bindings().Delete(args[0]); err != nil {
		return fmt.Errorf("remove %s: %w", args[0], err)
	}
	fmt.Printf("Removed %s\n", args[0])
	return nil
}
