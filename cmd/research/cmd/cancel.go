package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Abandon a run",
	Long: `Abandon a run. A run waiting for feedback ends immediately; a run
executing in another process stops launching interviews once it sees the
request.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <run-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a stored run",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.engine.Cancel(ctx, args[0]); err != nil {
		return err
	}
	cp, err := a.engine.GetState(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Run %s is %s\n", cp.RunID, cp.Status)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.engine.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Run %s deleted\n", args[0])
	return nil
}
