package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>...",
	Short: "Delete blobs",
	Long:  "Delete one or more blobs. Deleting a missing blob is not an error.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) (err error) {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := store.Delete(context.Background(), args...); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Deleted %d path(s)\n", len(args))
	return nil
}
