package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>...",
	Short: "Show blob metadata",
	Long:  "Show size, content hash and last-modified time for one or more blobs.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStat,
}

func init() {
	rootCmd.AddCommand(statCmd)
}

func runStat(cmd *cobra.Command, args []string) (err error) {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	metas, err := store.Metadata(context.Background(), args...)
	if err != nil {
		return err
	}

	for i, m := range metas {
		if m == nil {
			fmt.Printf("%s\t(absent)\n", args[i])
			continue
		}
		fmt.Printf("%s\t%d\t%s\t%s\n", m.FullPath, m.Size, m.ContentHash, m.LastModified.Format(time.RFC3339))
	}
	return nil
}
