package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var putAppend bool

var putCmd = &cobra.Command{
	Use:   "put <path> [file]",
	Short: "Store a blob",
	Long:  "Store a blob under a full path, reading content from a file or stdin.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runPut,
}

func init() {
	putCmd.Flags().BoolVar(&putAppend, "append", false, "append to existing content instead of overwriting")
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) (err error) {
	path := args[0]

	var src io.ReadCloser = os.Stdin
	if len(args) > 1 {
		src, err = os.Open(args[1])
		if err != nil {
			return err
		}
	}
	defer src.Close()

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w, err := store.OpenWrite(context.Background(), path, putAppend)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Discard()
		return fmt.Errorf("buffer content: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("store blob: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Stored %s\n", path)
	return nil
}
