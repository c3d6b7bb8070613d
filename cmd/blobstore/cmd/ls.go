package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blobstore-go/blobstore"
)

var (
	lsRecurse bool
	lsMax     int
	lsSuffix  string
)

var lsCmd = &cobra.Command{
	Use:   "ls [folder]",
	Short: "List blobs in a folder",
	Long:  "List blobs directly in a folder, or anywhere beneath it with --recurse.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

func init() {
	lsCmd.Flags().BoolVarP(&lsRecurse, "recurse", "r", false, "include blobs in nested folders")
	lsCmd.Flags().IntVar(&lsMax, "max", 0, "maximum number of results (0 = unbounded)")
	lsCmd.Flags().StringVar(&lsSuffix, "suffix", "", "only list blobs whose name ends with this suffix")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) (err error) {
	folder := "/"
	if len(args) > 0 {
		folder = args[0]
	}

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	opts := blobstore.ListOptions{
		FolderPath: folder,
		Recurse:    lsRecurse,
		MaxResults: lsMax,
	}
	if lsSuffix != "" {
		opts.IsMatch = func(b blobstore.Blob) bool {
			return strings.HasSuffix(b.Name, lsSuffix)
		}
	}

	blobs, err := store.List(context.Background(), opts)
	if err != nil {
		return err
	}
	if len(blobs) == 0 {
		fmt.Println("(no blobs)")
		return nil
	}

	sort.Slice(blobs, func(i, j int) bool { return blobs[i].FullPath < blobs[j].FullPath })
	for _, b := range blobs {
		fmt.Println(b.FullPath)
	}
	return nil
}
