package main

import "github.com/blobstore-go/blobstore/cmd/blobstore/cmd"

func main() {
	cmd.Execute()
}
