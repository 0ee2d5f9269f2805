// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "blobfs [command] (flags)",
	Short: "blobfs maintenance/introspection tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		decompressorCmd,
		chunkedCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
