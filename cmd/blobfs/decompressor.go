// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/substratefs/blobfs/decompressor"
	"github.com/substratefs/blobfs/internal/base"
)

// The sandbox supervisor launches this process with the session handed
// over as inherited descriptors.
const (
	channelFd      = 3
	compressedFd   = 4
	decompressedFd = 5
)

var decompressorCmd = &cobra.Command{
	Use:   "decompressor",
	Short: "serve one decompression session over inherited descriptors",
	Long: `
Serve the sandboxed decompression engine. The supervisor passes the session
channel on fd 3, the compressed buffer on fd 4 and the decompressed buffer
on fd 5; the process exits when the peer closes the channel.
`,
	Args: cobra.ExactArgs(0),
	RunE: runDecompressor,
}

func runDecompressor(cmd *cobra.Command, args []string) error {
	channel := os.NewFile(channelFd, "channel")
	compressedFile := os.NewFile(compressedFd, "compressed")
	decompressedFile := os.NewFile(decompressedFd, "decompressed")
	if channel == nil || compressedFile == nil || decompressedFile == nil {
		return errors.New("missing inherited session descriptors")
	}

	compressed, err := decompressor.MapRegion(compressedFile, false /* writable */)
	if err != nil {
		return err
	}
	decompressed, err := decompressor.MapRegion(decompressedFile, true /* writable */)
	if err != nil {
		return err
	}
	// The mappings keep the buffers alive; the descriptors can go.
	_ = compressedFile.Close()
	_ = decompressedFile.Close()

	srv := decompressor.NewServer(decompressor.Options{Logger: base.DefaultLogger{}})
	if err := srv.CreateSession(channel, compressed, decompressed); err != nil {
		return err
	}
	srv.Wait()
	return nil
}
