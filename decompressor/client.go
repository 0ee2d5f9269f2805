// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package decompressor

import (
	"io"

	"github.com/cockroachdb/errors"
)

// Client is the storage-engine end of a session channel. It issues one
// request at a time and blocks for the reply; the protocol has no
// pipelining. A Client is single-owner, like the session it talks to.
type Client struct {
	channel io.ReadWriteCloser
}

// NewClient wraps the client end of a session channel.
func NewClient(channel io.ReadWriteCloser) *Client {
	return &Client{channel: channel}
}

// Do sends one transform request and waits for the response record. A
// channel failure is returned as an error; a failure status is not (the
// caller inspects Response.Status).
func (c *Client) Do(req Request) (Response, error) {
	var reqBuf [RequestSize]byte
	req.encode(&reqBuf)
	if _, err := c.channel.Write(reqBuf[:]); err != nil {
		return Response{}, errors.Wrap(err, "decompressor request")
	}
	var respBuf [ResponseSize]byte
	if _, err := io.ReadFull(c.channel, respBuf[:]); err != nil {
		return Response{}, errors.Wrap(err, "decompressor response")
	}
	return decodeResponse(&respBuf), nil
}

// Close closes the channel endpoint, ending the session on the other side.
func (c *Client) Close() error {
	return c.channel.Close()
}
