// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package decompressor implements the sandboxed decompression engine. The
// storage engine proper never runs codec logic: it hands the sandbox
// process a channel plus two memory regions per session, and the engine
// answers bounded transform requests over the channel, one at a time.
//
// A session consists of a bidirectional channel carrying fixed-layout
// request/response records, a read-only mapping of the compressed bytes,
// and a read-write mapping the decompressed bytes are produced into. Every
// request is bounds-validated against the mappings before any codec runs;
// a request that fails validation has no side effects. The session ends
// when the peer closes its channel endpoint.
package decompressor

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/chunked"
	"github.com/substratefs/blobfs/internal/base"
)

// Options configures a Server.
type Options struct {
	// Logger defaults to base.DefaultLogger.
	Logger base.Logger
	// Metrics collectors; all optional.
	Metrics Metrics
}

// Server owns the engine's sessions. Sessions are fully independent of one
// another; the Server only tracks them so Close can tear everything down.
type Server struct {
	logger  base.Logger
	metrics Metrics

	mu struct {
		sync.Mutex
		closed   bool
		sessions map[*session]struct{}
	}
	wg sync.WaitGroup
}

// NewServer returns an engine with no sessions.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = base.DefaultLogger{}
	}
	s := &Server{logger: opts.Logger, metrics: opts.Metrics}
	s.mu.sessions = make(map[*session]struct{})
	return s
}

// CreateSession establishes one decompression session and returns once its
// serving goroutine is running. The session takes ownership of the channel
// and both regions and releases them on every exit path. channel.Close must
// unblock concurrent reads (net.Conn and *os.File both qualify).
//
// Requests on the channel are processed strictly in arrival order, one at a
// time; the peer must not pipeline.
func (s *Server) CreateSession(channel io.ReadWriteCloser, compressed, decompressed *Region) error {
	sess := &session{
		srv:          s,
		channel:      channel,
		compressed:   compressed,
		decompressed: decompressed,
	}
	s.mu.Lock()
	if s.mu.closed {
		s.mu.Unlock()
		return errors.AssertionFailedf("blobfs: CreateSession on closed decompressor server")
	}
	s.mu.sessions[sess] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.sessionStarted()
	go sess.run()
	return nil
}

// Close ends every session by closing its channel endpoint and waits for
// the serving goroutines to drain. In-progress transforms run to
// completion; they cannot be preempted mid-operation.
func (s *Server) Close() error {
	s.mu.Lock()
	s.mu.closed = true
	for sess := range s.mu.sessions {
		_ = sess.channel.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// Wait blocks until every live session has ended on its own, without
// closing anything. The single-session service process uses it to linger
// until the storage engine drops the channel.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) forget(sess *session) {
	s.mu.Lock()
	delete(s.mu.sessions, sess)
	s.mu.Unlock()
}

// session is one channel plus its pair of mapped buffers. It serves on a
// dedicated goroutine; the channel read is the only suspension point.
type session struct {
	srv          *Server
	channel      io.ReadWriteCloser
	compressed   *Region
	decompressed *Region
}

func (sess *session) run() {
	defer sess.srv.wg.Done()
	defer sess.release()
	setSchedulingHint(sess.srv.logger)

	var reqBuf [RequestSize]byte
	var respBuf [ResponseSize]byte
	for {
		// Peer closure (or any channel failure) ends the session without a
		// final reply; nobody is there to read one.
		if _, err := io.ReadFull(sess.channel, reqBuf[:]); err != nil {
			return
		}
		req := decodeRequest(&reqBuf)

		start := time.Now()
		resp := sess.handle(req)
		sess.srv.metrics.requestDone(resp.Status, time.Since(start).Seconds())

		resp.encode(&respBuf)
		if _, err := sess.channel.Write(respBuf[:]); err != nil {
			return
		}
	}
}

func (sess *session) release() {
	sess.srv.forget(sess)
	if err := sess.channel.Close(); err != nil {
		sess.srv.logger.Infof("blobfs: decompressor channel close: %v", err)
	}
	if err := sess.compressed.release(); err != nil {
		sess.srv.logger.Errorf("blobfs: compressed region release: %v", err)
	}
	if err := sess.decompressed.release(); err != nil {
		sess.srv.logger.Errorf("blobfs: decompressed region release: %v", err)
	}
	sess.srv.metrics.sessionEnded()
}

// handle validates and executes one request. Validation failures carry no
// side effects: nothing is written into the decompressed mapping unless
// both ranges are in bounds and the algorithm dispatches.
func (sess *session) handle(req Request) Response {
	if !rangeInBounds(req.Compressed, sess.compressed.Len()) ||
		!rangeInBounds(req.Decompressed, sess.decompressed.Len()) {
		sess.srv.logger.Errorf("blobfs: requested ranges fall outside the mapped buffers")
		return Response{Status: StatusOutOfRange}
	}

	src := sess.compressed.data[req.Compressed.Offset : req.Compressed.Offset+req.Compressed.Size]
	dst := sess.decompressed.data[req.Decompressed.Offset : req.Decompressed.Offset+req.Decompressed.Size]

	var produced int
	var err error
	switch req.Algorithm {
	case ChunkedPartial:
		produced, err = chunked.DecompressFrame(dst, src)
	case Chunked:
		// The full-container transform maps the entire compressed input to
		// the entire decompressed output.
		if req.Compressed.Offset != 0 || req.Decompressed.Offset != 0 {
			err = errors.Wrap(base.ErrNotSupported, "chunked transform requires zero offsets")
			break
		}
		produced, err = chunked.Decompress(dst, src)
	default:
		err = errors.Wrapf(base.ErrNotSupported, "algorithm %s", req.Algorithm)
	}
	if err != nil {
		status := statusFromError(err)
		if status == StatusInternal {
			sess.srv.logger.Errorf("blobfs: decompressor transform: %+v", err)
		}
		return Response{Status: status}
	}
	return Response{Status: StatusOK, Size: uint64(produced)}
}

// rangeInBounds reports whether r fits a mapping of n bytes. The sum is
// checked for overflow before the comparison; this is the primary defense
// against out-of-bounds transforms from a compromised client.
func rangeInBounds(r Range, n uint64) bool {
	if r.Size > math.MaxUint64-r.Offset {
		return false
	}
	return r.Offset+r.Size <= n
}
