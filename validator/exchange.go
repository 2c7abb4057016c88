package validator

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/lattica/lattica/chain"
	"github.com/lattica/lattica/libs/log"
	"github.com/lattica/lattica/storage"
)

const (
	// DefaultPoolSize bounds the number of concurrently exchanging workers.
	DefaultPoolSize = 256

	// DefaultSubBufferSize caps one sub-round's payload, bounding per-worker
	// memory regardless of chunk size.
	DefaultSubBufferSize = 8 * 4 * 512 // 16 KiB

	// DefaultExchangeTimeout bounds every sub-round's socket round-trip so a
	// stalled peer faults its own worker instead of the join barrier.
	DefaultExchangeTimeout = 30 * time.Second
)

// PeerConn is a live connection to one directory peer for the current round.
type PeerConn struct {
	Neuron chain.Neuron
	Conn   net.Conn
}

// Exchanger runs the per-round chunk exchange: one worker per peer
// connection, bounded concurrency, joined before reconciliation.
type Exchanger struct {
	logger  log.Logger
	metrics *Metrics

	poolSize      int
	subBufferSize int64
	timeout       time.Duration
}

// NewExchanger returns an exchanger with the given pool capacity, sub-buffer
// cap, and per-sub-round deadline. Zero values select the defaults.
func NewExchanger(logger log.Logger, metrics *Metrics, poolSize int, subBufferSize int64, timeout time.Duration) *Exchanger {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if subBufferSize <= 0 {
		subBufferSize = DefaultSubBufferSize
	}
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	return &Exchanger{
		logger:        logger,
		metrics:       metrics,
		poolSize:      poolSize,
		subBufferSize: subBufferSize,
		timeout:       timeout,
	}
}

// Run dispatches one worker per (connection, assignment) pair and blocks
// until every worker has finished. conns and assignments are index-aligned.
// Returned faults identify peers whose exchange failed; their uncommitted
// row bytes are untouched and the caller proceeds with the round.
func (e *Exchanger) Run(row *storage.SharedRow, conns []PeerConn, assignments []Assignment) []*PeerFault {
	if len(conns) != len(assignments) {
		panic(fmt.Sprintf("got %d connections for %d assignments", len(conns), len(assignments)))
	}

	faultCh := make(chan *PeerFault, len(conns))
	sem := make(chan struct{}, e.poolSize)

	var wg sync.WaitGroup
	for i := range conns {
		pc := conns[i]
		view := row.View(assignments[i].Start, assignments[i].End)

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := e.exchangeChunk(pc.Conn, view); err != nil {
				e.metrics.PeerFaults.Add(1)
				faultCh <- &PeerFault{UID: pc.Neuron.UID, Addr: pc.Neuron.Address, Err: err}
			}
		}()
	}
	wg.Wait()
	close(faultCh)

	var faults []*PeerFault
	for f := range faultCh {
		e.logger.Error("peer exchange fault", "uid", f.UID, "addr", f.Addr, "err", f.Err)
		faults = append(faults, f)
	}
	return faults
}

// exchangeChunk runs the synchronous sub-buffer rounds for one chunk: write
// the current bytes of the sub-range, read exactly as many back. The
// response is staged in a scratch buffer and committed only once the
// sub-round's read completes, so a fault never leaves a half-written
// sub-range behind.
func (e *Exchanger) exchangeChunk(conn net.Conn, view storage.RowView) error {
	length := view.Len()
	if length == 0 {
		return nil
	}

	bufSize := e.subBufferSize
	if length < bufSize {
		bufSize = length
	}
	scratch := make([]byte, bufSize)

	for from := int64(0); from < length; from += bufSize {
		to := from + bufSize
		if to > length {
			to = length
		}
		resp := scratch[:to-from]

		if err := conn.SetDeadline(time.Now().Add(e.timeout)); err != nil {
			return err
		}
		if _, err := conn.Write(view.Slice(from, to)); err != nil {
			return fmt.Errorf("failed to send sub-range [%d, %d): %w", from, to, err)
		}
		if _, err := io.ReadFull(conn, resp); err != nil {
			return fmt.Errorf("failed to receive sub-range [%d, %d): %w", from, to, err)
		}

		copy(view.Slice(from, to), resp)
		e.metrics.BytesExchanged.Add(float64(to - from))
	}

	return nil
}
