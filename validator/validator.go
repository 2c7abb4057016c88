// Package validator implements the round loop that coordinates a network of
// peers jointly evolving the shared automaton row: per-round chunk
// partitioning, the concurrent peer exchange, boundary reconciliation, and
// state persistence.
package validator

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/lattica/lattica/chain"
	"github.com/lattica/lattica/config"
	"github.com/lattica/lattica/libs/log"
	tmos "github.com/lattica/lattica/libs/os"
	"github.com/lattica/lattica/libs/service"
	"github.com/lattica/lattica/storage"
	"github.com/lattica/lattica/version"
)

// ScoreFunc is called once per connected peer at the end of an exchange,
// with the live score vector, the peer's uid, and whether its exchange
// faulted. The default validator installs no policy and leaves scores
// untouched.
type ScoreFunc func(scores []uint16, uid uint16, faulted bool)

// Option configures a Validator at construction.
type Option func(*Validator)

// WithScoreFunc installs a scoring hook.
func WithScoreFunc(fn ScoreFunc) Option {
	return func(v *Validator) { v.scoreFunc = fn }
}

// WithMetrics replaces the default no-op metrics.
func WithMetrics(m *Metrics) Option {
	return func(v *Validator) { v.metrics = m }
}

// Validator drives the evolution rounds. One iteration: sync check, connect,
// partition, exchange, reconcile, persist. Runs until its context is done;
// a failed round is logged and the loop proceeds to the next one.
type Validator struct {
	service.BaseService

	logger  log.Logger
	cfg     *config.Config
	client  chain.Client
	metrics *Metrics

	scheduler Scheduler
	exchanger *Exchanger
	scoreFunc ScoreFunc

	row    *storage.SharedRow
	column *storage.MappedFile
	state  State

	uid      uint16
	neurons  []chain.Neuron
	lastSync uint64

	done chan struct{}
}

// New fetches the peer directory, verifies the node's registration, opens
// the persistent stores, and restores the last snapshot. Any error here is
// startup-fatal: the round loop has not begun.
func New(ctx context.Context, cfg *config.Config, client chain.Client, logger log.Logger, options ...Option) (*Validator, error) {
	logger = logger.With("module", "validator")

	neurons, err := client.Neurons(ctx, cfg.Chain.Netuid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch peer directory: %w", err)
	}

	block, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block number: %w", err)
	}

	self := chain.FindNeuron(neurons, cfg.Chain.Hotkey)
	if self == nil {
		return nil, &ErrNotRegistered{Hotkey: cfg.Chain.Hotkey, Netuid: cfg.Chain.Netuid}
	}

	if err := tmos.EnsureDir(cfg.ValidatorDir(), 0o700); err != nil {
		return nil, err
	}

	rowStore, err := storage.OpenMappedFile(cfg.RowFile())
	if err != nil {
		return nil, err
	}

	column, err := storage.OpenMappedFile(cfg.ColumnFile())
	if err != nil {
		rowStore.Close()
		return nil, err
	}

	hotkeys := make([]string, len(neurons))
	for i, n := range neurons {
		hotkeys[i] = n.Hotkey
	}

	state := DefaultState(hotkeys)
	if loaded, ok, err := LoadState(cfg.StateFile()); err != nil {
		rowStore.Close()
		column.Close()
		return nil, err
	} else if ok {
		state = loaded
	}

	v := &Validator{
		logger:  logger,
		cfg:     cfg,
		client:  client,
		metrics: NopMetrics(),
		scheduler: Scheduler{
			CompatSplit: cfg.Exchange.CompatSplit,
		},
		row:      storage.NewSharedRow(rowStore),
		column:   column,
		state:    state,
		uid:      self.UID,
		neurons:  neurons,
		lastSync: block,
		done:     make(chan struct{}),
	}
	for _, option := range options {
		option(v)
	}

	v.exchanger = NewExchanger(logger, v.metrics,
		cfg.Exchange.PoolSize, cfg.Exchange.SubBufferSize, cfg.Exchange.ExchangeTimeout)

	if v.state.Round == 1 {
		// initial automaton state: a single live cell
		seedErr := rowStore.SetAt(0, 1)
		if seedErr == nil {
			seedErr = column.SetAt(0, 1)
		}
		if seedErr != nil {
			rowStore.Close()
			column.Close()
			return nil, seedErr
		}
	}

	v.BaseService = *service.NewBaseService(logger, "Validator", v)
	return v, nil
}

// OnStart implements service.Implementation by launching the round loop.
func (v *Validator) OnStart(ctx context.Context) error {
	go v.run(ctx)
	return nil
}

// OnStop implements service.Implementation. The stores are flushed and
// closed after the round loop has wound down.
func (v *Validator) OnStop() {
	<-v.done

	if err := v.row.Store().Close(); err != nil {
		v.logger.Error("error closing row store", "err", err)
	}
	if err := v.column.Close(); err != nil {
		v.logger.Error("error closing column store", "err", err)
	}
}

func (v *Validator) run(ctx context.Context) {
	defer close(v.done)

	for ctx.Err() == nil {
		if err := v.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			v.logger.Error("evolution round failed", "round", v.state.Round, "err", err)
		}
	}
}

// Step runs one evolution round. Returned errors are round-level: the caller
// logs them and moves on.
func (v *Validator) Step(ctx context.Context) error {
	start := time.Now()
	v.logger.Info("evolution round", "round", v.state.Round)

	block, err := v.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch block number: %w", err)
	}

	if block-v.lastSync >= v.cfg.Chain.EpochLength {
		if err := v.sync(ctx, block); err != nil {
			return err
		}
	}

	conns := v.connectPeers()
	defer func() {
		for _, pc := range conns {
			pc.Conn.Close()
		}
	}()
	v.metrics.ConnectedPeers.Set(float64(len(conns)))

	assignments := v.scheduler.Assignments(v.state.Round, len(conns))
	if len(assignments) > 0 {
		if err := v.exchangeAndReconcile(conns, assignments); err != nil {
			return err
		}
	}

	v.state.Round++
	if err := v.save(); err != nil {
		return err
	}

	v.metrics.Rounds.Add(1)
	v.metrics.RoundDurationSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// exchangeAndReconcile grows the row to a whole number of lanes covering
// every assignment, runs the worker pool to the join barrier, repairs the
// lane seams, and records the round's column cell.
func (v *Validator) exchangeAndReconcile(conns []PeerConn, assignments []Assignment) error {
	span := RowBytes(v.state.Round)
	for _, a := range assignments {
		if a.End > span {
			span = a.End // legacy split may overrun the row span
		}
	}
	laneSpan := (span + LaneSize - 1) / LaneSize * LaneSize

	if err := v.row.Store().Grow(laneSpan); err != nil {
		return err
	}

	faults := v.exchanger.Run(v.row, conns, assignments)

	if v.scoreFunc != nil {
		faulted := make(map[uint16]bool, len(faults))
		for _, f := range faults {
			faulted[f.UID] = true
		}
		for _, pc := range conns {
			v.scoreFunc(v.state.Scores, pc.Neuron.UID, faulted[pc.Neuron.UID])
		}
	}

	Normalize(v.row.Store().Range(0, laneSpan))

	// the derived per-round state: the center cell of the normalized row
	center := v.row.Store().At(span / 2)
	return v.column.SetAt(int64(v.state.Round), center)
}

// sync replaces the peer list wholesale, resizes the score vector, and
// submits scores when the node's own last update is an epoch behind.
func (v *Validator) sync(ctx context.Context, block uint64) error {
	neurons, err := v.client.Neurons(ctx, v.cfg.Chain.Netuid)
	if err != nil {
		return fmt.Errorf("failed to refresh peer directory: %w", err)
	}

	v.neurons = neurons
	v.lastSync = block

	self := chain.FindNeuron(neurons, v.cfg.Chain.Hotkey)
	if self == nil {
		return &ErrNotRegistered{Hotkey: v.cfg.Chain.Hotkey, Netuid: v.cfg.Chain.Netuid}
	}
	v.uid = self.UID

	hotkeys := make([]string, len(neurons))
	for i, n := range neurons {
		hotkeys[i] = n.Hotkey
	}
	v.state.Resize(hotkeys)

	if block-self.LastUpdate >= v.cfg.Chain.EpochLength {
		weights := make([]chain.Weight, len(v.state.Scores))
		for uid, score := range v.state.Scores {
			weights[uid] = chain.Weight{UID: uint16(uid), Value: score}
		}

		if err := v.client.SetWeights(ctx, v.cfg.Chain.Netuid, weights, version.WeightsVersionKey); err != nil {
			return fmt.Errorf("failed to submit scores: %w", err)
		}
		v.logger.Info("submitted scores", "block", block, "peers", len(weights))
	}

	return nil
}

// connectPeers dials every directory peer's advertised address, silently
// dropping the unreachable ones.
func (v *Validator) connectPeers() []PeerConn {
	conns := make([]PeerConn, 0, len(v.neurons))
	for _, n := range v.neurons {
		if err := chain.ValidateAddress(n.Address); err != nil {
			v.logger.Debug("skipping peer with bad address", "uid", n.UID, "err", err)
			continue
		}

		conn, err := net.DialTimeout("tcp", n.Address, v.cfg.Exchange.DialTimeout)
		if err != nil {
			v.logger.Debug("peer unreachable", "uid", n.UID, "addr", n.Address, "err", err)
			continue
		}
		conns = append(conns, PeerConn{Neuron: n, Conn: conn})
	}
	return conns
}

// save flushes both stores, then overwrites the JSON snapshot atomically.
func (v *Validator) save() error {
	if err := v.column.Flush(); err != nil {
		return err
	}
	if err := v.row.Store().Flush(); err != nil {
		return err
	}
	return SaveState(v.cfg.StateFile(), v.state)
}

// State returns a copy of the validator's current snapshot state.
func (v *Validator) State() State {
	s := v.state
	s.Hotkeys = append([]string(nil), v.state.Hotkeys...)
	s.Scores = append([]uint16(nil), v.state.Scores...)
	return s
}
