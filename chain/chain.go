// Package chain talks to the chain collaborator: the peer directory,
// block-height queries, and score submission. The validator consumes the
// Client interface; WSClient implements it over a JSON-RPC websocket.
package chain

import (
	"context"
	"fmt"
	"net"
)

// Neuron is one entry of the peer directory. Address is the peer's
// advertised "host:port" exchange endpoint.
type Neuron struct {
	UID        uint16 `json:"uid"`
	Hotkey     string `json:"hotkey"`
	Address    string `json:"address"`
	LastUpdate uint64 `json:"last_update"`
}

// Weight is one entry of a score submission, index-aligned with the
// directory UIDs.
type Weight struct {
	UID   uint16 `json:"uid"`
	Value uint16 `json:"value"`
}

// Client is the chain collaborator interface the validator depends on.
type Client interface {
	// Neurons returns the full peer directory for the subnet. The caller
	// replaces its peer list wholesale with the result.
	Neurons(ctx context.Context, netuid uint16) ([]Neuron, error)

	// BlockNumber returns the current block height.
	BlockNumber(ctx context.Context) (uint64, error)

	// SetWeights submits the validator's score vector.
	SetWeights(ctx context.Context, netuid uint16, weights []Weight, versionKey uint64) error
}

// FindNeuron returns the directory entry for the given hotkey, or nil if the
// hotkey is not registered.
func FindNeuron(neurons []Neuron, hotkey string) *Neuron {
	for i := range neurons {
		if neurons[i].Hotkey == hotkey {
			return &neurons[i]
		}
	}
	return nil
}

// ValidateAddress rejects directory addresses that cannot be dialed.
func ValidateAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid peer address %q: %w", addr, err)
	}
	if host == "" || port == "" {
		return fmt.Errorf("invalid peer address %q: empty host or port", addr)
	}
	return nil
}
