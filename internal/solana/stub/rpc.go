// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"solana-token-sale/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu         sync.RWMutex
	accounts   map[solana.PublicKey]solana.AccountInfo
	slot       int64
	blockTimes map[int64]int64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		accounts:   make(map[solana.PublicKey]solana.AccountInfo),
		blockTimes: make(map[int64]int64),
	}
}

// SetAccount stores or replaces an account.
func (c *RPCClient) SetAccount(key solana.PublicKey, acc solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc.Data = append([]byte(nil), acc.Data...)
	c.accounts[key] = acc
}

// SetClock sets the current slot and its block time.
func (c *RPCClient) SetClock(slot, unixTime int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = slot
	c.blockTimes[slot] = unixTime
}

// GetAccountInfo returns a copy of the stored account, or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, key solana.PublicKey) (*solana.AccountInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	acc, ok := c.accounts[key]
	if !ok {
		return nil, nil
	}
	acc.Data = append([]byte(nil), acc.Data...)
	return &acc, nil
}

// GetProgramAccounts applies dataSize and memcmp filters over stored accounts
// owned by program. Results are ordered by address.
func (c *RPCClient) GetProgramAccounts(_ context.Context, program solana.PublicKey, filters ...solana.AccountFilter) ([]solana.KeyedAccount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []solana.KeyedAccount
	for key, acc := range c.accounts {
		if acc.Owner != program || !matches(acc.Data, filters) {
			continue
		}
		acc.Data = append([]byte(nil), acc.Data...)
		out = append(out, solana.KeyedAccount{Pubkey: key, Account: acc})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Pubkey[:], out[j].Pubkey[:]) < 0
	})
	return out, nil
}

func matches(data []byte, filters []solana.AccountFilter) bool {
	for _, f := range filters {
		if f.Memcmp != nil {
			end := f.Memcmp.Offset + uint64(len(f.Memcmp.Bytes))
			if end > uint64(len(data)) || !bytes.Equal(data[f.Memcmp.Offset:end], f.Memcmp.Bytes) {
				return false
			}
			continue
		}
		if uint64(len(data)) != f.DataSize {
			return false
		}
	}
	return true
}

// GetSlot returns the slot set by SetClock.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slot, nil
}

// GetBlockTime returns the time set for slot, or nil.
func (c *RPCClient) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ts, ok := c.blockTimes[slot]
	if !ok {
		return nil, nil
	}
	return &ts, nil
}

var _ solana.RPCClient = (*RPCClient)(nil)
