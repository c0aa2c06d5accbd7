// Package ingestion mirrors on-chain sale state into an account store: a
// backfill pulls the sale and its participant records over RPC, and a watch
// loop applies WebSocket account and program notifications as they arrive.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

// participantSaleOffset is where the sale key sits in a participant record.
const participantSaleOffset = 1 + 32

// Recorder receives one call per mirrored account update.
type Recorder interface {
	RecordAccountUpdate(kind string, slot uint64)
}

// SyncerOptions contains configuration for creating a Syncer.
type SyncerOptions struct {
	RPC      solana.RPCClient
	WS       solana.WSClient // required by Watch only
	Accounts storage.AccountStore
	Progress storage.SyncProgressStore
	Recorder Recorder // optional
	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Syncer mirrors sale accounts into storage.
type Syncer struct {
	rpc      solana.RPCClient
	ws       solana.WSClient
	accounts storage.AccountStore
	progress storage.SyncProgressStore
	recorder Recorder
	logger   *log.Logger
}

// NewSyncer creates a new account syncer.
func NewSyncer(opts SyncerOptions) *Syncer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Syncer{
		rpc:      opts.RPC,
		ws:       opts.WS,
		accounts: opts.Accounts,
		progress: opts.Progress,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// Backfill stores the sale account, its mint and vault once TGE is set, and
// every participant record of the sale as of the current slot. It returns the
// stored addresses, sale first.
func (s *Syncer) Backfill(ctx context.Context, program, sale solana.PublicKey) ([]solana.PublicKey, error) {
	slot, err := s.rpc.GetSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}

	saleAcc, err := s.rpc.GetAccountInfo(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("get sale %s: %w", sale, err)
	}
	if saleAcc == nil {
		return nil, fmt.Errorf("sale %s: %w", sale, storage.ErrNotFound)
	}
	if saleAcc.Owner != program {
		return nil, fmt.Errorf("sale %s owned by %s, not %s", sale, saleAcc.Owner, program)
	}

	participants, err := s.rpc.GetProgramAccounts(ctx, program,
		solana.AccountFilter{DataSize: domain.ParticipantSize},
		solana.AccountFilter{Memcmp: &solana.MemcmpFilter{Offset: participantSaleOffset, Bytes: sale.Bytes()}},
	)
	if err != nil {
		return nil, fmt.Errorf("get participants of %s: %w", sale, err)
	}

	batch := []solana.KeyedAccount{{Pubkey: sale, Account: *saleAcc}}
	related, err := s.tokenAccounts(ctx, saleAcc)
	if err != nil {
		return nil, err
	}
	batch = append(batch, related...)
	batch = append(batch, participants...)
	if err := s.accounts.PutBulk(ctx, batch); err != nil {
		return nil, fmt.Errorf("store backfill: %w", err)
	}
	for _, ka := range batch {
		if err := s.progress.SetLastSynced(ctx, &storage.SyncProgress{Account: ka.Pubkey, Slot: uint64(slot)}); err != nil {
			return nil, fmt.Errorf("save progress %s: %w", ka.Pubkey, err)
		}
		s.record(ka.Account, uint64(slot))
	}

	s.logger.Printf("[ingestion] Backfilled sale %s with %d participants at slot %d", sale, len(participants), slot)
	keys := make([]solana.PublicKey, len(batch))
	for i, ka := range batch {
		keys[i] = ka.Pubkey
	}
	return keys, nil
}

// tokenAccounts fetches the sale mint and vault of a sale past TGE.
func (s *Syncer) tokenAccounts(ctx context.Context, saleAcc *solana.AccountInfo) ([]solana.KeyedAccount, error) {
	rec, err := domain.DecodeSale(saleAcc.Data)
	if err != nil {
		return nil, fmt.Errorf("decode sale: %w", err)
	}
	phase, ok := rec.TGE()
	if !ok {
		return nil, nil
	}
	var out []solana.KeyedAccount
	for _, k := range []solana.PublicKey{phase.SaleMint, phase.SaleVault} {
		acc, err := s.rpc.GetAccountInfo(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", k, err)
		}
		if acc != nil {
			out = append(out, solana.KeyedAccount{Pubkey: k, Account: *acc})
		}
	}
	return out, nil
}

// Watch follows a sale: the sale account, every participant record of the
// sale through a filtered program subscription (so records created later are
// mirrored too), and the sale mint and vault as soon as the stored or
// streamed sale state carries them. Every notification newer than the stored
// progress is applied. onUpdate, when set, runs after each stored update.
// Watch returns when ctx is done or every subscription has ended.
func (s *Syncer) Watch(ctx context.Context, program, sale solana.PublicKey, onUpdate func(solana.AccountNotification)) error {
	if s.ws == nil {
		return errors.New("watch requires a websocket client")
	}

	merged := make(chan solana.AccountNotification)
	ended := make(chan struct{})
	live := 0
	forward := func(ch <-chan solana.AccountNotification) {
		live++
		go func() {
			for n := range ch {
				select {
				case merged <- n:
				case <-ctx.Done():
					return
				}
			}
			select {
			case ended <- struct{}{}:
			case <-ctx.Done():
			}
		}()
	}

	subscribed := make(map[solana.PublicKey]bool)
	follow := func(key solana.PublicKey) error {
		if subscribed[key] {
			return nil
		}
		ch, err := s.ws.SubscribeAccount(ctx, key)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", key, err)
		}
		subscribed[key] = true
		s.logger.Printf("[ingestion] Subscribed to account: %s", key)
		forward(ch)
		return nil
	}
	followTokens := func(data []byte) error {
		rec, err := domain.DecodeSale(data)
		if err != nil {
			return nil
		}
		phase, ok := rec.TGE()
		if !ok {
			return nil
		}
		if err := follow(phase.SaleMint); err != nil {
			return err
		}
		return follow(phase.SaleVault)
	}

	if err := follow(sale); err != nil {
		return err
	}
	participants, err := s.ws.SubscribeProgram(ctx, program,
		solana.AccountFilter{DataSize: domain.ParticipantSize},
		solana.AccountFilter{Memcmp: &solana.MemcmpFilter{Offset: participantSaleOffset, Bytes: sale.Bytes()}},
	)
	if err != nil {
		return fmt.Errorf("subscribe participants of %s: %w", sale, err)
	}
	s.logger.Printf("[ingestion] Subscribed to participants of sale: %s", sale)
	forward(participants)

	switch stored, err := s.accounts.Get(ctx, sale); {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load sale %s: %w", sale, err)
	default:
		if err := followTokens(stored.Data); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ended:
			live--
			if live == 0 {
				return nil
			}
		case n := <-merged:
			applied, err := s.Apply(ctx, n)
			if err != nil {
				return err
			}
			if !applied {
				continue
			}
			if n.Key == sale {
				if err := followTokens(n.Account.Data); err != nil {
					return err
				}
			}
			if onUpdate != nil {
				onUpdate(n)
			}
		}
	}
}

// Apply stores one notification unless it is not newer than the stored
// progress for its account. It reports whether the update was stored.
func (s *Syncer) Apply(ctx context.Context, n solana.AccountNotification) (bool, error) {
	slot := uint64(n.Slot)
	last, err := s.progress.GetLastSynced(ctx, n.Key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return false, fmt.Errorf("load progress %s: %w", n.Key, err)
	case slot <= last.Slot:
		return false, nil
	}

	if err := s.accounts.Put(ctx, solana.KeyedAccount{Pubkey: n.Key, Account: n.Account}); err != nil {
		return false, fmt.Errorf("store %s: %w", n.Key, err)
	}
	if err := s.progress.SetLastSynced(ctx, &storage.SyncProgress{Account: n.Key, Slot: slot}); err != nil {
		return false, fmt.Errorf("save progress %s: %w", n.Key, err)
	}
	s.record(n.Account, slot)
	return true, nil
}

func (s *Syncer) record(acc solana.AccountInfo, slot uint64) {
	if s.recorder != nil {
		s.recorder.RecordAccountUpdate(AccountKind(acc), slot)
	}
}

// AccountKind classifies a mirrored account for metrics and display.
func AccountKind(acc solana.AccountInfo) string {
	if acc.Owner == solana.TokenProgramID {
		return "token"
	}
	if len(acc.Data) == 0 {
		return "empty"
	}
	return domain.RecordKind(acc.Data[0]).String()
}
