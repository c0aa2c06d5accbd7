package solana

import "context"

// WSClient defines the Solana WebSocket account subscription interface.
type WSClient interface {
	// SubscribeAccount streams the account's state on every change.
	SubscribeAccount(ctx context.Context, key PublicKey) (<-chan AccountNotification, error)

	// SubscribeProgram streams every account owned by program that matches
	// all filters, including accounts created after the subscription.
	SubscribeProgram(ctx context.Context, program PublicKey, filters ...AccountFilter) (<-chan AccountNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// AccountNotification is one account or program notification with decoded data.
type AccountNotification struct {
	Key     PublicKey
	Slot    int64
	Account AccountInfo
}
