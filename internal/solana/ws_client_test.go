package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// idleServer accepts a connection and drains it until the client leaves.
func idleServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestWSClient_Connect(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	require.NoError(t, err)
	defer client.Close()

	assert.False(t, client.closed.Load())
}

func TestWSClient_SubscribeAccount(t *testing.T) {
	key := MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	payload := []byte{2, 0, 0, 7}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "accountSubscribe" {
			t.Errorf("expected accountSubscribe, got %s", req.Method)
		}
		if len(req.Params) == 0 || req.Params[0] != key.String() {
			t.Errorf("unexpected params %v", req.Params)
		}

		if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 12345}); err != nil {
			return
		}

		time.Sleep(50 * time.Millisecond)
		notif := wsNotification{
			JSONRPC: "2.0",
			Method:  "accountNotification",
			Params: &wsNotificationParams{
				Subscription: 12345,
				Result: wsNotificationResult{
					Context: &wsContext{Slot: 100},
					Value: &rawAccount{
						Lamports: 42,
						Owner:    SystemProgramID,
						Data:     []string{base64.StdEncoding.EncodeToString(payload), "base64"},
					},
				},
			},
		}
		if err := c.WriteJSON(notif); err != nil {
			return
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeAccount(ctx, key)
	require.NoError(t, err)

	select {
	case notif := <-ch:
		assert.Equal(t, key, notif.Key)
		assert.Equal(t, int64(100), notif.Slot)
		assert.Equal(t, uint64(42), notif.Account.Lamports)
		assert.Equal(t, payload, notif.Account.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_SubscribeProgram(t *testing.T) {
	program := MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	created := MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	sale := MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	payload := []byte{1, 2, 3}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "programSubscribe" {
			t.Errorf("expected programSubscribe, got %s", req.Method)
		}
		if len(req.Params) != 2 || req.Params[0] != program.String() {
			t.Errorf("unexpected params %v", req.Params)
			return
		}
		config, _ := req.Params[1].(map[string]interface{})
		filters, _ := config["filters"].([]interface{})
		if len(filters) != 2 {
			t.Errorf("expected 2 filters, got %v", config["filters"])
		}

		if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 777}); err != nil {
			return
		}

		time.Sleep(50 * time.Millisecond)
		notif := wsProgramNotification{
			JSONRPC: "2.0",
			Method:  "programNotification",
			Params: &wsProgramNotificationParams{
				Subscription: 777,
				Result: wsProgramNotificationResult{
					Context: &wsContext{Slot: 55},
					Value: &getProgramAccountsItem{
						Pubkey: created,
						Account: rawAccount{
							Lamports: 9,
							Owner:    program,
							Data:     []string{base64.StdEncoding.EncodeToString(payload), "base64"},
						},
					},
				},
			},
		}
		if err := c.WriteJSON(notif); err != nil {
			return
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeProgram(ctx, program,
		AccountFilter{DataSize: 81},
		AccountFilter{Memcmp: &MemcmpFilter{Offset: 33, Bytes: sale.Bytes()}},
	)
	require.NoError(t, err)

	select {
	case notif := <-ch:
		assert.Equal(t, created, notif.Key)
		assert.Equal(t, int64(55), notif.Slot)
		assert.Equal(t, program, notif.Account.Owner)
		assert.Equal(t, payload, notif.Account.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_SubscribeTimeout(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), &WSClientConfig{
		ReconnectDelay:    100 * time.Millisecond,
		MaxReconnectDelay: time.Second,
		PingInterval:      5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
		SubscribeTimeout:  50 * time.Millisecond,
	})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.SubscribeAccount(context.Background(), SystemProgramID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription timeout")
}

func TestWSClient_Close(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.True(t, client.closed.Load())

	// Double close should be safe
	require.NoError(t, client.Close())
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	require.NoError(t, err)
	client.Close()

	_, err = client.SubscribeAccount(context.Background(), SystemProgramID)
	assert.Error(t, err)
}

func TestWSClient_CustomConfig(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	config := &WSClientConfig{
		ReconnectDelay:    100 * time.Millisecond,
		MaxReconnectDelay: 1 * time.Second,
		PingInterval:      5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
	}

	client, err := NewWSClient(context.Background(), wsURL(server), config)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 5*time.Second, client.config.PingInterval)
	assert.Equal(t, DefaultWSConfig().SubscribeTimeout, client.config.SubscribeTimeout)
}
