package local

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/blockberries/founders/protocol"
	"github.com/blockberries/founders/types"
)

func testIdentity(n byte) types.Identity {
	var id types.Identity
	id[0] = n
	id[31] = n
	return id
}

func TestLocalConnection_FullCycle(t *testing.T) {
	app := protocol.New()
	conn := NewConnection(app)
	defer conn.Close()

	_, err := conn.Handshake(context.Background(), types.HandshakeRequest{
		Genesis: &types.GenesisDoc{ChainID: "test"},
	})
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}

	if !conn.Capabilities().Has(types.CapStateSync) {
		t.Error("expected CapStateSync")
	}
	if conn.AsStateSync() == nil {
		t.Error("expected non-nil StateSync")
	}
	if conn.AsSimulator() == nil {
		t.Error("expected non-nil Simulator")
	}

	// Execute and commit a deposit.
	alice := testIdentity(1)
	tx := protocol.DepositTx(protocol.AccountOf(alice), 500)
	outcome, err := conn.ExecuteBlock(context.Background(), types.FinalizedBlock{
		Height: 1,
		Time:   types.Timestamp{Seconds: 1000},
		Txs:    []types.Tx{tx},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !outcome.TxOutcomes[0].OK() {
		t.Fatalf("tx failed: %s", outcome.TxOutcomes[0].Info)
	}

	_, err = conn.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	// Query the credited balance.
	result, err := conn.Query(context.Background(), types.StateQuery{
		Path: "/balance",
		Data: []byte(protocol.AccountOf(alice)),
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	balance := binary.BigEndian.Uint64(result.Value)
	if balance != 500 {
		t.Errorf("expected balance=500, got %d", balance)
	}
}

func TestLocalConnection_CheckTxConcurrent(t *testing.T) {
	conn := NewConnection(protocol.New())

	_, err := conn.Handshake(context.Background(), types.HandshakeRequest{
		Genesis: &types.GenesisDoc{ChainID: "test"},
	})
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			tx := protocol.DepositTx(protocol.AccountOf(testIdentity(2)), 1)
			_, err := conn.CheckTx(context.Background(), tx, types.MempoolFirstSeen)
			if err != nil {
				t.Errorf("CheckTx error: %v", err)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
}
