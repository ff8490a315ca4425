package world_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"fulfillment/internal/adapters/out/peer"
	"fulfillment/internal/adapters/out/world"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/framing"
	"fulfillment/internal/pkg/proto/worldpb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeWorld answers each accepted connection's AConnect with the next scripted
// result and records the requests. Every connection but the last is closed after
// the answer.
type fakeWorld struct {
	ln       net.Listener
	requests chan worldpb.Connect
}

func newFakeWorld(t *testing.T, worldID int64, results ...string) *fakeWorld {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	w := &fakeWorld{ln: ln, requests: make(chan worldpb.Connect, len(results))}
	go func() {
		for i, result := range results {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			body, err := framing.NewReader(conn).ReadFrame()
			if err != nil {
				_ = conn.Close()
				return
			}
			var req worldpb.Connect
			if err = req.Unmarshal(body); err != nil {
				_ = conn.Close()
				return
			}
			w.requests <- req

			frame, _ := framing.Encode(&worldpb.Connected{WorldID: worldID, Result: result})
			_, _ = conn.Write(frame)
			if i < len(results)-1 {
				_ = conn.Close()
				continue
			}
			t.Cleanup(func() { _ = conn.Close() })
		}
	}()
	return w
}

func (w *fakeWorld) next(t *testing.T) worldpb.Connect {
	t.Helper()
	select {
	case req := <-w.requests:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no AConnect received")
		return worldpb.Connect{}
	}
}

func warehouses(t *testing.T) []kernel.Warehouse {
	t.Helper()
	wh1, err := kernel.NewWarehouse(1, kernel.NewLocation(10, 20))
	require.NoError(t, err)
	wh2, err := kernel.NewWarehouse(2, kernel.NewLocation(-5, 7))
	require.NoError(t, err)
	return []kernel.Warehouse{wh1, wh2}
}

func newWorldLink(t *testing.T, addr string, hs *world.Handshaker) *peer.Link {
	t.Helper()
	l, err := peer.NewLink(peer.Config{Name: world.PeerName, Addr: addr, Handshaker: hs, ReconnectDelay: 10 * time.Millisecond}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestHandshake_RetriesWithoutWarehousesWhenTheyExist(t *testing.T) {
	fw := newFakeWorld(t, 7, "error: warehouse_id 1 already exists", world.ResultConnected)
	worldID := int64(7)
	hs := world.NewHandshaker(&worldID, warehouses(t), discardLogger())
	l := newWorldLink(t, fw.ln.Addr().String(), hs)

	require.NoError(t, l.Connect(context.Background()))
	assert.Equal(t, peer.Ready, l.State())

	first := fw.next(t)
	assert.True(t, first.IsAmazon)
	require.NotNil(t, first.WorldID)
	assert.Equal(t, int64(7), *first.WorldID)
	assert.Equal(t, []worldpb.InitWarehouse{{ID: 1, X: 10, Y: 20}, {ID: 2, X: -5, Y: 7}}, first.Warehouses)

	retry := fw.next(t)
	assert.True(t, retry.IsAmazon)
	assert.Empty(t, retry.Warehouses)
	require.NotNil(t, retry.WorldID)
	assert.Equal(t, int64(7), *retry.WorldID)

	id, ok := hs.WorldID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestHandshake_NewWorldRemembersAssignedID(t *testing.T) {
	fw := newFakeWorld(t, 99, world.ResultConnected, world.ResultConnected)
	hs := world.NewHandshaker(nil, warehouses(t), discardLogger())
	l := newWorldLink(t, fw.ln.Addr().String(), hs)

	require.NoError(t, l.Connect(context.Background()))
	first := fw.next(t)
	assert.Nil(t, first.WorldID)
	assert.Len(t, first.Warehouses, 2)

	// World hangs up; the reconnect registers with the assigned id and no
	// warehouses.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx, func(context.Context, []byte) {}) }()

	second := fw.next(t)
	require.NotNil(t, second.WorldID)
	assert.Equal(t, int64(99), *second.WorldID)
	assert.Empty(t, second.Warehouses)
	assert.Eventually(t, func() bool { return l.State() == peer.Ready }, 2*time.Second, 5*time.Millisecond)
}

func TestHandshake_RejectedResult(t *testing.T) {
	fw := newFakeWorld(t, 0, "error: invalid worldid")
	hs := world.NewHandshaker(nil, warehouses(t), discardLogger())
	l := newWorldLink(t, fw.ln.Addr().String(), hs)

	err := l.Connect(context.Background())

	require.ErrorIs(t, err, errs.ErrHandshakeRejected)
	var rejected *errs.HandshakeRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "error: invalid worldid", rejected.Result)
	assert.Equal(t, peer.Disconnected, l.State())
	_, ok := hs.WorldID()
	assert.False(t, ok)
}
