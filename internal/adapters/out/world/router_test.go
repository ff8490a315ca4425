package world_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"fulfillment/internal/adapters/out/peer"
	"fulfillment/internal/adapters/out/reliable"
	"fulfillment/internal/adapters/out/world"
	"fulfillment/internal/core/application/fulfillment"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/framing"
	"fulfillment/internal/pkg/proto/worldpb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu     sync.Mutex
	acked  []int64
	failed map[int64]string
	tags   map[int64]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{failed: map[int64]string{}, tags: map[int64]int64{}}
}

func (l *fakeLedger) Acknowledge(seqs ...int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acked = append(l.acked, seqs...)
	return len(seqs)
}

func (l *fakeLedger) Fail(seq int64, reason string) (reliable.PendingRequest, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed[seq] = reason
	tag, ok := l.tags[seq]
	return reliable.PendingRequest{Seq: seq, Tag: tag}, ok
}

type recordingHandler struct {
	mu     sync.Mutex
	events []fulfillment.Event
}

func (h *recordingHandler) Handle(_ context.Context, e fulfillment.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

type replies struct {
	frames [][]byte
}

func (r *replies) reply(frame []byte) error {
	r.frames = append(r.frames, frame)
	return nil
}

func (r *replies) acks(t *testing.T) [][]int64 {
	t.Helper()
	var out [][]int64
	for _, f := range r.frames {
		body, err := framing.NewReader(bytes.NewReader(f)).ReadFrame()
		require.NoError(t, err)
		var cmd worldpb.Commands
		require.NoError(t, cmd.Unmarshal(body))
		out = append(out, cmd.Acks)
	}
	return out
}

func newRouter(t *testing.T) (*world.Router, *fakeLedger, *recordingHandler) {
	t.Helper()
	seen, err := peer.NewSeenCache(16)
	require.NoError(t, err)
	ledger := newFakeLedger()
	h := &recordingHandler{}
	return world.NewRouter(ledger, h, seen, discardLogger()), ledger, h
}

func encode(t *testing.T, msg *worldpb.Responses) []byte {
	t.Helper()
	b, err := msg.Marshal()
	require.NoError(t, err)
	return b
}

func TestRouter_AcksEveryItemInOneBatch(t *testing.T) {
	r, ledger, h := newRouter(t)
	out := &replies{}

	body := encode(t, &worldpb.Responses{
		Arrived: []worldpb.PurchaseMore{{WarehouseNum: 3, Things: []worldpb.Product{{ID: 3, Description: "apple", Count: 2}}, SeqNum: 10}},
		Ready:   []worldpb.Shipment{{ShipID: 1, SeqNum: 11}},
		Loaded:  []worldpb.Shipment{{ShipID: 2, SeqNum: 12}},
	})
	require.NoError(t, r.Route(context.Background(), body, out.reply))

	assert.Equal(t, [][]int64{{10, 11, 12}}, out.acks(t))
	assert.Empty(t, ledger.acked)
	require.Len(t, h.events, 3)

	arrived, ok := h.events[0].(fulfillment.PurchaseArrived)
	require.True(t, ok)
	assert.Equal(t, int32(3), arrived.WarehouseID)
	require.Len(t, arrived.Items, 1)
	assert.Equal(t, int64(3), arrived.Items[0].ID())
	assert.Equal(t, fulfillment.PackagePacked{Seq: 11, PackageID: 1}, h.events[1])
	assert.Equal(t, fulfillment.PackageLoaded{Seq: 12, PackageID: 2}, h.events[2])
}

func TestRouter_AckOnlyBatch(t *testing.T) {
	r, ledger, h := newRouter(t)
	out := &replies{}

	require.NoError(t, r.Route(context.Background(), encode(t, &worldpb.Responses{Acks: []int64{1, 2}}), out.reply))

	assert.Equal(t, []int64{1, 2}, ledger.acked)
	assert.Empty(t, out.frames)
	assert.Empty(t, h.events)
}

func TestRouter_DuplicateBatchIsAckedButNotReapplied(t *testing.T) {
	r, _, h := newRouter(t)
	out := &replies{}
	body := encode(t, &worldpb.Responses{Ready: []worldpb.Shipment{{ShipID: 1, SeqNum: 11}}})

	require.NoError(t, r.Route(context.Background(), body, out.reply))
	require.NoError(t, r.Route(context.Background(), body, out.reply))

	assert.Equal(t, [][]int64{{11}, {11}}, out.acks(t))
	assert.Len(t, h.events, 1)
}

func TestRouter_ErrorCancelsPendingCommand(t *testing.T) {
	r, ledger, h := newRouter(t)
	ledger.tags[5] = 42
	out := &replies{}

	body := encode(t, &worldpb.Responses{Errors: []worldpb.Err{{Err: "invalid whnum", OriginSeqNum: 5, SeqNum: 20}}})
	require.NoError(t, r.Route(context.Background(), body, out.reply))

	assert.Equal(t, "invalid whnum", ledger.failed[5])
	assert.Equal(t, [][]int64{{20}}, out.acks(t))
	require.Len(t, h.events, 1)
	assert.Equal(t, fulfillment.CommandRejected{Peer: "world", OriginSeq: 5, PackageID: 42, Reason: "invalid whnum"}, h.events[0])
}

func TestRouter_StatusAndFinished(t *testing.T) {
	r, _, h := newRouter(t)
	out := &replies{}
	finished := true

	body := encode(t, &worldpb.Responses{
		PackageStatus: []worldpb.PackageStatus{{PackageID: 42, Status: "packing", SeqNum: 30}},
		Finished:      &finished,
	})
	require.NoError(t, r.Route(context.Background(), body, out.reply))

	assert.Equal(t, []fulfillment.Event{
		fulfillment.PackageStatusReported{Seq: 30, PackageID: 42, Status: "packing"},
		fulfillment.SimulationFinished{},
	}, h.events)
}

func TestRouter_MalformedBatch(t *testing.T) {
	r, ledger, h := newRouter(t)
	out := &replies{}

	err := r.Route(context.Background(), []byte{0x0a, 0x05, 0x01}, out.reply)

	require.ErrorIs(t, err, errs.ErrFraming)
	assert.Empty(t, ledger.acked)
	assert.Empty(t, out.frames)
	assert.Empty(t, h.events)
}
