package world_test

import (
	"context"
	"sync"
	"testing"

	"fulfillment/internal/adapters/out/reliable"
	"fulfillment/internal/adapters/out/world"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/pkg/framing"
	"fulfillment/internal/pkg/proto/worldpb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	tag int64
	cmd *worldpb.Commands
}

// fakeSender builds each message with a fixed sequence number.
type fakeSender struct {
	mu   sync.Mutex
	seq  int64
	sent []sent
}

func (s *fakeSender) Send(_ context.Context, _ reliable.Transport, tag int64, build func(seq int64) framing.Marshaler) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.sent = append(s.sent, sent{tag: tag, cmd: build(s.seq).(*worldpb.Commands)})
	return s.seq, nil
}

func (s *fakeSender) last() sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

type captureTransport struct {
	frames [][]byte
}

func (c *captureTransport) Name() string { return world.PeerName }

func (c *captureTransport) Send(frame []byte) error {
	c.frames = append(c.frames, frame)
	return nil
}

func apple(t *testing.T) kernel.Item {
	t.Helper()
	it, err := kernel.NewItem(3, "apple", 2)
	require.NoError(t, err)
	return it
}

func TestGateway_Commands(t *testing.T) {
	sender := &fakeSender{}
	g := world.NewGateway(sender, &captureTransport{}, world.DefaultSimSpeed)
	ctx := context.Background()

	t.Run("purchase", func(t *testing.T) {
		seq, err := g.Purchase(ctx, 3, []kernel.Item{apple(t)}, 1)
		require.NoError(t, err)

		got := sender.last()
		assert.Equal(t, int64(1), got.tag)
		require.NotNil(t, got.cmd.SimSpeed)
		assert.Equal(t, uint32(500), *got.cmd.SimSpeed)
		assert.Equal(t, []worldpb.PurchaseMore{{
			WarehouseNum: 3,
			Things:       []worldpb.Product{{ID: 3, Description: "apple", Count: 2}},
			SeqNum:       seq,
		}}, got.cmd.Buy)
	})

	t.Run("pack", func(t *testing.T) {
		dest := kernel.NewLocation(1, 1)
		p, err := parcel.NewPackage(42, 3, []kernel.Item{apple(t)}, dest, "alice")
		require.NoError(t, err)

		seq, err := g.Pack(ctx, p.PackInstruction())
		require.NoError(t, err)

		got := sender.last()
		assert.Equal(t, int64(42), got.tag)
		require.Len(t, got.cmd.ToPack, 1)
		assert.Equal(t, int64(42), got.cmd.ToPack[0].ShipID)
		assert.Equal(t, int32(3), got.cmd.ToPack[0].WarehouseNum)
		assert.Equal(t, seq, got.cmd.ToPack[0].SeqNum)
	})

	t.Run("load", func(t *testing.T) {
		seq, err := g.Load(ctx, 3, 2, 42)
		require.NoError(t, err)

		got := sender.last()
		assert.Equal(t, []worldpb.PutOnTruck{{WarehouseNum: 3, TruckID: 2, ShipID: 42, SeqNum: seq}}, got.cmd.Load)
	})

	t.Run("query", func(t *testing.T) {
		seq, err := g.Query(ctx, 42)
		require.NoError(t, err)

		got := sender.last()
		assert.Equal(t, []worldpb.Query{{PackageID: 42, SeqNum: seq}}, got.cmd.Queries)
	})
}

func TestGateway_ZeroSimSpeedIsOmitted(t *testing.T) {
	sender := &fakeSender{}
	g := world.NewGateway(sender, &captureTransport{}, 0)

	_, err := g.Query(context.Background(), 1)
	require.NoError(t, err)

	assert.Nil(t, sender.last().cmd.SimSpeed)
}

func TestGateway_Disconnect(t *testing.T) {
	tr := &captureTransport{}
	g := world.NewGateway(&fakeSender{}, tr, 0)

	require.NoError(t, g.Disconnect())
	require.Len(t, tr.frames, 1)

	var cmd worldpb.Commands
	require.NoError(t, cmd.Unmarshal(tr.frames[0][1:]))
	require.NotNil(t, cmd.Disconnect)
	assert.True(t, *cmd.Disconnect)
}
