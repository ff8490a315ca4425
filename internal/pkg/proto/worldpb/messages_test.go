package worldpb_test

import (
	"testing"

	"fulfillment/internal/pkg/proto/pbutil"
	"fulfillment/internal/pkg/proto/worldpb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestConnect_OptionalWorldID(t *testing.T) {
	t.Run("new_world", func(t *testing.T) {
		in := worldpb.Connect{
			IsAmazon:   true,
			Warehouses: []worldpb.InitWarehouse{{ID: 1, X: 10, Y: -20}, {ID: 2, X: 0, Y: 0}},
		}
		b, err := in.Marshal()
		require.NoError(t, err)

		var out worldpb.Connect
		require.NoError(t, out.Unmarshal(b))
		assert.Nil(t, out.WorldID)
		assert.True(t, out.IsAmazon)
		assert.Equal(t, in.Warehouses, out.Warehouses)
	})

	t.Run("existing_world_without_warehouses", func(t *testing.T) {
		id := int64(7)
		in := worldpb.Connect{WorldID: &id, IsAmazon: true}
		b, err := in.Marshal()
		require.NoError(t, err)

		var out worldpb.Connect
		require.NoError(t, out.Unmarshal(b))
		require.NotNil(t, out.WorldID)
		assert.Equal(t, int64(7), *out.WorldID)
		assert.Empty(t, out.Warehouses)
	})
}

func TestConnected_RequiresResult(t *testing.T) {
	b := pbutil.AppendInt64(nil, 1, 5)

	var out worldpb.Connected
	err := out.Unmarshal(b)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "result")
}

func TestCommands_CarryEveryKind(t *testing.T) {
	speed := uint32(500)
	in := worldpb.Commands{
		Buy: []worldpb.PurchaseMore{{
			WarehouseNum: 1,
			Things:       []worldpb.Product{{ID: 3, Description: "apple", Count: 2}},
			SeqNum:       1,
		}},
		ToPack:   []worldpb.Pack{{WarehouseNum: 1, Things: []worldpb.Product{{ID: 3, Description: "apple", Count: 2}}, ShipID: 42, SeqNum: 2}},
		Load:     []worldpb.PutOnTruck{{WarehouseNum: 1, TruckID: 9, ShipID: 42, SeqNum: 3}},
		Queries:  []worldpb.Query{{PackageID: 42, SeqNum: 4}},
		SimSpeed: &speed,
		Acks:     []int64{11, 12},
	}

	b, err := in.Marshal()
	require.NoError(t, err)

	var out worldpb.Commands
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, in, out)
	assert.False(t, out.Empty())
	assert.True(t, (&worldpb.Commands{}).Empty())
}

func TestResponses_DecodesPackedAcks(t *testing.T) {
	var packed []byte
	packed = protowire.AppendVarint(packed, 1)
	packed = protowire.AppendVarint(packed, 300)

	b := protowire.AppendTag(nil, 6, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)
	b = pbutil.AppendInt64(b, 6, 5)

	var out worldpb.Responses
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, []int64{1, 300, 5}, out.Acks)
}

func TestResponses_AllSections(t *testing.T) {
	finished := true
	in := worldpb.Responses{
		Arrived:       []worldpb.PurchaseMore{{WarehouseNum: 2, Things: []worldpb.Product{{ID: 1, Description: "pen", Count: 5}}, SeqNum: 100}},
		Ready:         []worldpb.Shipment{{ShipID: 42, SeqNum: 101}},
		Loaded:        []worldpb.Shipment{{ShipID: 43, SeqNum: 102}},
		Finished:      &finished,
		Errors:        []worldpb.Err{{Err: "bad whnum", OriginSeqNum: 7, SeqNum: 103}},
		Acks:          []int64{1, 2, 3},
		PackageStatus: []worldpb.PackageStatus{{PackageID: 42, Status: "packed", SeqNum: 104}},
	}

	b, err := in.Marshal()
	require.NoError(t, err)

	var out worldpb.Responses
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, in, out)
	assert.Equal(t, []int64{100, 101, 102, 103, 104}, out.Seqs())
}

func TestResponses_ProductMissingCount(t *testing.T) {
	product := pbutil.AppendInt64(nil, 1, 3)
	product = pbutil.AppendString(product, 2, "apple")
	arrived := pbutil.AppendInt32(nil, 1, 1)
	arrived = pbutil.AppendMessage(arrived, 2, func(b []byte) []byte { return append(b, product...) })
	b := pbutil.AppendMessage(nil, 1, func(b []byte) []byte { return append(b, arrived...) })

	var out worldpb.Responses
	err := out.Unmarshal(b)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "count")
}

func TestResponses_SkipsUnknownFields(t *testing.T) {
	b := pbutil.AppendString(nil, 99, "future")
	b = protowire.AppendTag(b, 98, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 1)
	b = pbutil.AppendInt64(b, 6, 4)

	var out worldpb.Responses
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, []int64{4}, out.Acks)
}

func TestInt32_NegativeCoordinatesRoundTrip(t *testing.T) {
	in := worldpb.Connect{Warehouses: []worldpb.InitWarehouse{{ID: 1, X: -5, Y: -7}}}
	b, err := in.Marshal()
	require.NoError(t, err)

	var out worldpb.Connect
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, int32(-5), out.Warehouses[0].X)
	assert.Equal(t, int32(-7), out.Warehouses[0].Y)
}
