package upspb_test

import (
	"testing"

	"fulfillment/internal/pkg/proto/upspb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmazonToUPS_RoundTrip(t *testing.T) {
	in := upspb.AmazonToUPS{
		Pickups: []upspb.RequestPickup{{
			SeqNum:      1,
			UPSUserID:   "alice",
			OrderID:     42,
			WarehouseID: 3,
			Destination: upspb.Coordinate{X: 5, Y: -6},
			Items:       []upspb.ItemInfo{{Name: "apple", Quantity: 2}},
		}},
		LoadReady: []upspb.PackageRef{{SeqNum: 2, PackageID: 42}},
		Acks:      []int64{9},
	}

	b, err := in.Marshal()
	require.NoError(t, err)

	var out upspb.AmazonToUPS
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, in, out)
}

func TestUPSToAmazon_SeqsCoverEverySection(t *testing.T) {
	in := upspb.UPSToAmazon{
		PickupResps:       []upspb.PickupResp{{SeqNum: 1, PackageID: 42, TruckID: 2}},
		TrucksArrived:     []upspb.TruckArrived{{SeqNum: 2, PackageID: 42, TruckID: 2, WarehouseID: 3}},
		DeliveriesStarted: []upspb.PackageRef{{SeqNum: 3, PackageID: 42}},
		Delivered:         []upspb.PackageRef{{SeqNum: 4, PackageID: 42}},
		RedirectResps:     []upspb.RequestResult{{SeqNum: 5, PackageID: 42, Success: true}},
		CancelResps:       []upspb.RequestResult{{SeqNum: 6, PackageID: 42, Reason: "already loaded"}},
		Acks:              []int64{100},
		Errors:            []upspb.Error{{Err: "unknown order", OriginSeqNum: 11, SeqNum: 7}},
	}

	b, err := in.Marshal()
	require.NoError(t, err)

	var out upspb.UPSToAmazon
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, in, out)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, out.Seqs())
}

func TestPickupResp_PackageFallsBackToOrderID(t *testing.T) {
	assert.Equal(t, int64(42), (&upspb.PickupResp{PackageID: 42, OrderID: 7}).Package())
	assert.Equal(t, int64(7), (&upspb.PickupResp{OrderID: 7}).Package())
}

func TestUPSToAmazon_TruncatedInput(t *testing.T) {
	in := upspb.UPSToAmazon{TrucksArrived: []upspb.TruckArrived{{SeqNum: 2, PackageID: 42, TruckID: 2}}}
	b, err := in.Marshal()
	require.NoError(t, err)

	var out upspb.UPSToAmazon
	require.Error(t, out.Unmarshal(b[:len(b)-1]))
}
