package ups

import (
	"context"

	"fulfillment/internal/adapters/out/reliable"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/framing"
	"fulfillment/internal/pkg/proto/upspb"
)

const PeerName = "ups"

type Mode string

const (
	ModePersistent Mode = "persistent"
	ModePerCommand Mode = "per-command"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModePersistent, ModePerCommand:
		return Mode(s), true
	default:
		return "", false
	}
}

// Sender is the part of the reliable engine the gateways use.
type Sender interface {
	Send(ctx context.Context, peer reliable.Transport, tag int64, build func(seq int64) framing.Marshaler) (int64, error)
}

// Gateway sends carrier commands over a persistent link.
type Gateway struct {
	sender Sender
	link   reliable.Transport
}

func NewGateway(sender Sender, link reliable.Transport) *Gateway {
	return &Gateway{sender: sender, link: link}
}

func (g *Gateway) RequestPickup(ctx context.Context, req ports.PickupRequest) (int64, error) {
	return g.sender.Send(ctx, g.link, req.PackageID, pickupBuilder(req))
}

func (g *Gateway) NotifyLoadReady(ctx context.Context, packageID int64) (int64, error) {
	return g.sender.Send(ctx, g.link, packageID, loadReadyBuilder(packageID))
}

func pickupBuilder(req ports.PickupRequest) func(seq int64) framing.Marshaler {
	items := make([]upspb.ItemInfo, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, upspb.ItemInfo{Name: it.Description(), Quantity: it.Count()})
	}
	return func(seq int64) framing.Marshaler {
		return &upspb.AmazonToUPS{Pickups: []upspb.RequestPickup{{
			SeqNum:      seq,
			UPSUserID:   req.CarrierAccount,
			OrderID:     req.PackageID,
			WarehouseID: req.WarehouseID,
			Destination: upspb.Coordinate{X: req.Destination.X(), Y: req.Destination.Y()},
			Items:       items,
		}}}
	}
}

func loadReadyBuilder(packageID int64) func(seq int64) framing.Marshaler {
	return func(seq int64) framing.Marshaler {
		return &upspb.AmazonToUPS{LoadReady: []upspb.PackageRef{{SeqNum: seq, PackageID: packageID}}}
	}
}
