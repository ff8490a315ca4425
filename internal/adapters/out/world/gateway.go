package world

import (
	"context"

	"fulfillment/internal/adapters/out/reliable"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/pkg/framing"
	"fulfillment/internal/pkg/proto/worldpb"
)

// DefaultSimSpeed is the simulation speed requested with every command batch.
const DefaultSimSpeed = 500

// Sender is the part of the reliable engine the gateway uses.
type Sender interface {
	Send(ctx context.Context, peer reliable.Transport, tag int64, build func(seq int64) framing.Marshaler) (int64, error)
}

// Gateway sends fulfillment commands to World, one command per ACommands batch so
// each batch is resent independently.
type Gateway struct {
	sender   Sender
	link     reliable.Transport
	simSpeed uint32
}

// NewGateway returns a gateway writing to link. A zero simSpeed leaves the
// simulator's speed alone.
func NewGateway(sender Sender, link reliable.Transport, simSpeed uint32) *Gateway {
	return &Gateway{sender: sender, link: link, simSpeed: simSpeed}
}

func (g *Gateway) Purchase(ctx context.Context, warehouseID int32, items []kernel.Item, packageID int64) (int64, error) {
	return g.send(ctx, packageID, func(seq int64, cmd *worldpb.Commands) {
		cmd.Buy = []worldpb.PurchaseMore{{WarehouseNum: warehouseID, Things: products(items), SeqNum: seq}}
	})
}

func (g *Gateway) Pack(ctx context.Context, in parcel.PackInstruction) (int64, error) {
	return g.send(ctx, in.ShipID(), func(seq int64, cmd *worldpb.Commands) {
		cmd.ToPack = []worldpb.Pack{{
			WarehouseNum: in.WarehouseID(),
			Things:       products(in.Items()),
			ShipID:       in.ShipID(),
			SeqNum:       seq,
		}}
	})
}

func (g *Gateway) Load(ctx context.Context, warehouseID int32, truckID int32, packageID int64) (int64, error) {
	return g.send(ctx, packageID, func(seq int64, cmd *worldpb.Commands) {
		cmd.Load = []worldpb.PutOnTruck{{WarehouseNum: warehouseID, TruckID: truckID, ShipID: packageID, SeqNum: seq}}
	})
}

func (g *Gateway) Query(ctx context.Context, packageID int64) (int64, error) {
	return g.send(ctx, packageID, func(seq int64, cmd *worldpb.Commands) {
		cmd.Queries = []worldpb.Query{{PackageID: packageID, SeqNum: seq}}
	})
}

func (g *Gateway) send(ctx context.Context, tag int64, fill func(seq int64, cmd *worldpb.Commands)) (int64, error) {
	return g.sender.Send(ctx, g.link, tag, func(seq int64) framing.Marshaler {
		cmd := &worldpb.Commands{}
		if g.simSpeed > 0 {
			speed := g.simSpeed
			cmd.SimSpeed = &speed
		}
		fill(seq, cmd)
		return cmd
	})
}

// Disconnect asks World to close the session. It is not sequence-tracked.
func (g *Gateway) Disconnect() error {
	disconnect := true
	frame, err := framing.Encode(&worldpb.Commands{Disconnect: &disconnect})
	if err != nil {
		return err
	}
	return g.link.Send(frame)
}

func products(items []kernel.Item) []worldpb.Product {
	out := make([]worldpb.Product, 0, len(items))
	for _, it := range items {
		out = append(out, worldpb.Product{ID: it.ID(), Description: it.Description(), Count: it.Count()})
	}
	return out
}
