package world

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"fulfillment/internal/adapters/out/peer"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/framing"
	"fulfillment/internal/pkg/proto/worldpb"
)

const (
	PeerName = "world"

	// ResultConnected is the only AConnected result accepted as success.
	ResultConnected = "connected!"
)

// Handshaker registers the coordinator with World. The first registration carries
// the warehouse set; once World reports the warehouses exist, or after the first
// successful registration, they are omitted. The world id World assigns is reused
// on every reconnect.
type Handshaker struct {
	warehouses []kernel.Warehouse
	logger     *slog.Logger

	mu             sync.Mutex
	worldID        *int64
	omitWarehouses bool
}

func NewHandshaker(worldID *int64, warehouses []kernel.Warehouse, logger *slog.Logger) *Handshaker {
	h := &Handshaker{
		warehouses: warehouses,
		logger:     logger.With("component", "world_handshake"),
	}
	if worldID != nil {
		id := *worldID
		h.worldID = &id
	}
	return h
}

// WorldID returns the id of the world the coordinator is registered with.
func (h *Handshaker) WorldID() (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.worldID == nil {
		return 0, false
	}
	return *h.worldID, true
}

func (h *Handshaker) Handshake(ctx context.Context, conn net.Conn, r *framing.Reader) error {
	h.mu.Lock()
	req := &worldpb.Connect{IsAmazon: true}
	if h.worldID != nil {
		id := *h.worldID
		req.WorldID = &id
	}
	if !h.omitWarehouses {
		req.Warehouses = initWarehouses(h.warehouses)
	}
	h.mu.Unlock()

	frame, err := framing.Encode(req)
	if err != nil {
		return err
	}
	if _, err = conn.Write(frame); err != nil {
		return errs.NewConnectionError(PeerName, conn.RemoteAddr().String(), err)
	}

	body, err := r.ReadFrame()
	if err != nil {
		return err
	}
	var resp worldpb.Connected
	if err = resp.Unmarshal(body); err != nil {
		return errs.NewFramingErrorWithCause("malformed AConnected", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case resp.Result == ResultConnected:
		id := resp.WorldID
		h.worldID = &id
		h.omitWarehouses = true
		h.logger.InfoContext(ctx, "Registered with World",
			"world_id", resp.WorldID, "warehouses", len(req.Warehouses))
		return nil

	case warehousesExist(resp.Result):
		h.omitWarehouses = true
		if h.worldID == nil && resp.WorldID != 0 {
			id := resp.WorldID
			h.worldID = &id
		}
		h.logger.InfoContext(ctx, "Warehouses already exist, registering again without them",
			"result", resp.Result)
		return fmt.Errorf("%w: %s", peer.ErrRedial, resp.Result)

	default:
		return errs.NewHandshakeRejectedError(PeerName, resp.Result)
	}
}

func warehousesExist(result string) bool {
	return strings.Contains(result, "warehouse_id") && strings.Contains(result, "already exists")
}

func initWarehouses(whs []kernel.Warehouse) []worldpb.InitWarehouse {
	out := make([]worldpb.InitWarehouse, 0, len(whs))
	for _, wh := range whs {
		out = append(out, worldpb.InitWarehouse{
			ID: wh.ID(),
			X:  wh.Location().X(),
			Y:  wh.Location().Y(),
		})
	}
	return out
}
