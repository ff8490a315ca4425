package world

import (
	"context"
	"log/slog"

	"fulfillment/internal/adapters/out/peer"
	"fulfillment/internal/adapters/out/reliable"
	"fulfillment/internal/core/application/fulfillment"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/framing"
	"fulfillment/internal/pkg/proto/worldpb"
)

// Ledger is the part of the reliable engine the routers settle acks and errors
// against.
type Ledger interface {
	Acknowledge(seqs ...int64) int
	Fail(seq int64, reason string) (reliable.PendingRequest, bool)
}

// EventHandler applies fulfillment events.
type EventHandler interface {
	Handle(ctx context.Context, event fulfillment.Event) error
}

// Router handles AResponses batches from World.
type Router struct {
	ledger  Ledger
	handler EventHandler
	seen    *peer.SeenCache
	logger  *slog.Logger
}

func NewRouter(ledger Ledger, handler EventHandler, seen *peer.SeenCache, logger *slog.Logger) *Router {
	return &Router{
		ledger:  ledger,
		handler: handler,
		seen:    seen,
		logger:  logger.With("component", "world_router"),
	}
}

// FrameHandler adapts the router to a link's receive loop, acknowledging through
// the same link.
func (r *Router) FrameHandler(reply peer.Reply) peer.FrameHandler {
	return func(ctx context.Context, body []byte) {
		_ = r.Route(ctx, body, reply)
	}
}

// Route settles the batch's acks, acknowledges every item in one ACommands batch
// and hands new items to the event handler. A malformed batch is dropped.
func (r *Router) Route(ctx context.Context, body []byte, reply peer.Reply) error {
	var msg worldpb.Responses
	if err := msg.Unmarshal(body); err != nil {
		r.logger.WarnContext(ctx, "Dropping malformed AResponses", "error", err)
		return errs.NewFramingErrorWithCause("malformed AResponses", err)
	}

	if len(msg.Acks) > 0 {
		settled := r.ledger.Acknowledge(msg.Acks...)
		r.logger.DebugContext(ctx, "Acks received", "acks", len(msg.Acks), "settled", settled)
	}

	if seqs := msg.Seqs(); len(seqs) > 0 {
		r.ack(ctx, seqs, reply)
	}

	for _, ev := range r.events(ctx, &msg) {
		_ = r.handler.Handle(ctx, ev)
	}
	return nil
}

func (r *Router) ack(ctx context.Context, seqs []int64, reply peer.Reply) {
	frame, err := framing.Encode(&worldpb.Commands{Acks: seqs})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to encode acks", "error", err)
		return
	}
	if err = reply(frame); err != nil {
		r.logger.WarnContext(ctx, "Failed to send acks, World will resend", "acks", len(seqs), "error", err)
	}
}

func (r *Router) events(ctx context.Context, msg *worldpb.Responses) []fulfillment.Event {
	var out []fulfillment.Event

	for _, a := range msg.Arrived {
		if !r.seen.FirstTime(a.SeqNum) {
			continue
		}
		items, err := toItems(a.Things)
		if err != nil {
			r.logger.WarnContext(ctx, "Dropping arrival with invalid products", "seq", a.SeqNum, "error", err)
			continue
		}
		out = append(out, fulfillment.PurchaseArrived{Seq: a.SeqNum, WarehouseID: a.WarehouseNum, Items: items})
	}
	for _, p := range msg.Ready {
		if r.seen.FirstTime(p.SeqNum) {
			out = append(out, fulfillment.PackagePacked{Seq: p.SeqNum, PackageID: p.ShipID})
		}
	}
	for _, l := range msg.Loaded {
		if r.seen.FirstTime(l.SeqNum) {
			out = append(out, fulfillment.PackageLoaded{Seq: l.SeqNum, PackageID: l.ShipID})
		}
	}
	for _, e := range msg.Errors {
		if !r.seen.FirstTime(e.SeqNum) {
			continue
		}
		req, _ := r.ledger.Fail(e.OriginSeqNum, e.Err)
		out = append(out, fulfillment.CommandRejected{
			Peer:      PeerName,
			OriginSeq: e.OriginSeqNum,
			PackageID: req.Tag,
			Reason:    e.Err,
		})
	}
	for _, s := range msg.PackageStatus {
		if r.seen.FirstTime(s.SeqNum) {
			out = append(out, fulfillment.PackageStatusReported{Seq: s.SeqNum, PackageID: s.PackageID, Status: s.Status})
		}
	}
	if msg.Finished != nil && *msg.Finished {
		out = append(out, fulfillment.SimulationFinished{})
	}
	return out
}

func toItems(products []worldpb.Product) ([]kernel.Item, error) {
	items := make([]kernel.Item, 0, len(products))
	for _, p := range products {
		it, err := kernel.NewItem(p.ID, p.Description, p.Count)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
