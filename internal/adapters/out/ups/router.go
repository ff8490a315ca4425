package ups

import (
	"context"
	"log/slog"

	"fulfillment/internal/adapters/out/peer"
	"fulfillment/internal/adapters/out/reliable"
	"fulfillment/internal/core/application/fulfillment"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/framing"
	"fulfillment/internal/pkg/proto/upspb"
)

type Ledger interface {
	Acknowledge(seqs ...int64) int
	Fail(seq int64, reason string) (reliable.PendingRequest, bool)
}

type EventHandler interface {
	Handle(ctx context.Context, event fulfillment.Event) error
}

// Router handles UPSToAmazon batches. It is shared by every connection the
// carrier talks to us on, so duplicates are detected across connections.
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
		logger:  logger.With("component", "ups_router"),
	}
}

func (r *Router) FrameHandler(reply peer.Reply) peer.FrameHandler {
	return func(ctx context.Context, body []byte) {
		_ = r.Route(ctx, body, reply)
	}
}

// Route settles acks, acknowledges every item in one AmazonToUPS batch and hands
// new items to the event handler.
func (r *Router) Route(ctx context.Context, body []byte, reply peer.Reply) error {
	var msg upspb.UPSToAmazon
	if err := msg.Unmarshal(body); err != nil {
		r.logger.WarnContext(ctx, "Dropping malformed UPSToAmazon", "error", err)
		return errs.NewFramingErrorWithCause("malformed UPSToAmazon", err)
	}

	if len(msg.Acks) > 0 {
		settled := r.ledger.Acknowledge(msg.Acks...)
		r.logger.DebugContext(ctx, "Acks received", "acks", len(msg.Acks), "settled", settled)
	}

	if seqs := msg.Seqs(); len(seqs) > 0 {
		frame, err := framing.Encode(&upspb.AmazonToUPS{Acks: seqs})
		if err == nil {
			err = reply(frame)
		}
		if err != nil {
			r.logger.WarnContext(ctx, "Failed to send acks, carrier will resend", "acks", len(seqs), "error", err)
		}
	}

	for _, ev := range r.events(&msg) {
		_ = r.handler.Handle(ctx, ev)
	}
	return nil
}

func (r *Router) events(msg *upspb.UPSToAmazon) []fulfillment.Event {
	var out []fulfillment.Event

	for _, p := range msg.PickupResps {
		if r.seen.FirstTime(p.SeqNum) {
			out = append(out, fulfillment.PickupScheduled{Seq: p.SeqNum, PackageID: p.Package(), TruckID: p.TruckID})
		}
	}
	for _, a := range msg.TrucksArrived {
		if r.seen.FirstTime(a.SeqNum) {
			out = append(out, fulfillment.TruckArrived{
				Seq:         a.SeqNum,
				PackageID:   a.PackageID,
				TruckID:     a.TruckID,
				WarehouseID: a.WarehouseID,
			})
		}
	}
	for _, d := range msg.DeliveriesStarted {
		if r.seen.FirstTime(d.SeqNum) {
			out = append(out, fulfillment.DeliveryStarted{Seq: d.SeqNum, PackageID: d.PackageID})
		}
	}
	for _, d := range msg.Delivered {
		if r.seen.FirstTime(d.SeqNum) {
			out = append(out, fulfillment.DeliveryCompleted{Seq: d.SeqNum, PackageID: d.PackageID})
		}
	}
	out = r.answered(out, "redirect", msg.RedirectResps)
	out = r.answered(out, "cancel", msg.CancelResps)
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
	return out
}

func (r *Router) answered(out []fulfillment.Event, kind string, results []upspb.RequestResult) []fulfillment.Event {
	for _, res := range results {
		if r.seen.FirstTime(res.SeqNum) {
			out = append(out, fulfillment.RequestAnswered{
				Seq:       res.SeqNum,
				Kind:      kind,
				PackageID: res.PackageID,
				Success:   res.Success,
				Reason:    res.Reason,
			})
		}
	}
	return out
}
