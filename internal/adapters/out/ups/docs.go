// Package ups connects the coordinator to the carrier.
//
// Two gateways implement the same contract, "every command sent to the carrier
// is eventually acknowledged", and one of them is chosen per process:
//   - Gateway writes to one persistent link whose receive loop settles acks
//     asynchronously through the shared pending table.
//   - PerCommandGateway opens a fresh connection per command, waits on that
//     connection until the command's ack arrives and closes it. A refused or
//     broken connection is redialed; the command is never given up on. Carrier
//     events then reach the coordinator through the callback listener.
//
// Router acknowledges UPSToAmazon batches and turns their items into fulfillment
// events, regardless of which connection they arrived on.
package ups
