// Package worldpb contains the messages exchanged with the World simulator
// (world_amazon.proto, proto2). They are encoded by hand with protowire so the
// module carries no generated code; field numbers follow the simulator's schema.
package worldpb
