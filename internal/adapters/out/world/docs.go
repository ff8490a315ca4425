// Package world connects the coordinator to the World simulator.
//
// Handshaker registers with World (AConnect / AConnected), Gateway turns
// fulfillment commands into ACommands sent through the reliable engine, and Router
// acknowledges inbound AResponses batches and converts their items into
// fulfillment events.
package world
