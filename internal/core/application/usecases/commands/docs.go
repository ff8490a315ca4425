// Package commands contains the operations that start work in the coordinator.
// Every command is built through its constructor and validated by its handler
// before anything is dispatched.
package commands
