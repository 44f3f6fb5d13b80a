// Package pipe provides Pipe, the FIFO queue that connects one stage's
// output to the next stage's input.
//
// A pipe is owned by whoever wires the pipeline together. Stages only hold
// it. Every pipe is created with an explicit capacity and overflow policy:
// - Unbounded: never refuses a push
// - Block: producers wait for room
// - DropNewest/DropOldest: discard on overflow and count the drop
// - Reject: return ErrFull to the producer
//
// Consumers wait on an empty pipe without spinning until a push, close or
// the end of their context.
package pipe
