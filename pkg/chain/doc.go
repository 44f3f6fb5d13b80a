// Package chain wires stages into a pipeline.
//
// Start takes the head pipe; each Then adds a stage reading the current tail
// and creates the pipe it writes to. The resulting Pipeline owns those pipes
// and stages: build pipes before stages, stop stages before dropping pipes.
//
// Key operations:
// - Start: begin from a head pipe
// - Then/ThenMap/Ensure: append a stage with its own pool size and output pipe config
// - Build: finish the chain; partially built chains are closed on error
// - Pipeline.Close: stop every stage, leaving queued messages in place
// - Pipeline.Drain: end of stream, each stage finishes its input before its output closes
package chain
