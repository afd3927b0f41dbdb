// Package app wires the export pipeline for the demoexport command.
//
// NewApplication builds the collaborators from a loaded configuration:
// telemetry providers, the configured cache backend, the demo parser, the
// export orchestrator and the report writer. Commands then call
// ExportFile, ExportBatch or the cache maintenance methods, and Close to
// flush metrics and release the cache.
//
// Batches run with bounded concurrency. Exports of the same match identity
// are collapsed so a demo that appears twice is analyzed once.
//
// The package never calls os.Exit; ExitCode maps an error to the status
// the command should return.
package app
