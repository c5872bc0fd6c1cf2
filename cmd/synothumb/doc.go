// Package main provides the synothumb command.
//
// synothumb walks a photo library and pre-generates the thumbnail sets a
// Synology-style photo server expects in each directory's @eaDir folder, so
// the server never has to build them on its own slow hardware.
//
// # Commands
//
//	synothumb [flags] <media-dir>         generate missing thumbnail sets
//	synothumb verify [flags] <media-dir>  list incomplete sets, exit 1 if any
//	synothumb clean [flags] <media-dir>   remove interrupted-write leftovers
//	synothumb version                     print build information
//
// # Run Lifecycle
//
//  1. Configuration: dotenv and YAML files, environment, then flags
//  2. Run log: a timestamped file under --log-dir receives all log output;
//     errors are also printed to stderr
//  3. Memory: GOMEMLIMIT from the environment or host memory, plus a monitor
//     that pauses dispatch under pressure
//  4. Discovery, preflight of the external tools, then the worker pool
//  5. Summary on the console; per-file failures are in the run log
//
// # Exit Codes
//
//   - 0: every file succeeded or was already complete
//   - 1: any file failed, or the run could not start (bad directory,
//     missing tool, disk full)
//   - 130: interrupted by SIGINT or SIGTERM
package main
