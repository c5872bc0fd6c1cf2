// Package pipeline discovers media under a root directory and generates the
// missing thumbnail sets across a fixed pool of workers.
//
// A run proceeds in four steps:
//
//  1. Validate the root and walk it (following a symlinked root), skipping
//     @eaDir, hidden directories and AppleDouble "._" files.
//  2. Classify each file and record complete output sets as Skipped.
//  3. Run the preflight hook with the kinds that still need work, so a
//     missing ffmpeg fails the run once instead of once per video.
//  4. Feed the pending files through an unbuffered channel to N workers,
//     asking the Admission gate before each file when one is configured.
//
// Per-file failures are recorded and the run continues. Only an invalid root,
// a failed preflight and a full disk end the run early. On cancellation the
// dispatcher stops at once; files never handed to a worker are reported as
// not dispatched.
//
// The Aggregator is the only state shared between workers.
package pipeline
