// Package transcoder wraps the external FFmpeg tools used for video sources.
//
// It provides:
//   - Probing duration, dimensions and display rotation (ffprobe)
//   - Extracting a single representative frame as an image (ffmpeg)
//   - Writing the short FLV preview clip the photo server plays on hover
//   - Decoding still images FFmpeg understands but Go does not
//
// Frames are extracted without FFmpeg's automatic rotation; callers apply
// VideoInfo.Rotation themselves so every source kind shares one orientation
// path. Building with the "gocv" tag swaps the frame grabber for OpenCV.
//
// All invocations are tracked so Cleanup can kill them on shutdown.
package transcoder
