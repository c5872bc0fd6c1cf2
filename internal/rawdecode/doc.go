// Package rawdecode turns camera RAW files into images for thumbnailing.
//
// Demosaicing a full RAW frame is slow and needs native libraries, and the
// thumbnails the photo server shows top out at 1280 pixels. Every mainstream
// camera embeds a full-size or near full-size JPEG preview in its RAW files,
// so the decoder extracts the largest embedded preview through exiftool and
// reports the camera orientation alongside it. Files without a usable
// preview fall back to a full decode through ffmpeg.
package rawdecode
