// Package media generates the thumbnail output set for one source file.
//
// The Generator dispatches on the file's MediaKind:
//   - Images: decoded by the configured ImageBackend (imaging by default,
//     libvips optionally), oriented from EXIF, resized to every still
//     descriptor
//   - RAW images: the embedded preview from the RawDecoder, oriented from
//     the camera's EXIF, then the image path
//   - Videos: a frame from the VideoTool rotated from stream metadata, the
//     image path, then the FLV preview clip
//
// Every output is written atomically. When an attempt fails, outputs it has
// already written are removed so the set stays incomplete and is
// regenerated on the next run.
package media
