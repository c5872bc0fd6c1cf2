//go:build !gocv

package transcoder

func defaultGrabber(t *Tool) FrameGrabber {
	return ffmpegGrabber{tool: t}
}
