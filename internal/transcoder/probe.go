package transcoder

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"
)

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
	Tags      struct {
		Rotate string `json:"rotate"`
	} `json:"tags"`
	SideDataList []struct {
		SideDataType string  `json:"side_data_type"`
		Rotation     float64 `json:"rotation"`
	} `json:"side_data_list"`
}

var errNoVideoStream = errors.New("no video stream")

func parseProbe(data []byte) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	var video *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			video = &out.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, errNoVideoStream
	}

	info := &VideoInfo{
		Codec:  video.CodecName,
		Width:  video.Width,
		Height: video.Height,
	}

	dur := out.Format.Duration
	if dur == "" {
		dur = video.Duration
	}
	if secs, err := strconv.ParseFloat(dur, 64); err == nil && secs > 0 {
		info.Duration = time.Duration(secs * float64(time.Second))
	}

	info.Rotation = streamRotation(video)
	return info, nil
}

// streamRotation returns the clockwise display rotation of a stream. Older
// muxers store it as a "rotate" tag (clockwise); newer ffprobe reports a
// display matrix whose rotation is counter-clockwise.
func streamRotation(s *probeStream) int {
	for _, sd := range s.SideDataList {
		if sd.SideDataType == "" || sd.SideDataType == "Display Matrix" {
			if sd.Rotation != 0 {
				return normalizeRotation(-int(math.Round(sd.Rotation)))
			}
		}
	}
	if s.Tags.Rotate != "" {
		if deg, err := strconv.Atoi(s.Tags.Rotate); err == nil {
			return normalizeRotation(deg)
		}
	}
	return 0
}

// normalizeRotation maps any angle onto 0, 90, 180 or 270, snapping to the
// nearest quarter turn.
func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return ((deg + 45) / 90 % 4) * 90
}
