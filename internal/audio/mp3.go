package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotMP3 is returned when no run of valid MPEG Layer III frames is found.
var ErrNotMP3 = errors.New("data is not an MP3 stream")

// MP3Info summarises an inspected MP3 stream.
type MP3Info struct {
	Frames     int
	SampleRate int // Hz, of the first frame
	Bitrate    int // kbps, of the first frame
	Duration   time.Duration
	Offset     int // byte offset of the first frame
}

// Layer III bitrates in kbps indexed by the header's 4-bit field.
var (
	bitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	bitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
)

// Sample rates indexed by version bits then the 2-bit rate field.
var sampleRates = map[byte][3]int{
	3: {44100, 48000, 32000}, // MPEG-1
	2: {22050, 24000, 16000}, // MPEG-2
	0: {11025, 12000, 8000},  // MPEG-2.5
}

type frameHeader struct {
	version    byte
	bitrate    int
	sampleRate int
	length     int
	samples    int
}

// parseFrameHeader decodes the 4 bytes at b. Free-format and reserved
// values are rejected.
func parseFrameHeader(b []byte) (frameHeader, bool) {
	if len(b) < 4 || b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return frameHeader{}, false
	}
	version := (b[1] >> 3) & 0x03
	layer := (b[1] >> 1) & 0x03
	if version == 1 || layer != 1 {
		return frameHeader{}, false
	}

	bitrateIdx := b[2] >> 4
	rateIdx := (b[2] >> 2) & 0x03
	if bitrateIdx == 0 || bitrateIdx == 15 || rateIdx == 3 {
		return frameHeader{}, false
	}
	padding := int((b[2] >> 1) & 0x01)

	h := frameHeader{
		version:    version,
		sampleRate: sampleRates[version][rateIdx],
	}
	if version == 3 {
		h.bitrate = bitratesV1[bitrateIdx]
		h.samples = 1152
		h.length = 144*h.bitrate*1000/h.sampleRate + padding
	} else {
		h.bitrate = bitratesV2[bitrateIdx]
		h.samples = 576
		h.length = 72*h.bitrate*1000/h.sampleRate + padding
	}
	return h, true
}

// id3v2Size returns the size of a leading ID3v2 tag, or 0.
func id3v2Size(data []byte) int {
	if len(data) < 10 || string(data[:3]) != "ID3" {
		return 0
	}
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	size += 10
	if data[5]&0x10 != 0 {
		size += 10 // footer
	}
	return size
}

// InspectMP3 validates that data holds an MP3 stream and computes its
// duration by walking frame headers. A sync is accepted only when the
// following frame is also valid or the stream ends exactly after it.
func InspectMP3(data []byte) (MP3Info, error) {
	if len(data) == 0 {
		return MP3Info{}, fmt.Errorf("%w: empty", ErrNotMP3)
	}

	start := id3v2Size(data)
	for offset := start; offset+4 <= len(data); offset++ {
		first, ok := parseFrameHeader(data[offset:])
		if !ok || offset+first.length > len(data) {
			continue
		}
		next := offset + first.length
		if next != len(data) {
			if _, ok := parseFrameHeader(data[next:]); !ok {
				continue
			}
		}
		return walkFrames(data, offset, first), nil
	}

	return MP3Info{}, ErrNotMP3
}

func walkFrames(data []byte, offset int, first frameHeader) MP3Info {
	info := MP3Info{
		SampleRate: first.sampleRate,
		Bitrate:    first.bitrate,
		Offset:     offset,
	}

	var seconds float64
	for pos := offset; pos+4 <= len(data); {
		h, ok := parseFrameHeader(data[pos:])
		// Trailing ID3v1 tags and truncated final frames end the walk.
		if !ok || pos+h.length > len(data) {
			break
		}
		info.Frames++
		seconds += float64(h.samples) / float64(h.sampleRate)
		pos += h.length
	}
	info.Duration = time.Duration(seconds * float64(time.Second))
	return info
}
