package analysis

import (
	"bytes"
	"encoding/binary"
)

// WAV renders the clip as a mono 16-bit RIFF/WAVE payload for playback.
func (c SpeechClip) WAV() []byte {
	pcm := make([]byte, len(c.Samples)*2)
	for i, sample := range c.Samples {
		v := sample
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}

	var buf bytes.Buffer
	dataLen := uint32(len(pcm))
	rate := uint32(c.SampleRate)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, rate)
	binary.Write(&buf, binary.LittleEndian, rate*2) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)
	return buf.Bytes()
}
