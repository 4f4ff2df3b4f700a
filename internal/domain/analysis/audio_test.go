package analysis

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpeechClipWAV(t *testing.T) {
	clip := SpeechClip{
		SampleRate: SpeechSampleRate,
		Samples:    []float32{0, 0.5, -0.5, 1, -1},
	}

	wav := clip.WAV()
	require.Len(t, wav, 44+len(clip.Samples)*2)

	require.Equal(t, "RIFF", string(wav[0:4]))
	require.Equal(t, "WAVE", string(wav[8:12]))
	require.Equal(t, "fmt ", string(wav[12:16]))
	require.Equal(t, "data", string(wav[36:40]))

	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	require.Equal(t, uint32(SpeechSampleRate), binary.LittleEndian.Uint32(wav[24:28]))
	require.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	require.Equal(t, uint32(len(clip.Samples)*2), binary.LittleEndian.Uint32(wav[40:44]))

	// First sample is silence, last clamps at full scale.
	require.Equal(t, int16(0), int16(binary.LittleEndian.Uint16(wav[44:46])))
	require.Equal(t, int16(-32767), int16(binary.LittleEndian.Uint16(wav[52:54])))
}

func TestSpeechClipWAVClampsOutOfRangeSamples(t *testing.T) {
	clip := SpeechClip{SampleRate: SpeechSampleRate, Samples: []float32{2, -2}}
	wav := clip.WAV()
	require.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(wav[44:46])))
	require.Equal(t, int16(-32767), int16(binary.LittleEndian.Uint16(wav[46:48])))
}

func TestSpeechClipEmpty(t *testing.T) {
	require.True(t, SpeechClip{}.Empty())
	require.False(t, SpeechClip{Samples: []float32{0.1}}.Empty())
}
