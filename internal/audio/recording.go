package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"dsp/internal/config"
)

const recorderBitDepth = 16

// recorder drains processed blocks into a mono 16-bit WAV file. While
// armed it is fed only by the processing goroutine; StartRecording and
// StopRecording swap it in and out under the processor's recording
// mutex.
type recorder struct {
	file     *os.File
	enc      *wav.Encoder
	buf      *goaudio.IntBuffer
	failures int // consecutive write failures
}

func newRecorder(path string, sampleRate float64) (*recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create recording file: %w", err)
	}

	return &recorder{
		file: file,
		enc:  wav.NewEncoder(file, int(sampleRate), recorderBitDepth, 1, 1),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: 1,
				SampleRate:  int(sampleRate),
			},
			Data:           make([]int, config.BlockSize),
			SourceBitDepth: recorderBitDepth,
		},
	}, nil
}

// write converts a float64 block to 16-bit PCM and appends it to the
// file. Samples outside [-1, 1] are clipped.
func (r *recorder) write(block []float64) error {
	if len(block) > cap(r.buf.Data) {
		r.buf.Data = make([]int, len(block))
	}
	r.buf.Data = r.buf.Data[:len(block)]
	for i, s := range block {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		r.buf.Data[i] = int(s * 32767.0)
	}
	return r.enc.Write(r.buf)
}

// close finalizes the WAV header and releases the file.
func (r *recorder) close() error {
	encErr := r.enc.Close()
	fileErr := r.file.Close()
	if encErr != nil {
		return encErr
	}
	return fileErr
}
