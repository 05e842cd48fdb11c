package playback

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
	"github.com/rotisserie/eris"
)

// ErrUnsupportedFormat is returned for files whose extension has no decoder.
var ErrUnsupportedFormat = eris.New("unsupported audio format")

// Decoder yields interleaved signed 16-bit little endian PCM at the file's own
// sample rate and channel count. Offsets passed to Seek are in output bytes.
type Decoder interface {
	io.ReadSeeker
	io.Closer
	// Length is the total decoded size in bytes, or 0 when unknown.
	Length() int64
	SampleRate() int
	ChannelCount() int
}

// Opener opens a Decoder for a path.
type Opener func(path string) (Decoder, error)

// SupportedExtensions lists the file extensions OpenFile understands.
var SupportedExtensions = []string{".mp3", ".wav", ".flac", ".ogg"}

// OpenFile picks a decoder by file extension.
func OpenFile(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))
	open, ok := map[string]func(*os.File) (Decoder, error){
		".mp3":  newMP3Decoder,
		".wav":  newWAVDecoder,
		".flac": newFLACDecoder,
		".ogg":  newOGGDecoder,
	}[ext]
	if !ok {
		return nil, eris.Wrapf(ErrUnsupportedFormat, "open %s", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	dec, err := open(f)
	if err != nil {
		f.Close()
		return nil, eris.Wrapf(err, "decode %s", filepath.Base(path))
	}
	return dec, nil
}

// pcmCursor tracks the output position and the spill-over of a decoder that
// produces PCM in blocks larger than the caller's buffer.
type pcmCursor struct {
	pending []byte
	pos     int64
	total   int64
}

func (c *pcmCursor) drain(p []byte) int {
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	c.pos += int64(n)
	return n
}

func (c *pcmCursor) emit(p, block []byte) int {
	n := copy(p, block)
	if n < len(block) {
		c.pending = block[n:]
	}
	c.pos += int64(n)
	return n
}

func (c *pcmCursor) resolve(offset int64, whence int) int64 {
	var target int64
	switch whence {
	case io.SeekCurrent:
		target = c.pos + offset
	case io.SeekEnd:
		target = c.total + offset
	default:
		target = offset
	}
	if c.total > 0 {
		target = min(target, c.total)
	}
	return max(target, 0)
}

func (c *pcmCursor) moved(to int64) {
	c.pending = nil
	c.pos = to
}

// seekFrames resolves a byte offset, aligns it to a whole frame and asks the
// decoder to move there with setFrame. On failure the cursor stays put.
func (c *pcmCursor) seekFrames(offset int64, whence, channels int, setFrame func(int64) error) (int64, error) {
	target := c.resolve(offset, whence)
	frameSize := int64(channels) * 2
	target -= target % frameSize
	if err := setFrame(target / frameSize); err != nil {
		return c.pos, eris.Wrap(err, "seek")
	}
	c.moved(target)
	return target, nil
}

func putSample(dst []byte, v int) {
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	binary.LittleEndian.PutUint16(dst, uint16(int16(v)))
}

// scaleTo16 shifts a signed sample of the given bit depth to 16 bits.
func scaleTo16(v, bitDepth int) int {
	switch {
	case bitDepth > 16:
		return v >> (bitDepth - 16)
	case bitDepth < 16:
		return v << (16 - bitDepth)
	}
	return v
}

type mp3Decoder struct {
	file *os.File
	dec  *mp3.Decoder
}

func newMP3Decoder(f *os.File) (Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{file: f, dec: dec}, nil
}

func (d *mp3Decoder) Read(p []byte) (int, error) { return d.dec.Read(p) }
func (d *mp3Decoder) Seek(offset int64, whence int) (int64, error) {
	return d.dec.Seek(offset, whence)
}
func (d *mp3Decoder) Close() error      { return d.file.Close() }
func (d *mp3Decoder) Length() int64     { return d.dec.Length() }
func (d *mp3Decoder) SampleRate() int   { return d.dec.SampleRate() }
func (d *mp3Decoder) ChannelCount() int { return 2 }

// wavDecoder holds the whole PCM payload in memory; WAV files are read once.
type wavDecoder struct {
	file     *os.File
	buf      *audio.IntBuffer
	bitDepth int
	cursor   pcmCursor
}

func newWAVDecoder(f *os.File) (Decoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, eris.New("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, eris.Wrap(err, "read WAV PCM data")
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, eris.New("WAV file has no channels")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	return &wavDecoder{
		file:     f,
		buf:      buf,
		bitDepth: bitDepth,
		cursor:   pcmCursor{total: int64(len(buf.Data)) * 2},
	}, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	sample := int(d.cursor.pos / 2)
	if sample >= len(d.buf.Data) {
		return 0, io.EOF
	}
	count := min(len(p)/2, len(d.buf.Data)-sample)
	for i := range count {
		v := d.buf.Data[sample+i]
		if d.bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		putSample(p[i*2:], scaleTo16(v, d.bitDepth))
	}
	d.cursor.pos += int64(count * 2)
	return count * 2, nil
}

func (d *wavDecoder) Seek(offset int64, whence int) (int64, error) {
	target := d.cursor.resolve(offset, whence)
	target -= target % 2
	d.cursor.moved(target)
	return target, nil
}

func (d *wavDecoder) Close() error      { return d.file.Close() }
func (d *wavDecoder) Length() int64     { return d.cursor.total }
func (d *wavDecoder) SampleRate() int   { return d.buf.Format.SampleRate }
func (d *wavDecoder) ChannelCount() int { return d.buf.Format.NumChannels }

type flacDecoder struct {
	file     *os.File
	stream   *flac.Stream
	channels int
	bps      int
	cursor   pcmCursor
}

func newFLACDecoder(f *os.File) (Decoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, err
	}
	info := stream.Info
	channels := int(info.NChannels)
	return &flacDecoder{
		file:     f,
		stream:   stream,
		channels: channels,
		bps:      int(info.BitsPerSample),
		cursor:   pcmCursor{total: int64(info.NSamples) * int64(channels) * 2},
	}, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if len(d.cursor.pending) > 0 {
		return d.cursor.drain(p), nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}
	n := int(frame.Subframes[0].NSamples)
	block := make([]byte, n*d.channels*2)
	for i := range n {
		for ch := range d.channels {
			v := scaleTo16(int(frame.Subframes[ch].Samples[i]), d.bps)
			putSample(block[(i*d.channels+ch)*2:], v)
		}
	}
	return d.cursor.emit(p, block), nil
}

func (d *flacDecoder) Seek(offset int64, whence int) (int64, error) {
	return d.cursor.seekFrames(offset, whence, d.channels, func(frame int64) error {
		_, err := d.stream.Seek(uint64(frame))
		return err
	})
}

func (d *flacDecoder) Close() error      { return d.file.Close() }
func (d *flacDecoder) Length() int64     { return d.cursor.total }
func (d *flacDecoder) SampleRate() int   { return int(d.stream.Info.SampleRate) }
func (d *flacDecoder) ChannelCount() int { return d.channels }

type oggDecoder struct {
	file    *os.File
	reader  *oggvorbis.Reader
	samples []float32
	cursor  pcmCursor
}

func newOGGDecoder(f *os.File) (Decoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, err
	}
	return &oggDecoder{
		file:   f,
		reader: reader,
		cursor: pcmCursor{total: reader.Length() * int64(reader.Channels()) * 2},
	}, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if len(d.cursor.pending) > 0 {
		return d.cursor.drain(p), nil
	}

	want := max(len(p)/2, d.reader.Channels())
	if cap(d.samples) < want {
		d.samples = make([]float32, want)
	}
	n, err := d.reader.Read(d.samples[:want])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	block := make([]byte, n*2)
	for i, s := range d.samples[:n] {
		putSample(block[i*2:], int(s*32767))
	}
	written := d.cursor.emit(p, block)
	if eris.Is(err, io.EOF) && len(d.cursor.pending) > 0 {
		err = nil
	}
	return written, err
}

func (d *oggDecoder) Seek(offset int64, whence int) (int64, error) {
	return d.cursor.seekFrames(offset, whence, d.reader.Channels(), d.reader.SetPosition)
}

func (d *oggDecoder) Close() error      { return d.file.Close() }
func (d *oggDecoder) Length() int64     { return d.cursor.total }
func (d *oggDecoder) SampleRate() int   { return d.reader.SampleRate() }
func (d *oggDecoder) ChannelCount() int { return d.reader.Channels() }
