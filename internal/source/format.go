package source

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// Container is an audio file format the sources can decode.
type Container string

const (
	ContainerUnknown Container = ""
	ContainerMP3     Container = "mp3"
	ContainerFLAC    Container = "flac"
	ContainerWAV     Container = "wav"
)

// ErrUnsupportedFormat is returned for files or streams no decoder handles.
var ErrUnsupportedFormat = errors.New("source: unsupported format")

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extWAV  = ".wav"
)

// containerByExt maps a file extension (with the dot, any case).
func containerByExt(name string) Container {
	switch strings.ToLower(path.Ext(name)) {
	case extMP3:
		return ContainerMP3
	case extFLAC:
		return ContainerFLAC
	case extWAV:
		return ContainerWAV
	default:
		return ContainerUnknown
	}
}

// containerByMIME maps a Content-Type header value.
func containerByMIME(contentType string) Container {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ContainerUnknown
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return ContainerMP3
	case "audio/flac", "audio/x-flac":
		return ContainerFLAC
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return ContainerWAV
	default:
		return ContainerUnknown
	}
}

// decodeStream decodes a non-seekable stream with the beep decoders. The
// returned streamer owns rc.
func decodeStream(c Container, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch c {
	case ContainerMP3:
		return mp3.Decode(rc)
	case ContainerFLAC:
		return flac.Decode(rc)
	case ContainerWAV:
		return wav.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, c)
	}
}

// skipID3v2 skips an ID3v2 tag if present at the beginning of the file.
// Some taggers prepend one to FLAC files, which the FLAC decoder rejects.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// Syncsafe integer: 7 bits per byte.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}
