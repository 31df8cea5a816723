package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/wav"

	"github.com/llehouerou/wavefeed/internal/errmsg"
	"github.com/llehouerou/wavefeed/internal/track"
)

const fileScheme = "file://"

// LocalManager plays mp3, flac and wav files from the local filesystem.
// Identifiers are paths, optionally prefixed with file://.
type LocalManager struct{}

// NewLocalManager creates a local file manager.
func NewLocalManager() *LocalManager { return &LocalManager{} }

func (m *LocalManager) Name() string { return "local" }

// Load claims paths with a supported extension. The file is opened and its
// header decoded here, so a missing or corrupt file fails the request.
func (m *LocalManager) Load(identifier string) (track.Descriptor, bool, error) {
	path, ok := localPath(identifier)
	if !ok {
		return track.Descriptor{}, false, nil
	}
	container := containerByExt(path)
	if container == ContainerUnknown {
		return track.Descriptor{}, false, nil
	}

	info := readInfo(path)

	streamer, format, err := openLocal(container, path)
	if err != nil {
		return track.Descriptor{}, true, err
	}

	dec := NewPCMDecoder(streamer, format, streamer)
	info.Identifier = identifier
	info.URI = path
	info.Length = dec.Length()

	return track.Descriptor{
		Info:     info,
		Seekable: dec.Seekable(),
		Decoder:  dec,
	}, true, nil
}

// localPath strips file:// and rejects other URL schemes.
func localPath(identifier string) (string, bool) {
	if rest, ok := strings.CutPrefix(identifier, fileScheme); ok {
		return rest, rest != ""
	}
	if identifier == "" || strings.Contains(identifier, "://") {
		return "", false
	}
	return identifier, true
}

func openLocal(container Container, path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, sourceError(errmsg.OpSourceOpen, path, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch container {
	case ContainerMP3:
		streamer, format, err = decodeGoMP3(f)
	case ContainerFLAC:
		if err = skipID3v2(f); err == nil {
			streamer, format, err = flac.Decode(f)
		}
	case ContainerWAV:
		streamer, format, err = wav.Decode(f)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, sourceError(errmsg.OpSourceDecode, path, err)
	}
	return streamer, format, nil
}

// readInfo reads the tags of path, falling back to the file name.
func readInfo(path string) track.Info {
	info := track.Info{Title: filepath.Base(path)}

	f, err := os.Open(path)
	if err != nil {
		return info
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return info
	}
	if m.Title() != "" {
		info.Title = m.Title()
	}
	info.Author = m.Artist()
	if info.Author == "" {
		info.Author = m.AlbumArtist()
	}
	return info
}

// sourceError classifies failures with a known cause as common.
func sourceError(op errmsg.Op, what string, err error) error {
	return track.NewException(errmsg.FormatWith(op, what, err), track.SeverityCommon, err)
}
