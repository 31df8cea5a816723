package source

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavefeed/internal/track"
)

// writeWAV writes samples of a constant value as 16-bit stereo.
func writeWAV(t *testing.T, path string, samples int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	src := &fakeStreamer{n: samples, value: [2]float64{0.25, 0.25}}
	format := beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, src, format))
}

func wavBytes(t *testing.T, samples int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream.wav")
	writeWAV(t, path, samples)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func playDescriptor(t *testing.T, desc track.Descriptor, position int64) (*track.Executor, []int64) {
	t.Helper()
	desc.InitialPosition = position
	e := track.NewExecutor(desc, testTrackOptions())
	require.NoError(t, e.Execute(nil))
	tcs := frameTimecodes(collect(t, e))
	<-e.Done()
	return e, tcs
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		identifier string
		want       string
		ok         bool
	}{
		{"/music/song.mp3", "/music/song.mp3", true},
		{"song.flac", "song.flac", true},
		{"file:///music/song.wav", "/music/song.wav", true},
		{"file://", "", false},
		{"https://example.com/song.mp3", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			got, ok := localPath(tt.identifier)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalManager_IgnoresUnsupported(t *testing.T) {
	m := NewLocalManager()
	for _, id := range []string{"song.ogg", "notes.txt", "http://example.com/a.mp3", "noext"} {
		_, claimed, err := m.Load(id)
		assert.False(t, claimed, id)
		assert.NoError(t, err, id)
	}
}

func TestLocalManager_LoadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 1600) // 200ms

	desc, claimed, err := NewLocalManager().Load(path)
	require.True(t, claimed)
	require.NoError(t, err)

	assert.Equal(t, path, desc.Info.Identifier)
	assert.Equal(t, path, desc.Info.URI)
	assert.Equal(t, "tone.wav", desc.Info.Title)
	assert.Equal(t, int64(200), desc.Info.Length.Milliseconds())
	assert.False(t, desc.Info.IsStream)
	assert.True(t, desc.CanSeek())

	e, tcs := playDescriptor(t, desc, 0)
	assert.Equal(t, steps(0, 10, 20), tcs)
	assert.Nil(t, e.Err())
}

func TestLocalManager_FileScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 160)

	desc, claimed, err := NewLocalManager().Load("file://" + path)
	require.True(t, claimed)
	require.NoError(t, err)
	assert.Equal(t, path, desc.Info.URI)

	_, tcs := playDescriptor(t, desc, 0)
	assert.Len(t, tcs, 2)
}

func TestLocalManager_InitialPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 1600)

	desc, _, err := NewLocalManager().Load(path)
	require.NoError(t, err)

	e, tcs := playDescriptor(t, desc, 150)
	assert.Equal(t, steps(150, 10, 5), tcs)
	assert.Equal(t, int64(190), e.Position())
}

func TestLocalManager_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.mp3")

	_, claimed, err := NewLocalManager().Load(path)
	require.True(t, claimed)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var exc *track.Exception
	require.ErrorAs(t, err, &exc)
	assert.Equal(t, track.SeverityCommon, exc.Severity)
	assert.Contains(t, exc.Message, "Failed to open source")
}

func TestLocalManager_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.flac")
	require.NoError(t, os.WriteFile(path, []byte("definitely not flac"), 0o600))

	_, claimed, err := NewLocalManager().Load(path)
	require.True(t, claimed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to decode source")
}

func TestSkipID3v2(t *testing.T) {
	tag := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 1, 2} // size 130
	withTag := append(append([]byte{}, tag...), bytes.Repeat([]byte{0}, 130)...)
	withTag = append(withTag, []byte("fLaC")...)

	tests := []struct {
		name string
		data []byte
		want int64
	}{
		{"id3 tag", withTag, 140},
		{"no tag", []byte("fLaC and some more bytes"), 0},
		{"short file", []byte("fLaC"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			require.NoError(t, skipID3v2(r))
			pos, err := r.Seek(0, io.SeekCurrent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pos)
		})
	}
}

func TestContainerDetection(t *testing.T) {
	assert.Equal(t, ContainerMP3, containerByExt("/a/b/Song.MP3"))
	assert.Equal(t, ContainerFLAC, containerByExt("x.flac"))
	assert.Equal(t, ContainerWAV, containerByExt("x.wav"))
	assert.Equal(t, ContainerUnknown, containerByExt("x.ogg"))

	assert.Equal(t, ContainerMP3, containerByMIME("audio/mpeg"))
	assert.Equal(t, ContainerFLAC, containerByMIME("audio/x-flac"))
	assert.Equal(t, ContainerWAV, containerByMIME("audio/wav; codecs=1"))
	assert.Equal(t, ContainerUnknown, containerByMIME("application/octet-stream"))
	assert.Equal(t, ContainerUnknown, containerByMIME(""))

	_, _, err := decodeStream(ContainerUnknown, io.NopCloser(bytes.NewReader(nil)))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}
