package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/gopxl/beep/v2"

	"github.com/llehouerou/wavefeed/internal/errmsg"
	"github.com/llehouerou/wavefeed/internal/track"
)

// ErrBadStatus is returned when a stream answers with a non-2xx status.
var ErrBadStatus = errors.New("source: unexpected HTTP status")

// HTTPManager plays mp3, flac and wav streams over http and https. Streams
// are not seekable and have no known length.
type HTTPManager struct {
	client *http.Client
}

// NewHTTPManager creates an HTTP manager. A nil client uses
// http.DefaultClient.
func NewHTTPManager(client *http.Client) *HTTPManager {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPManager{client: client}
}

func (m *HTTPManager) Name() string { return "http" }

// Load claims http and https URLs. Nothing is fetched until the track is
// read, so connection failures end the track as a load failure.
func (m *HTTPManager) Load(identifier string) (track.Descriptor, bool, error) {
	u, err := url.Parse(identifier)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return track.Descriptor{}, false, nil
	}
	if u.Host == "" {
		return track.Descriptor{}, true, fmt.Errorf("missing host in %q", identifier)
	}

	title := path.Base(u.Path)
	if title == "/" || title == "." {
		title = u.Host
	}

	return track.Descriptor{
		Info: track.Info{
			Identifier: identifier,
			Title:      title,
			Author:     u.Host,
			IsStream:   true,
			URI:        identifier,
		},
		Decoder: &httpDecoder{client: m.client, url: identifier},
	}, true, nil
}

// httpDecoder opens its request on the first Read, bound to the context of
// that read.
type httpDecoder struct {
	client *http.Client
	url    string
	pcm    *PCMDecoder
}

func (d *httpDecoder) Read(ctx context.Context, pc *track.ProcessingContext) error {
	if d.pcm == nil {
		pcm, err := d.open(ctx)
		if err != nil {
			return err
		}
		d.pcm = pcm
	}
	return d.pcm.Read(ctx, pc)
}

func (d *httpDecoder) open(ctx context.Context) (*PCMDecoder, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, sourceError(errmsg.OpSourceOpen, d.url, err)
	}
	req.Header.Set("Accept", "audio/*")

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, sourceError(errmsg.OpSourceOpen, d.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, sourceError(errmsg.OpSourceOpen, d.url, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status))
	}

	container := containerByMIME(resp.Header.Get("Content-Type"))
	if container == ContainerUnknown {
		container = containerByExt(req.URL.Path)
	}

	streamer, format, err := decodeStream(container, resp.Body)
	if err != nil {
		resp.Body.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, sourceError(errmsg.OpSourceDecode, d.url, err)
	}
	// Hide Seek: the body cannot rewind.
	return NewPCMDecoder(streamOnly{streamer}, format, streamer), nil
}

func (d *httpDecoder) Close() error {
	if d.pcm == nil {
		return nil
	}
	return d.pcm.Close()
}

type streamOnly struct {
	beep.Streamer
}
