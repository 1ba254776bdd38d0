package native

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=2500000,RESOLUTION=1280x720
high/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360
low/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=128000
audio/index.m3u8
`

func TestResolveHLSVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(masterPlaylist))
	}))
	defer srv.Close()

	qualities, err := ResolveHLSVariants(context.Background(), srv.URL+"/master.m3u8")
	require.NoError(t, err)
	require.Len(t, qualities, 3)

	// Sorted by ascending height; the audio-only variant carries a
	// bitrate label and sorts first.
	require.Equal(t, "128kbps", qualities[0].Label)
	require.Equal(t, "360p", qualities[1].Label)
	require.Equal(t, "720p", qualities[2].Label)

	require.Equal(t, srv.URL+"/low/index.m3u8", qualities[1].URL)
	require.Equal(t, srv.URL+"/high/index.m3u8", qualities[2].URL)
	require.Equal(t, 640, qualities[1].Width)
	require.Equal(t, 360, qualities[1].Height)
	require.Equal(t, int64(800000), qualities[1].Bitrate)
}

func TestResolveHLSVariantsInvalidURL(t *testing.T) {
	_, err := ResolveHLSVariants(context.Background(), "notaurl")
	require.Error(t, err)
}

func TestResolveHLSVariantsBadPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not a playlist"))
	}))
	defer srv.Close()

	_, err := ResolveHLSVariants(context.Background(), srv.URL+"/master.m3u8")
	require.Error(t, err)
}
