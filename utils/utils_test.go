package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		milliseconds int64
		want         string
	}{
		{0, "00:00"},
		{1000, "00:01"},
		{61000, "01:01"},
		{3661000, "01:01:01"},
	}

	for _, c := range cases {
		require.Equal(t, c.want, FormatDuration(c.milliseconds))
	}
}

func TestIsValidURL(t *testing.T) {
	_, err := IsValidURL("https://example.com/video.mp4")
	require.NoError(t, err)

	_, err = IsValidURL("notaurl")
	require.Error(t, err)
}

func TestIsHLSURL(t *testing.T) {
	require.True(t, IsHLSURL("https://example.com/master.m3u8"))
	require.True(t, IsHLSURL("https://example.com/master.M3U8?token=x"))
	require.False(t, IsHLSURL("https://example.com/video.mp4"))
	require.False(t, IsHLSURL("://bad"))
}

func TestIsValidJSON(t *testing.T) {
	require.True(t, IsValidJSON(`{"event":"play"}`))
	require.False(t, IsValidJSON(`{"event":`))
}

func TestGetHostname(t *testing.T) {
	require.Equal(t, "example.com", GetHostname("https://example.com/watch"))
	require.Equal(t, "localhost", GetHostname("localhost"))
}
