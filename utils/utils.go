package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	urlverify "github.com/davidmytton/url-verifier"
	jsoniter "github.com/json-iterator/go"
)

// JSON returns the jsoniter API for json encoding/decoding.
func JSON() jsoniter.API {
	return jsoniter.ConfigCompatibleWithStandardLibrary
}

// FormatDuration takes a duration as milliseconds and returns a hh:mm:ss string.
func FormatDuration(milliseconds int64) string {
	var durationtext string

	d := (time.Duration(milliseconds) * time.Millisecond).Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour

	m := d / time.Minute
	d -= m * time.Minute

	s := d / time.Second

	if h > 0 {
		if h < 10 {
			durationtext += "0"
		}

		durationtext += strconv.Itoa(int(h))
		durationtext += ":"
	}

	if m > 0 {
		if m < 10 {
			durationtext += "0"
		}

		durationtext += strconv.Itoa(int(m))
	} else {
		durationtext += "00"
	}

	durationtext += ":"

	if s < 10 {
		durationtext += "0"
	}

	durationtext += strconv.Itoa(int(s))

	return durationtext
}

// IsValidURL checks if a URL is valid.
func IsValidURL(uri string) (*url.URL, error) {
	v, err := urlverify.NewVerifier().Verify(uri)
	if err != nil {
		return nil, err
	}
	if !v.IsURL {
		return nil, fmt.Errorf("invalid URL")
	}

	return url.Parse(uri)
}

// IsValidJSON checks if the text is valid JSON.
func IsValidJSON(text string) bool {
	var msg jsoniter.RawMessage

	return JSON().Unmarshal([]byte(text), &msg) == nil
}

// IsHLSURL returns whether the URL points to an HLS playlist.
func IsHLSURL(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}

	return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

// GetHostname gets the hostname of the given URL.
func GetHostname(hostURL string) string {
	uri, _ := url.Parse(hostURL)

	hostname := uri.Hostname()
	if hostname == "" {
		return hostURL
	}

	return hostname
}
