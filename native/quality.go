package native

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/darkhz/vidbridge/bridge"
	"github.com/darkhz/vidbridge/utils"
	"github.com/etherlabsio/go-m3u8/m3u8"
)

// QualityAuto is the label selecting automatic quality switching.
const QualityAuto = "auto"

var qualityClient = &http.Client{Timeout: 10 * time.Second}

// ResolveHLSVariants fetches an HLS master playlist and returns its
// variant streams as a quality ladder, sorted by ascending height.
func ResolveHLSVariants(ctx context.Context, uri string) ([]bridge.Quality, error) {
	base, err := utils.IsValidURL(uri)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	res, err := qualityClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	pl, err := m3u8.Read(res.Body)
	if err != nil {
		return nil, err
	}

	var qualities []bridge.Quality

	for _, p := range pl.Playlists() {
		variant, err := base.Parse(p.URI)
		if err != nil {
			continue
		}

		quality := bridge.Quality{
			URL:     variant.String(),
			Bitrate: int64(p.Bandwidth),
		}

		if p.Resolution != nil {
			quality.Width = p.Resolution.Width
			quality.Height = p.Resolution.Height
			quality.Label = strconv.Itoa(p.Resolution.Height) + "p"
		} else {
			quality.Label = strconv.Itoa(p.Bandwidth/1000) + "kbps"
		}

		qualities = append(qualities, quality)
	}

	sort.SliceStable(qualities, func(i, j int) bool {
		if qualities[i].Height != qualities[j].Height {
			return qualities[i].Height < qualities[j].Height
		}

		return qualities[i].Bitrate < qualities[j].Bitrate
	})

	return qualities, nil
}
