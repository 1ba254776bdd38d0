package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/darkhz/vidbridge/bridge"
	"github.com/darkhz/vidbridge/controller"
	"github.com/darkhz/vidbridge/fullscreen"
	"github.com/darkhz/vidbridge/mediasession"
	"github.com/darkhz/vidbridge/native"
	"github.com/darkhz/vidbridge/player"
	"github.com/darkhz/vidbridge/registry"
	"github.com/darkhz/vidbridge/utils"
	"github.com/schollz/progressbar/v3"
)

// The surface id assigned to the single terminal-driven surface.
const sessionSurfaceID = 1

// startSession assembles the playback stack, loads the URL and runs
// the playback loop until the media completes or the user interrupts.
func startSession(url string) {
	printer.Print("Starting player")

	socketpath, err := GetPath("socket")
	if err != nil {
		printer.Error(err.Error())
	}

	engine, err := player.NewMPV(player.MPVOptions{
		ExecPath:   GetOptionValue("mpv-path"),
		Socket:     socketpath,
		NumRetries: config.Int("num-retries"),
		UserAgent:  "vidbridge/" + Version,
	})
	if err != nil {
		printer.Error(err.Error())
	}

	channel := bridge.NewChannel()
	reg := registry.New()

	logicalID := GetOptionValue("controller-id")

	view := native.NewViewController(native.Config{
		SurfaceID: sessionSurfaceID,
		LogicalID: logicalID,
		Params: bridge.CreationParams{
			ControllerID:       logicalID,
			AutoPlay:           IsOptionEnabled("autoplay"),
			ShowNativeControls: IsOptionEnabled("show-controls"),
			IsFullScreen:       IsOptionEnabled("fullscreen"),
		},
		Channel:  channel,
		Registry: reg,
		NewEngine: func() player.Engine {
			return engine
		},
		ServiceFactory: func() registry.Service {
			return mediasession.New("vidbridge")
		},
		Hosts: fullscreen.HostProviderFunc(func() (fullscreen.Host, bool) {
			return nil, false
		}),
		Coordinator: fullscreen.NewCoordinator(fullscreen.NoChrome{}),
		Auto:        native.DefaultAutoQuality(),
	})

	app := controller.New(channel)
	if view.Service() != nil {
		app.AttachService(view.Service())
	}
	app.OnSurfaceCreated(view.SurfaceID())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := app.Initialize(ctx); err != nil {
		printer.Error(err.Error())
	}

	printer.Print("Loading " + url)
	if err := app.Load(ctx, url, nil); err != nil {
		printer.Error(err.Error())
	}

	applySettings(app)

	printer.Stop()
	runPlayback(ctx, app)

	app.Dispose()
	view.Dispose()
	reg.Close()
	channel.Close()
}

// applySettings applies the configured playback settings once the
// media is loaded. Failures are not fatal.
func applySettings(app *controller.Controller) {
	app.SetVolume(config.Float64("volume"))
	app.SetSpeed(config.Float64("speed"))

	if quality := GetOptionValue("quality"); quality != "" {
		selected := bridge.Quality{Label: quality}

		for _, q := range app.State().Qualities {
			if q.Label == quality {
				selected = q
				break
			}
		}

		app.SetQuality(selected)
	}

	if track := GetOptionValue("audio-track"); track != "" {
		app.SetAudioTrack(track)
	}
	if track := GetOptionValue("subtitle-track"); track != "" {
		app.SetSubtitleTrack(track)
	}
}

// runPlayback renders playback progress until the media completes,
// fails or the context is cancelled.
func runPlayback(ctx context.Context, app *controller.Controller) {
	duration := app.State().Duration

	bar := progressbar.NewOptions64(
		duration,
		progressbar.OptionSetDescription("00:00 / "+utils.FormatDuration(duration)),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)

	var once sync.Once
	done := make(chan struct{})

	id := app.AddListener(func(event bridge.Event) {
		switch event.Event {
		case bridge.EventTimeUpdate:
			bar.Set64(event.Position)
			bar.Describe(
				utils.FormatDuration(event.Position) +
					" / " + utils.FormatDuration(duration),
			)

		case bridge.EventCompleted, bridge.EventError, bridge.EventStopped:
			once.Do(func() {
				close(done)
			})
		}
	})
	defer app.RemoveListener(id)

	select {
	case <-done:
	case <-ctx.Done():
	}

	bar.Finish()
	fmt.Println()
}
