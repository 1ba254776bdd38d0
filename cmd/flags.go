package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"
)

// parse parses the command-line parameters and merges them into the
// configuration store. Flags take precedence over the configuration
// file.
func parse() {
	fs := pflag.NewFlagSet("vidbridge", pflag.ContinueOnError)

	fs.String("play", "", "Play the video at the specified URL.")
	fs.String("mpv-path", "mpv", "Specify path to the mpv executable.")
	fs.Int("num-retries", 100, "Set the number of retries for connecting to the socket.")
	fs.Bool("autoplay", true, "Start playback as soon as the video is loaded.")
	fs.Float64("volume", 1.0, "Set the initial volume, from 0.0 to 1.0.")
	fs.Float64("speed", 1.0, "Set the initial playback speed.")
	fs.String("quality", "", "Select a quality variant by label, or 'auto'.")
	fs.String("audio-track", "", "Select an audio track by language, id or label.")
	fs.String("subtitle-track", "", "Select a subtitle track by language, id or label.")
	fs.Bool("show-controls", true, "Show the native playback controls.")
	fs.Bool("fullscreen", false, "Start in fullscreen mode.")
	fs.String("controller-id", "", "Share the player across surfaces under this identifier.")
	fs.Bool("generate", false, "Generate the configuration file.")
	fs.Bool("version", false, "Print version information.")

	fs.Usage = func() {
		usage := fmt.Sprintf(
			"vidbridge [<flags>]\n\nConfig file is %s\n\nFlags:\n%s",
			config.path, fs.FlagUsages(),
		)

		printer.Exit(usage)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}

		printer.Error(err.Error())
	}

	if err := config.Load(posflag.Provider(fs, ".", config.Koanf), nil); err != nil {
		printer.Error(err.Error())
	}

	checkOptions()
}

// checkOptions validates the merged option values.
func checkOptions() {
	if path := GetOptionValue("mpv-path"); path != "" {
		if _, err := exec.LookPath(path); err != nil {
			printer.Error(fmt.Sprintf("mpv-path: Could not find %s", path))
		}
	}

	if retries := config.Int("num-retries"); retries <= 0 {
		printer.Error("Invalid value for num-retries")
	}

	if volume := config.Float64("volume"); volume < 0 || volume > 1 {
		printer.Error("Invalid value for volume")
	}

	if speed := config.Float64("speed"); speed <= 0 {
		printer.Error("Invalid value for speed")
	}
}
