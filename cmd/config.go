package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/darkhz/vidbridge/platform"
	"github.com/hjson/hjson-go/v4"
	koanfhjson "github.com/knadh/koanf/parsers/hjson"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	homedir "github.com/mitchellh/go-homedir"
)

// Config describes the configuration for the app.
type Config struct {
	path string

	mutex sync.Mutex

	*koanf.Koanf
}

var config Config

// defaults holds the built-in configuration values, merged before the
// configuration file and the command-line flags.
var defaults = []byte(`{
  mpv-path: mpv
  num-retries: 100
  autoplay: true
  volume: 1.0
  speed: 1.0
  show-controls: true
  controller-id: ""
  quality: ""
  audio-track: ""
  subtitle-track: ""
}`)

// setup locates the configuration directory and loads the built-in
// defaults and the configuration file.
func (c *Config) setup() {
	c.Koanf = koanf.New(".")

	home, err := homedir.Dir()
	if err != nil {
		printer.Error(err.Error())
	}

	dirs := []string{".config/vidbridge", ".vidbridge"}
	for i, dir := range dirs {
		p := filepath.Join(home, dir)
		dirs[i] = p

		if _, err := os.Stat(p); err == nil {
			c.path = p
			break
		}
	}

	if c.path == "" {
		pos := 1
		if _, err := os.Stat(filepath.Dir(dirs[0])); err == nil {
			pos = 0
		}

		if err := os.Mkdir(dirs[pos], 0700); err != nil {
			printer.Error(err.Error())
		}

		c.path = dirs[pos]
	}

	if err := c.Load(rawbytes.Provider(defaults), koanfhjson.Parser()); err != nil {
		printer.Error(err.Error())
	}

	conf := filepath.Join(c.path, "vidbridge.conf")
	if _, err := os.Stat(conf); err == nil {
		if err := c.Load(file.Provider(conf), koanfhjson.Parser()); err != nil {
			printer.Error(err.Error())
		}
	}
}

// GetPath returns the full config path for the provided file type.
func GetPath(ftype string) (string, error) {
	if ftype == "socket" {
		socket := filepath.Join(config.path, "socket")

		if _, err := os.Stat(socket); err == nil {
			if err := os.Remove(socket); err != nil {
				return "", fmt.Errorf("Config: Cannot remove %s", socket)
			}
		}

		return platform.Socket(socket), nil
	}

	cfpath := filepath.Join(config.path, ftype)

	fd, err := os.OpenFile(cfpath, os.O_CREATE, os.ModePerm)
	if err != nil {
		return "", fmt.Errorf("Config: Cannot create %s file at %s", ftype, cfpath)
	}
	fd.Close()

	return cfpath, nil
}

// GetOptionValue returns a value for an option
// from the configuration store.
func GetOptionValue(key string) string {
	config.mutex.Lock()
	defer config.mutex.Unlock()

	return config.String(key)
}

// IsOptionEnabled returns if an option is enabled.
func IsOptionEnabled(key string) bool {
	config.mutex.Lock()
	defer config.mutex.Unlock()

	return config.Bool(key)
}

// generateConfig writes the current configuration values back to the
// configuration file. Any existing values are preserved.
func generateConfig() {
	genMap := make(map[string]interface{})

	for _, key := range []string{
		"mpv-path",
		"num-retries",
		"autoplay",
		"volume",
		"speed",
		"show-controls",
		"controller-id",
		"quality",
		"audio-track",
		"subtitle-track",
	} {
		genMap[key] = config.Get(key)
	}

	data, err := hjson.Marshal(genMap)
	if err != nil {
		printer.Error(err.Error())
	}

	conf, err := GetPath("vidbridge.conf")
	if err != nil {
		printer.Error(err.Error())
	}

	fd, err := os.OpenFile(conf, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
	if err != nil {
		printer.Error(err.Error())
	}
	defer fd.Close()

	if _, err := fd.Write(data); err != nil {
		printer.Error(err.Error())
	}

	if err := fd.Sync(); err != nil {
		printer.Error(err.Error())
	}
}
