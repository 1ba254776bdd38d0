package main

import (
	"github.com/darkhz/vidbridge/cmd"
)

func main() {
	cmd.Init()
}
