// Command mouthwatch watches the webcam and chimes when the mouth stays open.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
