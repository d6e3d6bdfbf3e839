package logging

import (
	"log"
	"os"
)

// Init sends the standard logger to stderr with microsecond timestamps.
func Init(prefix string) {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if prefix != "" {
		log.SetPrefix(prefix + " ")
	}
}
