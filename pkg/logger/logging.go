package logger

import (
	"os"

	"github.com/rs/zerolog"
)

var Log zerolog.Logger

// Init sets up the global logger writing to stdout and logs/server.log.
func Init() {
	if err := os.MkdirAll("logs", os.ModePerm); err != nil {
		panic(err)
	}

	file, err := os.OpenFile("logs/server.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		panic(err)
	}

	multi := zerolog.MultiLevelWriter(os.Stdout, file)

	Log = zerolog.New(multi).With().Timestamp().Logger()
}

func init() {
	// Keep a usable logger before Init runs (tests, consumers).
	Log = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
