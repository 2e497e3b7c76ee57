package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/aixkai/naiveproxy/internal/recorder"
)

var (
	addrFlag    string
	dirFlag     string
	verboseFlag bool
)

func init() {
	flag.StringVar(&addrFlag, "addr", ":8081", "Address to listen on")
	flag.StringVar(&dirFlag, "dir", "", "Directory to capture snapshots into")
	flag.BoolVar(&verboseFlag, "v", false, "Verbose logging")
}

func main() {
	flag.Parse()

	if verboseFlag {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if dirFlag == "" {
		log.Fatalf("Please specify a capture directory with -dir")
	}
	if err := os.MkdirAll(dirFlag, 0755); err != nil {
		log.Fatalf("Failed to create capture directory: %v", err)
	}

	rec := recorder.New(dirFlag)

	logrus.Infof("Recording proxy listening on %s", addrFlag)
	logrus.Infof("Capture directory: %s", dirFlag)

	if err := http.ListenAndServe(addrFlag, rec.Handler()); err != nil {
		log.Fatalf("Recorder failed: %v", err)
	}
}
