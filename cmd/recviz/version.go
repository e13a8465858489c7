package main

import (
	"fmt"
	"io"
	"runtime"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0" ./cmd/recviz/
var version = "dev"

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "recviz %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
