// Command webserv loads a configuration tree and runs the server core
// until interrupted.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"webservd/internal/config"
	"webservd/internal/reactor"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON configuration tree (see internal/config)")
		name       = flag.String("server-name", "webservd", "value written into the Server response header")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "webserv: ", log.LstdFlags)

	tree, err := loadTree(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	tree.Finalize()

	r := reactor.New(*name, logger)
	if err := r.Listen(tree); err != nil {
		logger.Fatalf("listen: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		r.Stop()
	}()

	if err := r.Run(); err != nil {
		logger.Fatalf("run: %v", err)
	}
}

func loadTree(path string) (*config.Tree, error) {
	if path == "" {
		return nil, fmt.Errorf("-config is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return config.Load(f)
}
