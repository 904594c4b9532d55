package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/flitsinc/devserve/internal/config"
	"github.com/flitsinc/devserve/internal/devserver"
)

func main() {
	root, err := config.ProjectRoot()
	if err != nil {
		log.Fatalf("locate project root: %v", err)
	}
	if err := os.Chdir(root); err != nil {
		log.Fatalf("chdir %s: %v", root, err)
	}

	cfg := config.Load()
	cfg.Dir = root

	srv, err := devserver.New(cfg)
	if err != nil {
		log.Fatalf("devserver: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		var bindErr *devserver.BindError
		if errors.As(err, &bindErr) {
			log.Fatalf("%v (is another server already using %s?)", bindErr, bindErr.Addr)
		}
		log.Fatalf("devserver: %v", err)
	}
}
