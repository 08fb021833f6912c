package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/filevault-backend/internal/app"
)

func main() {
	w, err := app.NewWorker()
	if err != nil {
		fmt.Printf("Failed to init worker: %v\n", err)
		os.Exit(1)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil {
		w.Log.Error("Worker exited with error", "error", err)
	}
}
