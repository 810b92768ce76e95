package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chatrelay/internal/config"
	"chatrelay/internal/server"
)

var addr string

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatrelay-server",
		Short: "A real-time chat relay server",
		Long: "A websocket chat relay: each connection claims a username and can " +
			"broadcast to everyone or message a single user.",
		RunE: runServe,
	}

	rootCmd.Flags().StringVar(&addr, "addr", "",
		"listen address (overrides the PORT environment variable)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	conf, err := config.New()
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	listenAddr := addr
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%d", conf.Port)
	}

	var origins []string
	if conf.AllowedOrigins != "" {
		origins = strings.Split(conf.AllowedOrigins, ",")
	}

	srv := server.New(origins)

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("[server] shutting down…")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("[server] shutdown: %v", err)
		}
	}()

	return srv.ListenAndServe(listenAddr)
}
