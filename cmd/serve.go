package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/crashinsight/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics as a read-only JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		if serveAddr != "" {
			c.ListenAddr = serveAddr
		}
		eng, err := newEngine()
		if err != nil {
			return err
		}
		// The server refuses to start without data.
		if err := eng.Load(); err != nil {
			return err
		}
		h := eng.Health()
		log.Printf("dataset ready: %d records (%s)", h.TotalRecords, h.Source)

		srv := server.New(eng, server.Options{
			Addr:              c.ListenAddr,
			CORSOrigins:       c.CORSOrigins,
			DefaultClusters:   c.DefaultClusters,
			DefaultMinSupport: c.DefaultMinSupport,
			ModelTimeout:      5 * time.Minute,
			AccessLog:         debug,
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		log.Printf("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}
