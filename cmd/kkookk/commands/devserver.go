package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/kkookk/kkookk/internal/config"
	"github.com/kkookk/kkookk/internal/devserver"
)

func NewDevserverCmd() *cobra.Command {
	var host string
	var port int
	var fakeClock bool

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run the in-memory reference backend",
		Long: fmt.Sprintf(`Run an in-memory backend with seeded data for local use.

Seeded sessions: wallet %q, owner of store 1 %q. The step-up code is %q.`,
			devserver.DevWalletToken, devserver.DevOwnerToken, devserver.DevOTPCode),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			dcfg := cfg.Devserver
			if cmd.Flags().Changed("host") {
				dcfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				dcfg.Port = port
			}

			opts := []devserver.StoreOption{devserver.WithTTLs(
				time.Duration(dcfg.IssuanceTTLSeconds)*time.Second,
				time.Duration(dcfg.RedeemTTLSeconds)*time.Second,
			)}
			if fakeClock {
				opts = append(opts, devserver.WithStoreClock(clockwork.NewFakeClock()))
			}
			srv := devserver.New(dcfg, devserver.NewStore(opts...))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			fmt.Printf("devserver listening on http://%s\n", srv.Addr())

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown devserver: %w", err)
			}
			fmt.Println("devserver stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (defaults to devserver.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (defaults to devserver.port)")
	cmd.Flags().BoolVar(&fakeClock, "fake-clock", false, "Freeze time; advance it with POST /admin/time/advance")
	return cmd
}
