package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storyloom/internal/api"
	"storyloom/internal/format"
	"storyloom/internal/store"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(app *App) *cobra.Command {
	var (
		addr    string
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and HTML preview",
		Example: strings.TrimSpace(`
# Serve on the configured address
storyloom serve

# Preview a story in the browser
storyloom serve --addr 127.0.0.1:8420
open "http://127.0.0.1:8420/preview?campaign=crypt&story=intro&live=1"
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore()
			if err != nil {
				return writeErr(cmd, err)
			}
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = app.cfg.Addr
			}
			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			srv := api.New(st, api.Options{
				AllowedOrigins: app.cfg.AllowedOrigins,
				MaxPathDepth:   app.cfg.MaxPathDepth,
				Logger:         app.logger(),
			})
			url := "http://" + ln.Addr().String() + "/"
			_ = writeOut(cmd, app, format.Envelope{
				Data: map[string]any{
					"addr":      ln.Addr().String(),
					"url":       url,
					"dir":       st.Dir,
					"watch":     !noWatch,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				Hints: []string{
					"curl " + url + "api/campaigns",
					"open " + url + "preview?campaign=<campaign>&story=<story>&live=1",
				},
			})

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := serve(ctx, ln, srv, st, !noWatch, app.logger()); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port; default from config)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch story files for external edits")
	return cmd
}

// serve runs the HTTP server and, optionally, the story file watcher until ctx ends or
// either of them fails.
func serve(ctx context.Context, ln net.Listener, srv *api.Server, st *store.Store, watch bool, log *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Live preview streams end with ctx; Shutdown alone would wait for them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	if watch {
		w, err := store.NewWatcher(st, log)
		if err != nil {
			log.Warn("file watching disabled", zap.Error(err))
		} else {
			w.OnChange(func(ch store.StoryChange) {
				log.Info("story changed on disk",
					zap.String("campaign", ch.Campaign),
					zap.String("story", ch.Story),
					zap.Bool("removed", ch.Removed),
				)
				srv.Notify(ch)
			})
			g.Go(func() error {
				w.Run()
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				w.Stop()
				return nil
			})
		}
	}

	return g.Wait()
}
