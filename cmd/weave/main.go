package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	weave "github.com/frantjc/go-weave"
	"github.com/frantjc/go-weave/internal/logutil"
	xerrors "github.com/frantjc/x/errors"
	xos "github.com/frantjc/x/os"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := xerrors.Ignore(newWeave().ExecuteContext(ctx), context.Canceled)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
	}

	stop()
	xos.ExitFromError(err)
}

func newWeave() *cobra.Command {
	var (
		timeout           time.Duration
		readHeaderTimeout time.Duration
		slogConfig        = new(logutil.SlogConfig)
		cmd               = &cobra.Command{
			Use:           "weave SRC to DEST [and SRC to DEST ...]",
			Short:         "A lightweight HTTP router and file server",
			Version:       SemVer(),
			SilenceErrors: true,
			SilenceUsage:  true,
			Args:          cobra.ArbitraryArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var (
					slogHandler = logutil.NewColorHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
						Level: slogConfig,
					})
					slogger = slog.New(slogHandler)
					log     = logr.FromSlogHandler(slogHandler)
					ctx     = cmd.Context()
				)

				routes, rest, err := weave.FromArgs(args)
				if err != nil {
					return fmt.Errorf("failed to parse routes: %w", err)
				}

				if len(rest) > 0 {
					return fmt.Errorf("unexpected argument %q", rest[0])
				}

				if len(routes) == 0 {
					return errors.New("no routes have been provided, use -h or --help for more information")
				}

				for _, route := range routes {
					log.Info("routing", "src", route.Src.String(), "dest", route.Dest.String())
				}

				// Partition routes by the socket address they listen
				// on. Resolution happens once, here; a source address
				// that does not resolve costs only its own listener.
				groups := map[string][]*weave.Route{}
				for _, route := range routes {
					addr, err := net.ResolveTCPAddr("tcp", route.Src.Addr)
					if err != nil {
						log.Error(err, "cannot resolve listen address", "src", route.Src.String())
						continue
					}

					groups[addr.String()] = append(groups[addr.String()], route)
				}

				var (
					client = &http.Client{
						Timeout: timeout,
					}
					eg, egctx = errgroup.WithContext(ctx)
					listening = 0
				)
				for addr, routes := range groups {
					addr := addr
					srv := &http.Server{
						ReadHeaderTimeout: readHeaderTimeout,
						BaseContext: func(_ net.Listener) context.Context {
							return ctx
						},
						ErrorLog: slog.NewLogLogger(slogHandler, slog.LevelError),
						Handler: &weave.Handler{
							Addr:    addr,
							Matcher: weave.NewMatcher(routes),
							Client:  client,
							Log:     slogger,
						},
					}

					lis, err := net.Listen("tcp", addr)
					if err != nil {
						log.Error(err, "failed to listen", "addr", addr)
						continue
					}

					listening++

					eg.Go(func() error {
						<-egctx.Done()
						return srv.Shutdown(context.WithoutCancel(egctx))
					})

					eg.Go(func() error {
						// A listener's accept loop failing stops only
						// that listener; its siblings keep serving.
						if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
							log.Error(err, "server exited", "addr", addr)
						}
						return nil
					})
				}

				if listening == 0 {
					return errors.New("no listeners could be started")
				}

				if err := eg.Wait(); err != nil {
					return err
				}

				return ctx.Err()
			},
		}
	)

	cmd.Flags().BoolP("help", "h", false, "Help for "+cmd.Name())
	cmd.Flags().Bool("version", false, "Version for "+cmd.Name())
	cmd.SetVersionTemplate("{{ .Name }}{{ .Version }}")
	slogConfig.AddFlags(cmd.Flags())

	cmd.Flags().DurationVar(&timeout, "timeout", time.Second*30, "Proxied request timeout")
	cmd.Flags().DurationVar(&readHeaderTimeout, "read-header-timeout", time.Second*5, "Inbound request header timeout")

	return cmd
}
