package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/samcharles93/lifkit/internal/api"
	"github.com/samcharles93/lifkit/internal/logger"
	"github.com/samcharles93/lifkit/internal/version"
	"github.com/urfave/cli/v3"
)

func serveCmd() *cli.Command {
	var (
		root        string
		addr        string
		readTimeout time.Duration
		squeeze     bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the container browse API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "root",
				Usage:       "directory of containers to serve (defaults to --data-dir)",
				Destination: &root,
			},
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			squeezeFlag(&squeeze),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, config, &addr, &root, &squeeze)
			log := logger.FromContext(ctx)

			provider := api.NewCachedContainerProvider(api.ContainerProviderConfig{
				Root:    root,
				Squeeze: squeeze,
				Logger:  log,
			})
			defer func() {
				if err := provider.Close(); err != nil {
					log.Warn("closing containers", "error", err)
				}
			}()
			server := api.NewServer(provider)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			e.Use(serverHeader(version.UserAgent()))
			server.Register(e)
			log.Info("starting server", "address", addr, "root", root)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

func serverHeader(product string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			c.Response().Header().Set(echo.HeaderServer, product)
			return next(c)
		}
	}
}
