package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hwcer/coschan"
	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/cosgo/logger"
	"github.com/spf13/cobra"
)

var serveConfigFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the configured services and echo every message back",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveConfigFlag == "" {
			return fmt.Errorf("--config flag is required")
		}
		cfg, err := coschan.LoadConfig(serveConfigFlag)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		loop := sockets.NewLoop(context.Background())
		srv, err := coschan.Start(loop, cfg)
		if err != nil {
			_ = loop.Close()
			return err
		}
		srv.OnAccept(func(ch sockets.Channel) {
			logger.Trace("%v channel %v accepted from %v", ch.Protocol(), ch.Id(), ch.RemoteAddress())
			ch.OnRead(func(data []byte) {
				if err := ch.Send(data); err != nil {
					logger.Alert("channel %v echo error:%v", ch.Id(), err)
				}
			})
			ch.OnError(func(ch sockets.Channel, code int) {
				logger.Trace("%v channel %v closed:%v", ch.Protocol(), ch.Id(), sockets.ErrCodeText(code))
			})
		})
		loop.RunContext(ctx, sockets.Options.UpdateInterval, srv)
		srv.Dispose()
		return loop.Close()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigFlag, "config", "c", "", "config file (.toml, .yaml)")
}
