package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hwcer/coschan"
	"github.com/hwcer/coschan/sockets"
	"github.com/spf13/cobra"
)

var (
	dialProtocolFlag string
	dialAddressFlag  string
	dialMessageFlag  string
	dialCountFlag    int
	dialTimeoutFlag  time.Duration
)

var dialCmd = &cobra.Command{
	Use:   "dial",
	Short: "Connect to a service, send messages and print every reply",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dialAddressFlag == "" {
			return fmt.Errorf("--address flag is required")
		}
		if dialCountFlag <= 0 {
			return fmt.Errorf("--count must be positive")
		}
		protocol, err := sockets.ParseNetworkProtocol(dialProtocolFlag)
		if err != nil {
			return err
		}
		//loop 在 Dispose 之后才关闭, FIN 和 Close 帧需要使用仍然打开的socket
		loop := sockets.NewLoop(context.Background())
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeoutFlag)
		defer cancel()
		service, err := coschan.NewService(loop, protocol)
		if err != nil {
			return err
		}
		ch, err := service.ConnectChannel(dialAddressFlag)
		if err != nil {
			service.Dispose()
			_ = loop.Close()
			return err
		}
		out := cmd.OutOrStdout()
		var replies, code int
		ch.OnRead(func(data []byte) {
			replies++
			fmt.Fprintf(out, "%v: %s\n", replies, data)
			if replies >= dialCountFlag {
				cancel()
			}
		})
		ch.OnError(func(_ sockets.Channel, c int) {
			code = c
			cancel()
		})
		ch.Start()
		for i := 0; i < dialCountFlag; i++ {
			if err = ch.Send([]byte(dialMessageFlag)); err != nil {
				break
			}
		}
		if err == nil {
			loop.RunContext(ctx, sockets.Options.UpdateInterval, service)
		}
		service.Dispose()
		_ = loop.Close()
		switch {
		case err != nil:
			return err
		case code != sockets.ErrCodeSuccess:
			return fmt.Errorf("channel closed: %v", sockets.ErrCodeText(code))
		case replies < dialCountFlag:
			return fmt.Errorf("timeout: %v/%v replies", replies, dialCountFlag)
		}
		return nil
	},
}

func init() {
	dialCmd.Flags().StringVarP(&dialProtocolFlag, "protocol", "p", "tcp", "tcp, kcp or websocket")
	dialCmd.Flags().StringVarP(&dialAddressFlag, "address", "a", "", "host:port, ws:// URL for websocket")
	dialCmd.Flags().StringVarP(&dialMessageFlag, "message", "m", "ping", "message body")
	dialCmd.Flags().IntVarP(&dialCountFlag, "count", "n", 1, "number of messages")
	dialCmd.Flags().DurationVar(&dialTimeoutFlag, "timeout", 10*time.Second, "give up after")
}
