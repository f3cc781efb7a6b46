package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mini-ack/client"
	"mini-ack/config"
	"mini-ack/loadbalance"
	"mini-ack/message"
	"mini-ack/protocol"
	"mini-ack/registry"
	"mini-ack/transport"
)

const clientUsage = "Usage: ackclient -x <data> -t <udp or tcp> -s <ip> -p <port number>\n" +
	"       ackclient -x <data> -t <udp or tcp> --discover"

// openRegistry connects to the discovery registry. Tests replace it.
var openRegistry = func(endpoints []string, dialTimeout time.Duration) (registry.Registry, func() error, error) {
	reg, err := registry.NewEtcdRegistry(endpoints, dialTimeout)
	if err != nil {
		return nil, nil, err
	}
	return reg, reg.Close, nil
}

// RunClient sends one payload and returns the process exit code.
func RunClient(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, newClientCommand(stdout), args, stderr, clientUsage)
}

func newClientCommand(stdout io.Writer) *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "ackclient",
		Short: "Send one number to an ackserver and wait for its acknowledgment",
		Args:  noArgs,
	}

	flags := cmd.Flags()
	flags.StringP("data", "x", "", "payload, 0 to 2147483647")
	flags.StringP("transport", "t", "", "udp or tcp")
	flags.StringP("server", "s", "", "server IPv4 address")
	flags.StringP("port", "p", "", "server port, 1024 to 65535")
	flags.Bool("discover", false, "find the server in the registry instead of -s/-p")
	flags.String("balancer", "", "round_robin or weighted_random, used with --discover")
	flags.Duration("reply-timeout", 0, "how long to wait for the acknowledgment (default 3s)")
	flags.Duration("dial-timeout", 0, "how long to wait for a stream connection (default 5s)")
	addCommonFlags(cmd, v)
	v.BindPFlag("client.discover", flags.Lookup("discover"))
	v.BindPFlag("client.balancer", flags.Lookup("balancer"))
	v.BindPFlag("client.reply_timeout", flags.Lookup("reply-timeout"))
	v.BindPFlag("client.dial_timeout", flags.Lookup("dial-timeout"))

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if err := required(cmd, "data", "transport"); err != nil {
			return err
		}
		data, _ := flags.GetString("data")
		network, _ := flags.GetString("transport")

		payload, err := config.ParsePayload(data)
		if err != nil {
			return err
		}
		kind, err := transport.ParseKind(network)
		if err != nil {
			return err
		}

		cfg, logger, err := loadConfig(cmd, v)
		if err != nil {
			return err
		}
		defer logger.Sync()

		opts := []client.Option{
			client.WithReplyTimeout(cfg.Client.ReplyTimeout),
			client.WithDialTimeout(cfg.Client.DialTimeout),
			client.WithLogger(logger),
		}
		msg := message.New(payload)

		if cfg.Client.Discover {
			if flags.Changed("server") || flags.Changed("port") {
				return protocol.Configf("-s and -p cannot be combined with --discover")
			}
			reg, closeReg, err := openRegistry(cfg.Client.Registry.Endpoints, cfg.Client.Registry.DialTimeout)
			if err != nil {
				return protocol.NewError(protocol.KindResolution, "registry", "", err)
			}
			defer closeReg()

			opts = append(opts,
				client.WithRegistry(reg),
				client.WithBalancer(loadbalance.New(cfg.Client.Balancer)),
			)
			if err := client.NewClient(opts...).SendDiscovered(cmd.Context(), kind, msg); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "success!")
			return nil
		}

		if err := required(cmd, "server", "port"); err != nil {
			return err
		}
		host, _ := flags.GetString("server")
		portStr, _ := flags.GetString("port")
		host, err = config.CanonicalIPv4(host)
		if err != nil {
			return err
		}
		port, err := config.ParsePort(portStr)
		if err != nil {
			return err
		}

		if err := client.NewClient(opts...).SendMessage(cmd.Context(), kind, host, port, msg); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "success!")
		return nil
	}
	return cmd
}
