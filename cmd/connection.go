package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/strangelove-ventures/connection-relayer/relayer"
)

var delayPeriod time.Duration

// newChainHandle resolves a configured chain end into a live
// relayer.ChainHandle. Constructing a handle means standing up an RPC
// client, a keyring and a signer for that chain — all of it an external
// collaborator per spec.md §1 — so this package only declares the seam
// and leaves it nil until something wires a concrete chain backend in.
var newChainHandle func(end ChainEndConfig) (relayer.ChainHandle, error)

// restoreClient is the foreign-client counterpart of newChainHandle: the
// same external-collaborator boundary, for the light clients a
// connection handshake reads proofs through.
var restoreClient relayer.RestoreForeignClient

func restoreForeignClients(srcChain, dstChain relayer.ChainHandle, srcClientID, dstClientID string) (aClient, bClient relayer.ForeignClient, err error) {
	if restoreClient == nil {
		return nil, nil, fmt.Errorf("no foreign client backend wired into this build")
	}
	aClient = restoreClient(srcClientID, srcChain, dstChain)
	bClient = restoreClient(dstClientID, dstChain, srcChain)
	return aClient, bClient, nil
}

var connectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Manage ICS-003 connection handshakes",
}

var connectionOpenCmd = &cobra.Command{
	Use:   "open [src-chain-id] [dst-chain-id]",
	Short: "Open a new connection between two configured chains, driving the handshake to completion",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		conn, ok := cfg.find(args[0], args[1])
		if !ok {
			return fmt.Errorf("no connection configured between %s and %s", args[0], args[1])
		}

		if newChainHandle == nil {
			return fmt.Errorf("no chain backend wired into this build")
		}
		srcChain, err := newChainHandle(conn.Src)
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", conn.Src.ChainID, err)
		}
		dstChain, err := newChainHandle(conn.Dst)
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", conn.Dst.ChainID, err)
		}

		aClient, bClient, err := restoreForeignClients(srcChain, dstChain, conn.Src.ClientID, conn.Dst.ClientID)
		if err != nil {
			return err
		}

		period := conn.DelayPeriod
		if delayPeriod > 0 {
			period = delayPeriod
		}

		c, err := relayer.NewConnection(cmd.Context(), aClient, bClient, period, log)
		if err != nil {
			return fmt.Errorf("opening connection: %w", err)
		}

		log.Infow("connection opened", "connection", c.String())
		return nil
	},
}

var addSrcClientID, addDstClientID string

var connectionConfigAddCmd = &cobra.Command{
	Use:   "config-add [src-chain-id] [dst-chain-id]",
	Short: "Add a connection entry to the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if _, ok := cfg.find(args[0], args[1]); ok {
			return fmt.Errorf("a connection between %s and %s is already configured", args[0], args[1])
		}

		cfg.Connections = append(cfg.Connections, ConnectionConfig{
			Src:         ChainEndConfig{ChainID: args[0], ClientID: addSrcClientID},
			Dst:         ChainEndConfig{ChainID: args[1], ClientID: addDstClientID},
			DelayPeriod: delayPeriod,
		})

		if err := saveConfig(cfgFile, cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		log.Infow("connection configured", "src", args[0], "dst", args[1])
		return nil
	},
}

var metricsAddr string

var connectionServeMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve the Prometheus handshake metrics this package records",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		relayer.RegisterMetrics(reg)

		mux := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		log.Infow("serving metrics", "addr", metricsAddr)
		return serveHTTP(metricsAddr, mux)
	},
}

func init() {
	rootCmd.AddCommand(connectionCmd)
	connectionCmd.AddCommand(connectionOpenCmd)
	connectionCmd.AddCommand(connectionConfigAddCmd)
	connectionCmd.AddCommand(connectionServeMetricsCmd)

	connectionOpenCmd.Flags().DurationVar(&delayPeriod, "delay-period", 0, "override the configured delay period")
	connectionConfigAddCmd.Flags().DurationVar(&delayPeriod, "delay-period", 0, "delay period to request when opening this connection")
	connectionConfigAddCmd.Flags().StringVar(&addSrcClientID, "src-client-id", "", "existing client id to reuse on the source chain, if any")
	connectionConfigAddCmd.Flags().StringVar(&addDstClientID, "dst-client-id", "", "existing client id to reuse on the destination chain, if any")
	connectionServeMetricsCmd.Flags().StringVar(&metricsAddr, "addr", ":9090", "address to serve /metrics on")
}

func serveHTTP(addr string, handler http.Handler) error {
	return http.ListenAndServe(addr, handler)
}
