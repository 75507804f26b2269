package commands

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Giulio2002/randomx"
)

func NewBenchCommand(cfg *Config) *cobra.Command {
	var (
		count       int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure pipelined hash throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if count < 1 {
				return fmt.Errorf("count must be at least 1")
			}
			randomx.InitMetrics()
			if metricsAddr != "" {
				stop, err := serveMetrics(metricsAddr, cfg.logger())
				if err != nil {
					return err
				}
				defer stop()
			}

			setup := time.Now()
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.Close()) }()
			setupTook := time.Since(setup)

			took, err := runBench(s.vm, count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "engine: %s  mode: %s  flags: %s\n", randomx.EngineName(), s.vm.Mode(), s.vm.Flags())
			fmt.Fprintf(out, "setup:  %s\n", setupTook.Round(time.Millisecond))
			fmt.Fprintf(out, "hashes: %d in %s (%.1f H/s)\n", count, took.Round(time.Millisecond), float64(count)/took.Seconds())
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1000, "Number of hashes")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	return cmd
}

// runBench hashes count nonces through the pipeline.
func runBench(vm *randomx.VM, count int) (time.Duration, error) {
	input := make([]byte, 76)
	nonce := func(i int) []byte {
		binary.LittleEndian.PutUint32(input[39:43], uint32(i))
		return input
	}

	began := time.Now()
	if err := vm.HashFirst(nonce(0)); err != nil {
		return 0, err
	}
	for i := 1; i < count; i++ {
		if _, err := vm.HashNext(nonce(i)); err != nil {
			return 0, err
		}
	}
	if _, err := vm.HashLast(); err != nil {
		return 0, err
	}
	return time.Since(began), nil
}

func serveMetrics(addr string, log *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
