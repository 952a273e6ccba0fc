// Command authgate-server starts the AuthGate HTTP and gRPC servers.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/authgate/internal/config"
	grpcserver "github.com/and161185/authgate/internal/server/grpc"
	httpserver "github.com/and161185/authgate/internal/server/http"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownGrace = 5 * time.Second

// main loads configuration, builds the auth core and serves HTTP and gRPC until signalled.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		// logger settings come from cfg, so this one is a bare production logger
		l, _ := zap.NewProduction()
		l.Fatal("config", zap.Error(err))
	}

	logger := newLogger(cfg.Dev)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("http", cfg.HTTPAddr),
		zap.String("grpc", cfg.GRPCAddr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}
	defer a.Close()

	errCh := make(chan error, 2)

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		router := httpserver.NewRouter(a.gate, logger,
			httpserver.WithMetrics(a.registry),
			httpserver.WithCORSOrigin(cfg.CORSOrigin),
		)
		httpSrv = &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("listening (HTTP)", zap.String("addr", cfg.HTTPAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcSrv, err = newGRPCServer(cfg, a, logger)
		if err != nil {
			logger.Fatal("grpc server", zap.Error(err))
		}
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("listen", zap.Error(err))
		}
		go func() {
			logger.Info("listening (gRPC)", zap.String("addr", cfg.GRPCAddr), zap.Bool("tls", cfg.TLSCert != ""))
			errCh <- grpcSrv.Serve(lis)
		}()
	}

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		exitCode = 1
	}

	shutdown(httpSrv, grpcSrv, logger)
	logger.Info("shutdown complete")
	if exitCode != 0 {
		_ = logger.Sync()
		os.Exit(exitCode)
	}
}

func newLogger(dev bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func newGRPCServer(cfg config.Config, a *app, logger *zap.Logger) (*grpc.Server, error) {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
		),
	}
	if cfg.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("gRPC without TLS; bearer tokens travel in clear text")
	}

	s := grpc.NewServer(opts...)
	grpcserver.RegisterAuthGateServer(s, grpcserver.New(a.gate))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}
	return s, nil
}

// shutdown stops both servers, forcing them after shutdownGrace.
func shutdown(httpSrv *http.Server, grpcSrv *grpc.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
			_ = httpSrv.Close()
		}
	}
	if grpcSrv != nil {
		done := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			grpcSrv.Stop()
		}
	}
}
