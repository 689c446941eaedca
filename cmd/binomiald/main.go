// binomiald serves binomial sampling profiles over gRPC.
package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"

	flags "github.com/jessevdk/go-flags"
	"google.golang.org/grpc"

	"github.com/xtding233/fastbinomial/internal/config"
	"github.com/xtding233/fastbinomial/internal/rpcserver"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) {
			if fe.Type == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := loadConfig(args)
	if err != nil {
		return err
	}
	if opts.LogFile != "" {
		if err := initLogRotator(opts.LogFile); err != nil {
			return err
		}
		defer logRotator.Close()
	}
	if err := parseAndSetDebugLevels(opts.DebugLevel); err != nil {
		return err
	}

	ctx := shutdownListener()

	loader := config.NewLoader(opts.ConfigDir)
	srv := rpcserver.New(opts.Profile)
	overrides := opts.overrides()
	if err := syncProfiles(loader, srv, overrides, nil); err != nil {
		bnmdLog.Errorf("Loading profiles: %v", err)
	}
	if !slices.Contains(srv.Profiles(), opts.Profile) {
		return fmt.Errorf("profile %q could not be loaded from %s", opts.Profile, loader.Paths().Dir())
	}
	bnmdLog.Infof("Loaded profiles %v", srv.Profiles())

	if !opts.NoWatch {
		w, err := config.NewFileWatcher(loader.Paths(), config.DefaultDebounce, func(changed []string) {
			if err := syncProfiles(loader, srv, overrides, changed); err != nil {
				bnmdLog.Errorf("Reloading profiles: %v", err)
				return
			}
			bnmdLog.Infof("Reloaded profiles %v", changed)
		})
		if err != nil {
			return err
		}
		w.Start()
		defer w.Stop()
	}

	lis, err := net.Listen("tcp", opts.Listen)
	if err != nil {
		return err
	}
	gs := grpc.NewServer()
	srv.Register(gs)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- gs.Serve(lis)
	}()
	bnmdLog.Infof("Serving %s on %s", rpcserver.ServiceName, lis.Addr())

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}
	srv.Shutdown()
	gs.GracefulStop()
	bnmdLog.Info("Shutdown complete")
	return nil
}
