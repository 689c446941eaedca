package main

import (
	"errors"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/xtding233/fastbinomial/internal/bitsource"
	"github.com/xtding233/fastbinomial/internal/config"
)

const (
	defaultConfigDir  = "configs"
	defaultListen     = "127.0.0.1:9119"
	defaultDebugLevel = "info"
)

// options are the daemon's command line flags.
type options struct {
	ConfigDir  string `short:"C" long:"configdir" description:"Directory holding generators/<profile>.yaml"`
	Profile    string `short:"p" long:"profile" description:"Profile used by requests that name none"`
	Listen     string `short:"l" long:"listen" description:"Address to serve gRPC on"`
	LogFile    string `long:"logfile" description:"Also write logs to this file, rotated at 10 MiB"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	Algorithm  string `long:"algorithm" description:"Override the bit source of every profile (fast-chaotic, mersenne-twister)"`
	BlockSize  int    `long:"blocksize" description:"Override the block size of every profile"`
	Workers    int    `long:"workers" description:"Override the parallel worker count of every profile"`
	NoWatch    bool   `long:"nowatch" description:"Do not reload profiles when their files change"`
}

// loadConfig parses args over the defaults. A help request is returned as a
// *flags.Error of type flags.ErrHelp.
func loadConfig(args []string) (*options, error) {
	opts := options{
		ConfigDir:  defaultConfigDir,
		Profile:    config.DefaultProfile,
		Listen:     defaultListen,
		DebugLevel: defaultDebugLevel,
	}
	parser := flags.NewParser(&opts, flags.Default)
	rest, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", rest)
	}

	if opts.Algorithm != "" {
		if _, err := bitsource.ParseAlgorithm(opts.Algorithm); err != nil {
			return nil, err
		}
	}
	if opts.BlockSize < 0 {
		return nil, errors.New("--blocksize must not be negative")
	}
	if opts.Workers < 0 {
		return nil, errors.New("--workers must not be negative")
	}
	if opts.Profile == "" {
		return nil, errors.New("--profile must not be empty")
	}
	if _, err := os.Stat(opts.ConfigDir); err != nil {
		return nil, fmt.Errorf("config directory: %w", err)
	}
	return &opts, nil
}

// overrides turns the set override flags into config.Overrides.
func (o *options) overrides() config.Overrides {
	var ov config.Overrides
	if o.Algorithm != "" {
		alg := o.Algorithm
		ov.Algorithm = &alg
	}
	if o.BlockSize > 0 {
		bs := o.BlockSize
		ov.BlockSize = &bs
	}
	if o.Workers > 0 {
		w := o.Workers
		ov.Workers = &w
	}
	return ov
}
