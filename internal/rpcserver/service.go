// Package rpcserver serves generator profiles over gRPC. Messages are
// google.protobuf.Struct values so the service needs no generated code:
//
//	Draw      {profile?, n, n_shape?, p?, p_shape?}  -> {samples, shape}
//	Summarize {profile?, n, p?, trials}             -> {trials, mean, variance, stddev, p50, p90, p99}
package rpcserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/fastbinomial/internal/config"
	"github.com/xtding233/fastbinomial/internal/errkind"
	"github.com/xtding233/fastbinomial/internal/generator"
	"github.com/xtding233/fastbinomial/internal/stats"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fastbinomial.v1.Sampler"

const (
	drawMethod      = "/" + ServiceName + "/Draw"
	summarizeMethod = "/" + ServiceName + "/Summarize"
)

// SamplerServer is the server API of the Sampler service.
type SamplerServer interface {
	Draw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Summarize(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func drawHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SamplerServer).Draw(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: drawMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SamplerServer).Draw(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func summarizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SamplerServer).Summarize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: summarizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SamplerServer).Summarize(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the Sampler service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SamplerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Draw", Handler: drawHandler},
		{MethodName: "Summarize", Handler: summarizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fastbinomial/v1/sampler",
}

// profile is one generator and the limits its requests are held to. The
// generator is not safe for concurrent use, so draws serialize on mu.
type profile struct {
	mu     sync.Mutex
	gen    *generator.Generator
	limits config.Limits
}

// Server implements SamplerServer over a set of named profiles.
type Server struct {
	defaultProfile string
	health         *health.Server

	mu       sync.RWMutex
	profiles map[string]*profile
}

var _ SamplerServer = (*Server)(nil)

// New creates a Server. Requests without a profile use defaultProfile.
func New(defaultProfile string) *Server {
	if defaultProfile == "" {
		defaultProfile = config.DefaultProfile
	}
	s := &Server{
		defaultProfile: defaultProfile,
		health:         health.NewServer(),
		profiles:       make(map[string]*profile),
	}
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Register adds the Sampler and health services to gs.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&ServiceDesc, s)
	healthpb.RegisterHealthServer(gs, s.health)
}

// SetProfile installs or replaces the generator behind name. Requests in
// flight on a replaced generator finish on it.
func (s *Server) SetProfile(name string, g *generator.Generator, limits config.Limits) {
	s.mu.Lock()
	s.profiles[name] = &profile{gen: g, limits: limits}
	s.mu.Unlock()
	log.Debugf("Profile %q installed (algorithm %v, block size %d)", name, g.Algorithm(), g.BlockSize())
	s.updateHealth()
}

// RemoveProfile drops name if present.
func (s *Server) RemoveProfile(name string) {
	s.mu.Lock()
	delete(s.profiles, name)
	s.mu.Unlock()
	log.Debugf("Profile %q removed", name)
	s.updateHealth()
}

// Profiles returns the installed profile names, sorted.
func (s *Server) Profiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown marks every service as not serving.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

// updateHealth reports SERVING while the default profile is installed.
func (s *Server) updateHealth() {
	s.mu.RLock()
	_, ok := s.profiles[s.defaultProfile]
	s.mu.RUnlock()
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
	s.health.SetServingStatus("", st)
}

func (s *Server) lookup(req *structpb.Struct) (string, *profile, error) {
	name, err := decodeProfile(req)
	if err != nil {
		return "", nil, err
	}
	if name == "" {
		name = s.defaultProfile
	}
	s.mu.RLock()
	p, ok := s.profiles[name]
	s.mu.RUnlock()
	if !ok {
		return name, nil, fmt.Errorf("%w: %q", config.ErrUnknownProfile, name)
	}
	return name, p, nil
}

// Draw samples for n with p, or with the profile's cached p when p is absent.
func (s *Server) Draw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	name, p, err := s.lookup(req)
	if err != nil {
		return nil, toStatus("Draw", err)
	}
	n, err := decodeCounts(req, p.limits.MaxElements)
	if err != nil {
		return nil, toStatus("Draw", err)
	}
	probs, err := decodeProbs(req, p.limits.MaxElements)
	if err != nil {
		return nil, toStatus("Draw", err)
	}

	p.mu.Lock()
	r, err := p.gen.Draw(n, probs)
	p.mu.Unlock()
	if err != nil {
		return nil, toStatus("Draw", err)
	}
	log.Tracef("Draw on %q: shape %v", name, n.Shape())
	return encodeResult(r), nil
}

// Summarize runs a Monte Carlo batch of trials draws for a scalar n and
// returns its summary statistics.
func (s *Server) Summarize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	name, p, err := s.lookup(req)
	if err != nil {
		return nil, toStatus("Summarize", err)
	}
	nv := field(req, fieldN)
	if nv == nil {
		return nil, toStatus("Summarize", fmt.Errorf("%w: %s is required", errMalformed, fieldN))
	}
	n, err := decodeInt(nv, fieldN)
	if err != nil {
		return nil, toStatus("Summarize", err)
	}
	probs, err := decodeProbs(req, 1)
	if err != nil {
		return nil, toStatus("Summarize", err)
	}
	if probs.IsArray() {
		return nil, toStatus("Summarize", fmt.Errorf("%w: %s must be a number", errMalformed, fieldP))
	}
	tv := field(req, fieldTrials)
	if tv == nil {
		return nil, toStatus("Summarize", fmt.Errorf("%w: %s is required", errMalformed, fieldTrials))
	}
	trials, err := decodeInt(tv, fieldTrials)
	if err != nil {
		return nil, toStatus("Summarize", err)
	}
	if trials > int64(p.limits.MaxTrials) {
		return nil, toStatus("Summarize", &limitError{what: fieldTrials, got: int(trials), limit: p.limits.MaxTrials})
	}

	p.mu.Lock()
	st, err := stats.RunMonteCarlo(p.gen, n, probs, int(trials))
	p.mu.Unlock()
	if err != nil {
		return nil, toStatus("Summarize", err)
	}
	log.Tracef("Summarize on %q: %d trials of n=%d", name, trials, n)
	return encodeStats(st), nil
}

// toStatus maps error kinds onto gRPC codes.
func toStatus(method string, err error) error {
	var (
		code  codes.Code
		limit *limitError
	)
	switch {
	case errors.As(err, &limit):
		code = codes.ResourceExhausted
	case errors.Is(err, config.ErrUnknownProfile):
		code = codes.NotFound
	case errors.Is(err, errkind.ErrMissingProbability):
		code = codes.FailedPrecondition
	case errors.Is(err, errkind.ErrShapeMismatch), errors.Is(err, errkind.ErrConfiguration):
		code = codes.InvalidArgument
	default:
		code = codes.Internal
	}
	log.Debugf("%s failed: %v (%v)", method, err, code)
	return status.Error(code, err.Error())
}
