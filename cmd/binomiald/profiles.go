package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/xtding233/fastbinomial/internal/config"
	"github.com/xtding233/fastbinomial/internal/generator"
	"github.com/xtding233/fastbinomial/internal/rpcserver"
)

// profileSet is what syncProfiles installs into. *rpcserver.Server
// implements it.
type profileSet interface {
	SetProfile(name string, g *generator.Generator, limits config.Limits)
	RemoveProfile(name string)
	Profiles() []string
}

var _ profileSet = (*rpcserver.Server)(nil)

// syncProfiles builds a generator for every changed profile and installs it.
// A nil or default-including changed list rebuilds every profile, since the
// default layer sits under all of them. Profiles whose file is gone are
// removed. A profile that fails to resolve keeps its previous generator; the
// errors are joined and returned.
func syncProfiles(l *config.Loader, set profileSet, o config.Overrides, changed []string) error {
	l.Invalidate()
	onDisk, err := l.Profiles()
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	targets := changed
	if changed == nil || slices.Contains(changed, config.DefaultProfile) {
		targets = onDisk
	}

	var errs []error
	for _, name := range targets {
		if !slices.Contains(onDisk, name) {
			set.RemoveProfile(name)
			continue
		}
		res, err := l.Resolve(name, o)
		if err != nil {
			errs = append(errs, fmt.Errorf("profile %q: %w", name, err))
			continue
		}
		g, err := generator.New(res.Generator)
		if err != nil {
			errs = append(errs, fmt.Errorf("profile %q: %w", name, err))
			continue
		}
		set.SetProfile(name, g, res.Limits)
	}
	for _, name := range set.Profiles() {
		if !slices.Contains(onDisk, name) {
			set.RemoveProfile(name)
		}
	}
	return errors.Join(errs...)
}
