package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

const DefaultName = "rdstation"

// Resolve picks the logger for name. A provider wins over a bare logger,
// and a caller supplied provider is asked for name directly. The
// returned logger is never nil.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	explicit := provider != nil
	provider, logger = glog.Resolve(name, provider, logger)
	if explicit {
		if named := provider.GetLogger(name); named != nil {
			logger = named
		}
	}
	return provider, glog.Ensure(logger)
}

// Component returns the logger for a named part of the module, e.g.
// "rdstation.node" or "rdstation.jobs".
func Component(provider glog.LoggerProvider, logger glog.Logger, component string) glog.Logger {
	name := DefaultName
	if component = strings.TrimSpace(component); component != "" {
		name += "." + component
	}
	_, resolved := Resolve(name, provider, logger)
	return resolved
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger maps a glog logger to the go-job logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves the logger used by the node job worker and returns
// the matching go-job adapters.
func ResolveForJob(
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(DefaultName+".jobs", provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}
