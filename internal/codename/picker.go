package codename

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/greatgiftheist/agent-hq/pkg/metrics"
)

const (
	// DefaultMaxAttempts bounds generation attempts before suffixing.
	DefaultMaxAttempts = 5

	// suffixSpan yields suffixes in [0, 998].
	suffixSpan = 999
)

// GenerateFunc asks an upstream service for one codename candidate.
type GenerateFunc func(ctx context.Context) (string, error)

// Outcome describes how a codename was chosen.
type Outcome struct {
	Codename     string
	Attempts     int
	Collisions   int
	Suffixed     bool
	UsedFallback bool
}

// Picker applies the uniqueness retry policy to a generator.
type Picker struct {
	registry    Registry
	offline     *Offline
	maxAttempts int
	intn        func(n int) int
}

// NewPicker creates a picker. maxAttempts <= 0 uses DefaultMaxAttempts.
func NewPicker(registry Registry, offline *Offline, maxAttempts int) *Picker {
	if offline == nil {
		offline = NewOffline(nil, nil)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Picker{
		registry:    registry,
		offline:     offline,
		maxAttempts: maxAttempts,
		intn:        rand.Intn,
	}
}

// Pick returns a codename that was free at check time. generate may be nil,
// and the first failure of generate switches the remaining attempts to the
// offline generator. When every attempt collides the last candidate gets a
// numeric suffix that is not checked again.
func (p *Picker) Pick(ctx context.Context, generate GenerateFunc) (Outcome, error) {
	var out Outcome
	useOffline := generate == nil
	if useOffline {
		out.UsedFallback = true
	}

	var last string
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		out.Attempts = attempt

		var candidate string
		if !useOffline {
			raw, err := generate(ctx)
			candidate = Clean(raw)
			if err != nil || candidate == "" {
				useOffline = true
				out.UsedFallback = true
				metrics.TextGenFallbacks.WithLabelValues("codename").Inc()
			}
		}
		if useOffline {
			candidate = p.offline.Generate()
		}
		last = candidate

		ok, err := p.registry.IsAvailable(ctx, candidate)
		if err != nil {
			return out, fmt.Errorf("check codename availability: %w", err)
		}
		if ok {
			out.Codename = candidate
			metrics.CodenameOutcomes.WithLabelValues("unique").Inc()
			return out, nil
		}
		out.Collisions++
		metrics.CodenameOutcomes.WithLabelValues("collision").Inc()
	}

	out.Codename = fmt.Sprintf("%s-%d", last, p.intn(suffixSpan))
	out.Suffixed = true
	metrics.CodenameOutcomes.WithLabelValues("suffixed").Inc()
	return out, nil
}
