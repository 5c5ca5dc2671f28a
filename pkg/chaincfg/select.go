package chaincfg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anchorcoin/anchord/pkg/core/consensus"
)

var (
	ErrUnknownNetwork  = errors.New("unknown network")
	ErrGenesisMismatch = errors.New("genesis block does not match pinned constants")
)

// New builds the profile for net and runs the genesis self-check with
// hasher. The result is a pure function of net apart from seed timestamps.
// Either error is a configuration-integrity failure; callers must not start
// the node.
func New(net Network, hasher consensus.Hasher) (*Params, error) {
	return newParams(net, hasher, time.Now())
}

func newParams(net Network, hasher consensus.Hasher, now time.Time) (*Params, error) {
	var p Params
	switch net {
	case MainNet:
		p = mainNetParams()
	case TestNet:
		p = testNetParams()
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownNetwork, net)
	}

	if err := p.verifyGenesis(hasher); err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	p.fixedSeeds = materializeSeeds(p.rawFixedSeeds, p.DefaultPort, now)
	return &p, nil
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying p as the selected profile.
func NewContext(ctx context.Context, p *Params) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the profile selected into ctx, or the main network
// profile when none was selected. It never fails.
func FromContext(ctx context.Context) *Params {
	if ctx != nil {
		if p, ok := ctx.Value(ctxKey{}).(*Params); ok && p != nil {
			return p
		}
	}
	return defaultParams()
}

// defaultParams is the unverified main network data.
var defaultParams = sync.OnceValue(func() *Params {
	p := mainNetParams()
	p.fixedSeeds = materializeSeeds(p.rawFixedSeeds, p.DefaultPort, time.Now())
	return &p
})
