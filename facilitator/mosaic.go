package facilitator

import (
	"github.com/mosaicdao/go-mosaic"
	"github.com/mosaicdao/go-mosaic/contracts"
)

// Chain bundles one chain's client with its proof provider. The client is
// owned by the composition for the process lifetime.
type Chain struct {
	Client mosaic.ChainClient
	Proofs mosaic.ProofProvider
}

// Mosaic binds the two chains of one deployment and the contract handles on
// them. It is the construction root: build it once, then derive facilitators
// from it.
type Mosaic struct {
	Config    mosaic.Config
	Origin    *Chain
	Auxiliary *Chain

	Gateway         *contracts.Gateway
	CoGateway       *contracts.CoGateway
	OriginAnchor    *contracts.Anchor
	AuxiliaryAnchor *contracts.Anchor
}

// NewMosaic validates cfg, fills polling defaults and binds the four
// contract handles. A malformed address or an unresolvable contract fails
// construction; nothing is dialed lazily later.
func NewMosaic(cfg mosaic.Config, origin, auxiliary *Chain, registry mosaic.ContractRegistry) (*Mosaic, error) {
	if origin == nil || origin.Client == nil {
		return nil, mosaic.InvalidArgumentf("origin chain client", nil)
	}
	if origin.Proofs == nil {
		return nil, mosaic.InvalidArgumentf("origin proof provider", nil)
	}
	if auxiliary == nil || auxiliary.Client == nil {
		return nil, mosaic.InvalidArgumentf("auxiliary chain client", nil)
	}
	if auxiliary.Proofs == nil {
		return nil, mosaic.InvalidArgumentf("auxiliary proof provider", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Sanitize()

	gateway, err := contracts.NewGateway(origin.Client, cfg.Origin.Gateway, registry)
	if err != nil {
		return nil, err
	}
	cogateway, err := contracts.NewCoGateway(auxiliary.Client, cfg.Auxiliary.CoGateway, registry)
	if err != nil {
		return nil, err
	}
	originAnchor, err := contracts.NewAnchor(origin.Client, cfg.Origin.Anchor, registry)
	if err != nil {
		return nil, err
	}
	auxiliaryAnchor, err := contracts.NewAnchor(auxiliary.Client, cfg.Auxiliary.Anchor, registry)
	if err != nil {
		return nil, err
	}

	return &Mosaic{
		Config:          cfg,
		Origin:          origin,
		Auxiliary:       auxiliary,
		Gateway:         gateway,
		CoGateway:       cogateway,
		OriginAnchor:    originAnchor,
		AuxiliaryAnchor: auxiliaryAnchor,
	}, nil
}
