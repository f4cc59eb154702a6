package providers

import (
	"github.com/superodds/oddscollector/internal/collector/providers/betmgm"
	"github.com/superodds/oddscollector/internal/collector/providers/mirror"
	"github.com/superodds/oddscollector/internal/collector/providers/sportingbet"
	"github.com/superodds/oddscollector/internal/collector/providers/superbet"
	"github.com/superodds/oddscollector/internal/pkg/config"
	"github.com/superodds/oddscollector/internal/pkg/pipeline"
)

func init() {
	Register("sportingbet", func(cfg *config.Config, resolver *mirror.Resolver) pipeline.Provider {
		return sportingbet.New(cfg.Providers.Sportingbet, resolver)
	})
	Register("superbet", func(cfg *config.Config, _ *mirror.Resolver) pipeline.Provider {
		return superbet.New(cfg.Providers.Superbet)
	})
	Register("betmgm", func(cfg *config.Config, _ *mirror.Resolver) pipeline.Provider {
		return betmgm.New(cfg.Providers.BetMGM)
	})
}
