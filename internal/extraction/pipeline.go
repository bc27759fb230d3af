package extraction

import (
	"github.com/aristath/fiis/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Pipeline runs strategies in order and returns the first amount found
type Pipeline struct {
	strategies []Strategy
	log        zerolog.Logger
}

// NewPipeline creates a pipeline; with no strategies it uses DefaultStrategies
func NewPipeline(log zerolog.Logger, strategies ...Strategy) *Pipeline {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Pipeline{
		strategies: strategies,
		log:        log.With().Str("component", "extraction").Logger(),
	}
}

// Strategies returns the strategy names in the order they are tried
func (p *Pipeline) Strategies() []string {
	names := make([]string, 0, len(p.strategies))
	for _, s := range p.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Extract returns the latest distribution per share found in document, or an
// *domain.ExtractionError when every strategy comes up empty.
func (p *Pipeline) Extract(document string, ticker string) (decimal.Decimal, error) {
	doc := NewDocument(document)

	for _, strategy := range p.strategies {
		amount, ok := strategy.TryExtract(doc)
		if !ok {
			continue
		}
		p.log.Debug().
			Str("ticker", ticker).
			Str("strategy", strategy.Name()).
			Str("amount", amount.String()).
			Msg("Distribution extracted")
		return amount, nil
	}

	return decimal.Zero, &domain.ExtractionError{Ticker: ticker}
}
