package testing

import (
	"fmt"
	"time"

	"github.com/aristath/fiis/internal/domain"
	"github.com/shopspring/decimal"
)

// NewFundFixtures returns a small portfolio for use in tests
func NewFundFixtures() []domain.FundPosition {
	created := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	return []domain.FundPosition{
		{Ticker: "ABCD11", Quantity: decimal.NewFromInt(100), CreatedAt: created},
		{Ticker: "HGLG11", Quantity: decimal.NewFromInt(25), CreatedAt: created},
		{Ticker: "MXRF11", Quantity: decimal.RequireFromString("1000"), CreatedAt: created},
	}
}

// LabeledBlockPage renders a fund page in the indicator-box layout with the
// given Brazilian-formatted amount ("1,20").
func LabeledBlockPage(amount string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Fund</title></head>
<body>
  <section class="indicators">
    <div class="indicators__box">
      <p>Liquidez Média Diária</p>
      <p><b>1,2 M</b></p>
    </div>
    <div class="indicators__box">
      <p>Último Rendimento</p>
      <p><b>R$ %s</b></p>
    </div>
  </section>
</body>
</html>`, amount)
}

// EmptyPage renders a fund page without any recognizable distribution
func EmptyPage() string {
	return `<!DOCTYPE html><html><body><h1>Fundo não encontrado</h1></body></html>`
}
