package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Strategy finds a distribution amount in one known page layout.
// ok is false when the layout is absent or its value does not parse.
type Strategy interface {
	Name() string
	TryExtract(doc *Document) (amount decimal.Decimal, ok bool)
}

// DefaultStrategies returns the known layouts in priority order
func DefaultStrategies() []Strategy {
	return []Strategy{
		LabeledBlock{},
		InlineListItem{},
		NewDataLayer(),
	}
}

// LatestDistributionLabels are the indicator captions that introduce the amount.
var LatestDistributionLabels = []string{
	"Último Rendimento",
	"Ultimo Rendimento",
	"Último Dividendo",
	"Ultimo Dividendo",
}

var foldedLabels = func() map[string]bool {
	m := make(map[string]bool, len(LatestDistributionLabels))
	for _, label := range LatestDistributionLabels {
		m[foldLabel(label)] = true
	}
	return m
}()

// foldLabel lowercases, strips diacritics and collapses whitespace
func foldLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// LabeledBlock reads the indicator box layout:
//
//	<div class="indicators__box"><p>Último Rendimento</p><p><b>R$ 0,85</b></p></div>
type LabeledBlock struct{}

func (LabeledBlock) Name() string { return "labeled_block" }

func (LabeledBlock) TryExtract(doc *Document) (decimal.Decimal, bool) {
	dom, err := doc.DOM()
	if err != nil {
		return decimal.Zero, false
	}

	var (
		amount decimal.Decimal
		found  bool
	)
	dom.Find("div.indicators__box").EachWithBreak(func(_ int, box *goquery.Selection) bool {
		label := box.ChildrenFiltered("p").First()
		if label.Length() == 0 || !foldedLabels[foldLabel(label.Text())] {
			return true
		}

		value := label.NextAll().Find("b").First()
		if value.Length() == 0 {
			return true
		}

		parsed, err := ParseAmount(value.Text())
		if err != nil {
			// The first matching box decides, like the layout it mirrors
			return false
		}
		amount, found = parsed, true
		return false
	})

	return amount, found
}

// InlineListItem reads the compact list layout:
//
//	<li data-row="ultimoRendimento">R$ 0,85</li>
type InlineListItem struct{}

func (InlineListItem) Name() string { return "inline_list_item" }

func (InlineListItem) TryExtract(doc *Document) (decimal.Decimal, bool) {
	dom, err := doc.DOM()
	if err != nil {
		return decimal.Zero, false
	}

	var (
		amount decimal.Decimal
		found  bool
	)
	dom.Find("li[data-row]").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		row, _ := li.Attr("data-row")
		if !strings.EqualFold(row, "ultimoRendimento") {
			return true
		}

		text := strings.TrimSpace(li.Text())
		if !strings.HasPrefix(text, "R$") {
			return true
		}

		parsed, err := ParseAmount(strings.TrimPrefix(text, "R$"))
		if err != nil {
			return false
		}
		amount, found = parsed, true
		return false
	})

	return amount, found
}

var dataLayerPattern = regexp.MustCompile(`(?i)"(?:lastdividend|ur_valor|pr_valor|avgdividend)"\s*:\s*([0-9]+(?:[.,][0-9]+)?)`)

// DefaultDataLayerMax is the largest plausible per-share distribution. Larger
// values under the data-layer keys are yields or rates, not currency amounts.
var DefaultDataLayerMax = decimal.NewFromInt(10)

// DataLayer reads analytics data-layer keys embedded in page scripts:
//
//	"lastdividend": 0.85
//
// Only the first key occurrence is considered. Values above Max are rejected.
type DataLayer struct {
	Max decimal.Decimal
}

// NewDataLayer returns a DataLayer bounded by DefaultDataLayerMax
func NewDataLayer() DataLayer {
	return DataLayer{Max: DefaultDataLayerMax}
}

func (DataLayer) Name() string { return "data_layer" }

func (s DataLayer) TryExtract(doc *Document) (decimal.Decimal, bool) {
	match := dataLayerPattern.FindStringSubmatch(doc.Raw())
	if match == nil {
		return decimal.Zero, false
	}

	amount, err := ParseAmount(match[1])
	if err != nil {
		return decimal.Zero, false
	}
	if amount.GreaterThan(s.Max) {
		return decimal.Zero, false
	}
	return amount, true
}
