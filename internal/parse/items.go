package parse

import (
	"log/slog"
	"math"
	"regexp"
	"strings"
)

// LineItem is one purchased item reconstructed from the receipt.
type LineItem struct {
	Name       string  `json:"name" validate:"required"`
	Quantity   int     `json:"quantity" validate:"gt=0"`
	UnitPrice  float64 `json:"unit_price" validate:"gt=0"`
	TotalPrice float64 `json:"total_price" validate:"gt=0"`
}

// ItemsResult is the outcome of scanning the item section.
type ItemsResult struct {
	Items    []LineItem `json:"items"`
	Subtotal float64    `json:"subtotal"`
	// Dropped counts item candidates that were discarded: flushes that
	// failed validation plus partial accumulators abandoned when a new
	// name started.
	Dropped int `json:"dropped"`
}

// itemAccumulator holds the fields of the item currently being built.
// Fields are filled in as token lines arrive and reset after every flush.
type itemAccumulator struct {
	name       string
	hasName    bool
	quantity   int
	hasQty     bool
	unitPrice  float64
	hasUnit    bool
	totalPrice float64
	hasTotal   bool
}

func (a *itemAccumulator) reset() {
	*a = itemAccumulator{}
}

// complete reports whether the accumulator can be flushed: name, quantity
// and unit price present. The total may still be derived.
func (a *itemAccumulator) complete() bool {
	return a.hasName && a.hasQty && a.hasUnit
}

// ExtractItems walks the OCR text line by line and reconstructs the item
// table between the "ITEM" marker and the "Bill Excl" line. Receipts print
// each field on its own line: a name, a bare-integer quantity, a unit price
// and usually a total, both with two decimals. The second price token
// completes an item; a new name auto-completes a total-less predecessor.
func ExtractItems(fullText string) ItemsResult {
	var (
		result    ItemsResult
		current   itemAccumulator
		inSection bool
	)
	result.Items = []LineItem{}

	flush := func() {
		if !current.complete() {
			if current.hasName {
				result.Dropped++
			}
			current.reset()
			return
		}
		if !current.hasTotal {
			current.totalPrice = round2(float64(current.quantity) * current.unitPrice)
		}
		item := LineItem{
			Name:       current.name,
			Quantity:   current.quantity,
			UnitPrice:  current.unitPrice,
			TotalPrice: current.totalPrice,
		}
		current.reset()
		if !validItem(item) {
			slog.Warn("Dropping unparsable item candidate", "name", item.Name,
				"quantity", item.Quantity, "unit_price", item.UnitPrice, "total_price", item.TotalPrice)
			result.Dropped++
			return
		}
		result.Items = append(result.Items, item)
		result.Subtotal += item.TotalPrice
	}

	lines := splitLines(fullText)
	for i := 0; i < len(lines); i++ {
		tok := ClassifyLine(lines[i])

		switch tok.Kind {
		case TokenSectionStart:
			inSection = true
			// Skip the column header lines printed under the marker.
			for i+1 < len(lines) && lines[i+1] != "" && isColumnHeader(lines[i+1]) {
				i++
			}
			continue
		case TokenSectionEnd:
			flush()
			inSection = false
			continue
		}

		if !inSection || tok.Kind == TokenBlank || tok.Kind == TokenSeparator {
			continue
		}

		switch tok.Kind {
		case TokenInteger:
			// Quantities are only captured right after a name.
			if current.hasName && !current.hasQty {
				current.quantity = tok.Int
				current.hasQty = true
			}
		case TokenPrice:
			if !current.hasUnit {
				current.unitPrice = tok.Price
				current.hasUnit = true
			} else if !current.hasTotal {
				current.totalPrice = tok.Price
				current.hasTotal = true
				// The second price token completes the item.
				flush()
			}
		case TokenText:
			// A new name completes a total-less predecessor, or discards
			// a partial one.
			flush()
			current.name = CleanItemName(tok.Text)
			current.hasName = true
		}
	}

	// A pending item at end of text without a "Bill Excl" line is lost.
	if current.hasName {
		result.Dropped++
	}

	return result
}

func validItem(item LineItem) bool {
	if item.Name == "" || item.Quantity <= 0 {
		return false
	}
	for _, v := range []float64{item.UnitPrice, item.TotalPrice} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

var (
	nameJunkRe       = regexp.MustCompile(`[^\w\s()\-]`)
	whitespaceRunRe  = regexp.MustCompile(`\s+`)
	trailingParensRe = regexp.MustCompile(`\s*\(\d+\)\s*$`)
)

// CleanItemName normalizes an OCR item name: strips characters outside
// word/whitespace/parentheses/hyphen, collapses whitespace runs, and drops a
// trailing parenthetical integer such as "Burger (2)". Idempotent.
func CleanItemName(name string) string {
	name = nameJunkRe.ReplaceAllString(name, "")
	name = whitespaceRunRe.ReplaceAllString(name, " ")
	name = trailingParensRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// round2 rounds to two decimal places, the receipt currency precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
