package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// ReceiptDetails holds the header and footer fields extracted from the full
// text blob, independent of the item table. String fields are empty when the
// pattern did not match; VAT and total are nil when absent, so a printed
// zero remains distinguishable from a missing value.
type ReceiptDetails struct {
	InvoiceNumber string   `json:"invoice_number,omitempty"`
	Date          string   `json:"date,omitempty"`
	Time          string   `json:"time,omitempty"`
	WaiterName    string   `json:"waiter_name,omitempty"`
	TableNumber   string   `json:"table_number,omitempty"`
	VATAmount     *float64 `json:"vat_amount,omitempty"`
	TotalAmount   *float64 `json:"total_amount,omitempty"`
}

var (
	invoiceRe  = regexp.MustCompile(`(?i)(?:PRO-FORMA )?INVOICE:?#?(\d+)`)
	receiptRe  = regexp.MustCompile(`(?i)RECEIPT#?(\d+)`)
	proFormaRe = regexp.MustCompile(`(?i)PRO-FORMA INVOICE:(\d+)`)
	dateRe     = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)
	timeRe     = regexp.MustCompile(`(?i)TIME:(.+?)(?:\n|$)`)
	waiterRe   = regexp.MustCompile(`(?i)WAITER:?(.+?)(?:\(|\n|$)`)
	tableRe    = regexp.MustCompile(`(?i)TABLE:?(\d+)`)
	vatRe      = regexp.MustCompile(`(?i)VAT \d+% \(already included\) (\d+\.\d{2})`)
	totalRe    = regexp.MustCompile(`(?i)Bill Total (\d+\.\d{2})`)
)

// ExtractReceiptDetails applies the header/footer patterns to the whole
// text. Each field is independent; a missing field never affects another.
func ExtractReceiptDetails(fullText string) ReceiptDetails {
	var details ReceiptDetails

	for _, re := range []*regexp.Regexp{invoiceRe, receiptRe, proFormaRe} {
		if m := re.FindStringSubmatch(fullText); m != nil {
			details.InvoiceNumber = m[1]
			break
		}
	}
	if m := dateRe.FindStringSubmatch(fullText); m != nil {
		details.Date = m[1]
	}
	if m := timeRe.FindStringSubmatch(fullText); m != nil {
		details.Time = strings.TrimSpace(m[1])
	}
	if m := waiterRe.FindStringSubmatch(fullText); m != nil {
		details.WaiterName = strings.TrimSpace(m[1])
	}
	if m := tableRe.FindStringSubmatch(fullText); m != nil {
		details.TableNumber = m[1]
	}
	if m := vatRe.FindStringSubmatch(fullText); m != nil {
		details.VATAmount = parseAmount(m[1])
	}
	if m := totalRe.FindStringSubmatch(fullText); m != nil {
		details.TotalAmount = parseAmount(m[1])
	}

	return details
}

func parseAmount(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
