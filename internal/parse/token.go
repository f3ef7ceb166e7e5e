package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// TokenKind classifies a single OCR line for the item state machine.
type TokenKind int

const (
	// TokenBlank is an empty or whitespace-only line.
	TokenBlank TokenKind = iota
	// TokenSeparator is a dashed column separator line.
	TokenSeparator
	// TokenSectionStart is the literal "ITEM" line opening the item table.
	TokenSectionStart
	// TokenSectionEnd is a "Bill Excl" line closing the item table.
	TokenSectionEnd
	// TokenInteger is a bare integer, a quantity candidate.
	TokenInteger
	// TokenPrice is a number with exactly two fraction digits.
	TokenPrice
	// TokenText is any other non-empty line, an item name candidate.
	TokenText
)

// Token is the tagged result of classifying one line.
type Token struct {
	Kind  TokenKind
	Int   int
	Price float64
	Text  string
}

var (
	integerRe   = regexp.MustCompile(`^\d+$`)
	priceRe     = regexp.MustCompile(`^\d+\.\d{2}$`)
	separatorRe = regexp.MustCompile(`^-+$`)
	sectionEnd  = "bill excl"
	// Column header lines that follow the ITEM marker.
	columnHeaderRe = regexp.MustCompile(`(?i)QTY|PRICE|VALUE`)
)

// ClassifyLine maps a trimmed OCR line to a tagged token. Classification
// order matters: section markers win over shape-based classes, and the
// integer/price shapes win over free text.
func ClassifyLine(line string) Token {
	line = strings.TrimSpace(line)
	if line == "" {
		return Token{Kind: TokenBlank}
	}
	if strings.EqualFold(line, "ITEM") {
		return Token{Kind: TokenSectionStart, Text: line}
	}
	if strings.Contains(strings.ToLower(line), sectionEnd) {
		return Token{Kind: TokenSectionEnd, Text: line}
	}
	if separatorRe.MatchString(line) {
		return Token{Kind: TokenSeparator, Text: line}
	}
	if integerRe.MatchString(line) {
		n, err := strconv.Atoi(line)
		if err == nil {
			return Token{Kind: TokenInteger, Int: n, Text: line}
		}
	}
	if priceRe.MatchString(line) {
		p, err := strconv.ParseFloat(line, 64)
		if err == nil {
			return Token{Kind: TokenPrice, Price: p, Text: line}
		}
	}
	return Token{Kind: TokenText, Text: line}
}

// isColumnHeader reports whether a line is a table header (QTY/PRICE/VALUE)
// or a dashed separator. Only consulted immediately after the ITEM marker.
func isColumnHeader(line string) bool {
	line = strings.TrimSpace(line)
	return separatorRe.MatchString(line) || columnHeaderRe.MatchString(line)
}

// splitLines splits a text blob into trimmed lines.
func splitLines(fullText string) []string {
	raw := strings.Split(fullText, "\n")
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}
