package parse

import (
	"regexp"
	"sort"
	"strings"
)

// Sentinel values returned when store identity extraction fails.
const (
	UnknownBrand    = "Unknown Brand"
	UnknownLocation = "Unknown Location"
)

// brandScanLines is how many leading lines are searched for a brand name.
const brandScanLines = 5

// BrandMatchPolicy selects how brand names are matched against header lines.
type BrandMatchPolicy int

const (
	// MatchSubstringFirst takes the first brand whose lowercase form appears
	// anywhere in a line, in set iteration order. This reproduces the
	// historical behavior and can misfire when one brand name is a substring
	// of another.
	MatchSubstringFirst BrandMatchPolicy = iota
	// MatchWordBoundary requires the brand to appear on a word boundary and
	// prefers the longest matching brand on a line.
	MatchWordBoundary
)

// StoreDetails is the store identity derived from the receipt header.
type StoreDetails struct {
	BrandName     string `json:"brand_name"`
	StoreName     string `json:"store_name"`
	StoreAddress  string `json:"store_address"`
	FullStoreName string `json:"full_store_name"`
}

// Found reports whether a known brand was detected.
func (s StoreDetails) Found() bool {
	return s.BrandName != UnknownBrand
}

var addressRe = regexp.MustCompile(`(?i)\b(SHOP|MALL|CENTRE|CENTER|STREET|RD|ROAD|AVE|AVENUE)\b`)

// ExtractStoreDetails scans the first few lines of the OCR text for a known
// brand. brands maps the lowercase form to the canonical brand name. On a
// match, the following line is taken as the store name and the next three
// lines are searched for an address. Without a match the sentinels are
// returned and the caller treats the receipt as unreadable.
func ExtractStoreDetails(fullText string, brands map[string]string, policy BrandMatchPolicy) StoreDetails {
	details := StoreDetails{
		BrandName: UnknownBrand,
		StoreName: UnknownLocation,
	}

	lines := splitLines(fullText)
	limit := brandScanLines
	if len(lines) < limit {
		limit = len(lines)
	}

	brandLine := -1
	for i := 0; i < limit; i++ {
		canonical, ok := matchBrand(strings.ToLower(lines[i]), brands, policy)
		if !ok {
			continue
		}
		details.BrandName = canonical
		brandLine = i
		break
	}

	if brandLine >= 0 {
		if brandLine+1 < len(lines) {
			details.StoreName = lines[brandLine+1]
		}
		for i := brandLine + 2; i <= brandLine+4 && i < len(lines); i++ {
			if addressRe.MatchString(lines[i]) {
				details.StoreAddress = lines[i]
				break
			}
		}
	}

	details.FullStoreName = strings.TrimSpace(details.BrandName + " " + details.StoreName)
	return details
}

// matchBrand finds a brand in one lowercased line according to the policy.
func matchBrand(line string, brands map[string]string, policy BrandMatchPolicy) (string, bool) {
	switch policy {
	case MatchWordBoundary:
		best := ""
		canonical := ""
		for lower, canon := range brands {
			if lower == "" || len(lower) <= len(best) {
				continue
			}
			if matchesOnWordBoundary(line, lower) {
				best = lower
				canonical = canon
			}
		}
		return canonical, best != ""
	default:
		// Iterate in sorted order so the first-match behavior is
		// deterministic across runs.
		for _, lower := range sortedKeys(brands) {
			if lower != "" && strings.Contains(line, lower) {
				return brands[lower], true
			}
		}
		return "", false
	}
}

func matchesOnWordBoundary(line, brand string) bool {
	for start := 0; ; {
		idx := strings.Index(line[start:], brand)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(brand)
		if (idx == 0 || !isWordChar(line[idx-1])) && (end == len(line) || !isWordChar(line[end])) {
			return true
		}
		start = idx + 1
	}
}

func sortedKeys(brands map[string]string) []string {
	keys := make([]string, 0, len(brands))
	for k := range brands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
