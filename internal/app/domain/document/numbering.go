package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Prefix returns the number prefix for a document type.
func Prefix(t Type) string {
	switch t {
	case TypeInvoice:
		return "INV"
	case TypeQuote:
		return "QUO"
	case TypeDelivery:
		return "DEL"
	case TypeProforma:
		return "PRO"
	default:
		return "DOC"
	}
}

// NextNumber derives the number following last, the most recent number issued
// for the same company and type. An empty or unparseable last number starts
// the sequence at 1.
func NextNumber(t Type, last string, now time.Time) string {
	next := 1
	if last != "" {
		if idx := strings.LastIndex(last, "-"); idx >= 0 {
			if n, err := strconv.Atoi(last[idx+1:]); err == nil && n >= 0 {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%d-%03d", Prefix(t), now.Year(), next)
}

// FallbackNumber is used when the previous number cannot be looked up. It is
// built from the last six digits of the unix-millisecond timestamp.
func FallbackNumber(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return fmt.Sprintf("DOC-%d-%s", now.Year(), ms)
}
