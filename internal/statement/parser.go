// Package statement parses Argentine credit-card statements (Galicia
// Visa/Mastercard layout and anything close enough) into transactions,
// installment data included.
package statement

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"
)

// Item is one movement lifted from a statement. Installment fields are zero
// when the line carries no NN/NN column.
type Item struct {
	Date                  time.Time
	Description           string
	Amount                float64
	Type                  string
	Category              string
	InstallmentCurrent    int
	InstallmentTotal      int
	InstallmentsRemaining int
}

// ExtractText pulls the plain text out of a PDF document.
func ExtractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}

var monthAbbrev = map[string]time.Month{
	"ene": time.January, "feb": time.February, "mar": time.March,
	"abr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "ago": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dic": time.December,
	"jan": time.January, "apr": time.April, "aug": time.August, "dec": time.December,
}

var monthFull = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August,
	"septiembre": time.September, "setiembre": time.September,
	"octubre": time.October, "noviembre": time.November, "diciembre": time.December,
}

var reDateSplit = regexp.MustCompile(`[-/]`)

// parseDateES reads statement dates like "15-Oct-24", "15-10-24" or
// "15/10/2024". Two-digit years land in the 2000s.
func parseDateES(s string) (time.Time, bool) {
	parts := reDateSplit.Split(strings.TrimSpace(s), -1)
	if len(parts) != 3 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}

	var month time.Month
	if m, err := strconv.Atoi(parts[1]); err == nil {
		if m < 1 || m > 12 {
			return time.Time{}, false
		}
		month = time.Month(m)
	} else {
		abbr := strings.ToLower(parts[1])
		if len(abbr) > 3 {
			abbr = abbr[:3]
		}
		var ok bool
		month, ok = monthAbbrev[abbr]
		if !ok {
			return time.Time{}, false
		}
	}

	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}

	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// parseAmount reads Argentine-formatted amounts ("3.423,50", "1234,56",
// "1234.56") into a positive float. Unreadable input yields 0.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "$", ""), " ", ""))
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Abs().Float64()
	return f
}

var (
	reDetalle    = regexp.MustCompile(`(?i)DETALLE\s+DEL\s+CONSUMO`)
	reSectionEnd = regexp.MustCompile(`(?i)TOTAL\s+A\s+PAGAR|IMPUESTO\s+DE\s+SELLOS|INTERESES\s+FINANCIACION|DB\s+IVA|PERCEPCION\s+ING|Plan\s+V:|Cuotas\s+a\s+vencer|TARJETA\s+\d{4}\s+Total`)
	reCharge     = regexp.MustCompile(`(?i)IMPUESTO|INTERES|IVA\s+\d|PERCEPCION|COMISION|CARGO\s+FINANCIERO`)
	reLineDate   = regexp.MustCompile(`^(\d{2}-\w{2,3}-\d{2,4})`)
	reCardPrefix = regexp.MustCompile(`^[*K]\s+`)
	reCuota      = regexp.MustCompile(`\b(\d{1,2})/(\d{2})\b`)
	reLineAmount = regexp.MustCompile(`([\d.,]+)\s*$`)
	reVoucher    = regexp.MustCompile(`\s+\d{4,}\s*$`)
)

// ParseStructured walks the DETALLE DEL CONSUMO section line by line. When no
// statement line matches, a looser regex over the whole text is tried.
func ParseStructured(text string) []Item {
	var items []Item
	inSection := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if reDetalle.MatchString(line) {
			inSection = true
			continue
		}
		if inSection && reSectionEnd.MatchString(line) {
			inSection = false
			continue
		}
		if !inSection {
			continue
		}
		// Financial charges are not consumptions even when they carry a date.
		if reCharge.MatchString(line) {
			continue
		}
		if item, ok := parseLine(line); ok {
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		items = fallbackParse(text)
	}
	return items
}

// parseLine handles the Galicia consumption formats:
//
//	"15-10-24 * MERPAGO*IVMACOGLOBALGROUP 12/12 664719 3.423,50"
//	"23-Nov-25 * MERPAGO*LACOSTEOUTLET 03/06 001298 10.000,00"
//	"20-01-26 K DISNEY PLUS 052084 18.399,00"
func parseLine(line string) (Item, bool) {
	dateMatch := reLineDate.FindStringSubmatch(line)
	if dateMatch == nil {
		return Item{}, false
	}
	date, ok := parseDateES(dateMatch[1])
	if !ok {
		return Item{}, false
	}

	rest := strings.TrimSpace(line[len(dateMatch[0]):])
	rest = reCardPrefix.ReplaceAllString(rest, "")

	item := Item{Date: date, Type: "expense"}

	if loc := reCuota.FindStringSubmatchIndex(rest); loc != nil {
		current, _ := strconv.Atoi(rest[loc[2]:loc[3]])
		total, _ := strconv.Atoi(rest[loc[4]:loc[5]])
		// total > 1 keeps voucher numbers from reading as installments.
		if current >= 1 && current <= total && total > 1 {
			item.InstallmentCurrent = current
			item.InstallmentTotal = total
			item.InstallmentsRemaining = total - current
			rest = strings.TrimSpace(rest[:loc[0]] + rest[loc[1]:])
		}
	}

	amountMatch := reLineAmount.FindStringSubmatchIndex(rest)
	if amountMatch == nil {
		return Item{}, false
	}
	item.Amount = parseAmount(rest[amountMatch[2]:amountMatch[3]])
	if item.Amount <= 0 {
		return Item{}, false
	}

	desc := strings.TrimSpace(rest[:amountMatch[0]])
	desc = strings.TrimSpace(reVoucher.ReplaceAllString(desc, ""))
	if runes := []rune(desc); len(runes) > 80 {
		desc = string(runes[:80])
	}
	if desc == "" {
		desc = "Sin descripcion"
	}
	item.Description = desc

	return item, true
}

var reFallbackLine = regexp.MustCompile(`(?m)(\d{2}[-/]\w{2,3}[-/]\d{2,4})\s+(.{3,50}?)\s+([\d.,]+)\s*$`)

func fallbackParse(text string) []Item {
	var items []Item
	for _, m := range reFallbackLine.FindAllStringSubmatch(text, -1) {
		date, ok := parseDateES(m[1])
		if !ok {
			continue
		}
		amount := parseAmount(m[3])
		if amount <= 0 {
			continue
		}
		desc := strings.TrimSpace(m[2])
		if runes := []rune(desc); len(runes) > 80 {
			desc = string(runes[:80])
		}
		items = append(items, Item{
			Date:        date,
			Description: desc,
			Amount:      amount,
			Type:        "expense",
		})
	}
	return items
}

var (
	reVencerBlock = regexp.MustCompile(`(?is)Cuotas\s+a\s+vencer\s*:(.*?)(?:\n\n|\z)`)
	reMonthYear   = regexp.MustCompile(`(\p{L}+)/(\d{2,4})`)
	reBlockAmount = regexp.MustCompile(`\$\s*([\d.,]+)`)
	rePartirDe    = regexp.MustCompile(`(?i)A\s+partir\s+de\s+(\p{L}+)/(\d{2,4})\s+\$([\d.,]+)`)
)

// UpcomingInstallments reads the "Cuotas a vencer" footer into a month to
// amount map keyed "YYYY-MM". An open-ended "A partir de" tail gets a "+"
// suffix on its key.
func UpcomingInstallments(text string) map[string]float64 {
	upcoming := make(map[string]float64)

	block := reVencerBlock.FindStringSubmatch(text)
	if block == nil {
		return upcoming
	}

	months := reMonthYear.FindAllStringSubmatch(block[1], -1)
	amounts := reBlockAmount.FindAllStringSubmatch(block[1], -1)

	for i, m := range months {
		month, ok := monthFull[strings.ToLower(m[1])]
		if !ok {
			continue
		}
		year, _ := strconv.Atoi(m[2])
		if year < 100 {
			year += 2000
		}
		if i < len(amounts) {
			upcoming[fmt.Sprintf("%d-%02d", year, month)] = parseAmount(amounts[i][1])
		}
	}

	if m := rePartirDe.FindStringSubmatch(block[1]); m != nil {
		if month, ok := monthFull[strings.ToLower(m[1])]; ok {
			year, _ := strconv.Atoi(m[2])
			if year < 100 {
				year += 2000
			}
			upcoming[fmt.Sprintf("%d-%02d+", year, month)] = parseAmount(m[3])
		}
	}

	return upcoming
}
