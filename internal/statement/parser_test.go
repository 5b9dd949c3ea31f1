package statement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateES(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"15-10-24", time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC), true},
		{"15-Oct-24", time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC), true},
		{"23-Nov-25", time.Date(2025, time.November, 23, 0, 0, 0, 0, time.UTC), true},
		{"15/10/2024", time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC), true},
		{"01-ene-26", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), true},
		{"31-02-24", time.Time{}, false},
		{"15-13-24", time.Time{}, false},
		{"no es fecha", time.Time{}, false},
	}

	for _, tc := range cases {
		got, ok := parseDateES(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, 3423.50, parseAmount("3.423,50"))
	assert.Equal(t, 149999.08, parseAmount("$149.999,08"))
	assert.Equal(t, 1234.56, parseAmount("1234,56"))
	assert.Equal(t, 1234.56, parseAmount("1234.56"))
	assert.Equal(t, 18399.0, parseAmount("18.399,00"))
	assert.Equal(t, 500.0, parseAmount("-500"))
	assert.Equal(t, 0.0, parseAmount("no es monto"))
}

func TestParseLineWithInstallments(t *testing.T) {
	item, ok := parseLine("15-10-24 * MERPAGO*IVMACOGLOBALGROUP 12/12 664719 3.423,50")
	require.True(t, ok)

	assert.Equal(t, time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC), item.Date)
	assert.Equal(t, "MERPAGO*IVMACOGLOBALGROUP", item.Description)
	assert.Equal(t, 3423.50, item.Amount)
	assert.Equal(t, "expense", item.Type)
	assert.Equal(t, 12, item.InstallmentCurrent)
	assert.Equal(t, 12, item.InstallmentTotal)
	assert.Equal(t, 0, item.InstallmentsRemaining)
}

func TestParseLineSpanishMonth(t *testing.T) {
	item, ok := parseLine("23-Nov-25 * MERPAGO*LACOSTEOUTLET 03/06 001298 10.000,00")
	require.True(t, ok)

	assert.Equal(t, time.Date(2025, time.November, 23, 0, 0, 0, 0, time.UTC), item.Date)
	assert.Equal(t, 3, item.InstallmentCurrent)
	assert.Equal(t, 6, item.InstallmentTotal)
	assert.Equal(t, 3, item.InstallmentsRemaining)
	assert.Equal(t, 10000.0, item.Amount)
}

func TestParseLineNoInstallments(t *testing.T) {
	item, ok := parseLine("20-01-26 K DISNEY PLUS 052084 18.399,00")
	require.True(t, ok)

	assert.Equal(t, "DISNEY PLUS", item.Description)
	assert.Equal(t, 18399.0, item.Amount)
	assert.Zero(t, item.InstallmentTotal)
}

func TestParseLineRejectsSingleInstallmentPattern(t *testing.T) {
	// 1/01 style voucher fragments must not read as installments.
	item, ok := parseLine("20-01-26 K ALGUN COMERCIO 1/01 052084 5.000,00")
	require.True(t, ok)
	assert.Zero(t, item.InstallmentTotal)
}

func TestParseStructuredSection(t *testing.T) {
	text := `BANCO GALICIA VISA
Resumen de cuenta

DETALLE DEL CONSUMO
15-10-24 * MERPAGO*IVMACOGLOBALGROUP 12/12 664719 3.423,50
23-Nov-25 * MERPAGO*LACOSTEOUTLET 03/06 001298 10.000,00
20-01-26 K DISNEY PLUS 052084 18.399,00
20-01-26 IMPUESTO DE SELLOS CABA 1.250,00
TOTAL A PAGAR 33.072,50

Cuotas a vencer: Marzo/26 $149.999,08 Abril/26 $149.999,08
A partir de Setiembre/26 $56.663,00`

	items := ParseStructured(text)
	require.Len(t, items, 3)

	assert.Equal(t, "MERPAGO*IVMACOGLOBALGROUP", items[0].Description)
	assert.Equal(t, "MERPAGO*LACOSTEOUTLET", items[1].Description)
	assert.Equal(t, "DISNEY PLUS", items[2].Description)

	// The IMPUESTO line and everything after TOTAL A PAGAR are out.
	for _, item := range items {
		assert.NotContains(t, item.Description, "IMPUESTO")
	}
}

func TestParseStructuredFallback(t *testing.T) {
	// No DETALLE DEL CONSUMO header, the loose regex takes over.
	text := `RESUMEN BANCARIO
15-10-24 COMPRA SUPERMERCADO DIA 8.500,00
16-10-24 FARMACIA DEL PUEBLO 3.200,50`

	items := ParseStructured(text)
	require.Len(t, items, 2)
	assert.Equal(t, 8500.0, items[0].Amount)
	assert.Equal(t, 3200.50, items[1].Amount)
}

func TestUpcomingInstallments(t *testing.T) {
	text := `DETALLE DEL CONSUMO
...
Cuotas a vencer: Marzo/26 $149.999,08 Abril/26 $149.999,08 Mayo/26 $89.500,00
A partir de Setiembre/26 $56.663,00`

	upcoming := UpcomingInstallments(text)

	assert.Equal(t, 149999.08, upcoming["2026-03"])
	assert.Equal(t, 149999.08, upcoming["2026-04"])
	assert.Equal(t, 89500.0, upcoming["2026-05"])
	assert.Equal(t, 56663.0, upcoming["2026-09+"])
}

func TestUpcomingInstallmentsAbsent(t *testing.T) {
	assert.Empty(t, UpcomingInstallments("DETALLE DEL CONSUMO\n15-10-24 ALGO 100,00"))
}
