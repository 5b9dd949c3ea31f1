package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const statementSample = `BANCO GALICIA - RESUMEN DE TARJETA DE CREDITO VISA
Periodo: Enero/2026

Titular: GARCIA MAURICIO PABLO
CUIT: 20-12345678-9
Tarjeta Nro. 4509123456789012
Domicilio: Av. Corrientes 1234 Piso 3 Dpto A, CABA
Email: mauricio.garcia@gmail.com
alias: juan.perez.galicia

                    DETALLE DEL CONSUMO

15-01-26 * MERPAGO*LACOSTEOUTLET 03/06 001298 10.000,00
20-01-26 K DISNEY PLUS 052084 18.399,00
22-01-26 * SHELL ESTACION 001 052088 35.000,00

TOTAL A PAGAR: $63.399,00

Cuotas a vencer:
Febrero/26 $10.000,00  Marzo/26 $10.000,00
`

const receiptSample = `SUPERMERCADO CARREFOUR
CUIT: 30-68898256-8

Arroz x2          $1.200
Leche x4          $2.800
TOTAL             $5.929

Tarjeta Visa **** 5678
DNI: 12345678
`

func TestStatementPersonalDataRemoved(t *testing.T) {
	out := Text(statementSample)

	assert.NotContains(t, out, "20-12345678-9")
	assert.NotContains(t, out, "4509123456789012")
	assert.NotContains(t, out, "mauricio.garcia@gmail.com")
	assert.NotContains(t, out, "GARCIA MAURICIO PABLO")
	assert.NotContains(t, out, "Corrientes 1234")
	assert.NotContains(t, out, "juan.perez.galicia")
}

func TestStatementMovementsPreserved(t *testing.T) {
	out := Text(statementSample)

	assert.Contains(t, out, "MERPAGO")
	assert.Contains(t, out, "DISNEY PLUS")
	assert.Contains(t, out, "SHELL")
	assert.Contains(t, out, "TOTAL A PAGAR")
	assert.Contains(t, out, "Cuotas a vencer")
}

func TestReceiptSanitized(t *testing.T) {
	out := Text(receiptSample)

	assert.NotContains(t, out, "30-68898256-8")
	assert.NotContains(t, out, "12345678")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "CARREFOUR")
}

func TestCombinedIdentifiersRemoved(t *testing.T) {
	in := "DNI: 30123456, tarjeta 4509 1234 5678 9012, escribime a juan@example.com"
	out := Text(in)

	assert.NotContains(t, out, "30123456")
	assert.NotContains(t, out, "4509 1234 5678 9012")
	assert.NotContains(t, out, "juan@example.com")
}

func TestCBURemoved(t *testing.T) {
	out := Text("CBU: 0110599520000012345678")
	assert.NotContains(t, out, "0110599520000012345678")
}

func TestPlainTextUntouched(t *testing.T) {
	in := "Gasté $1.200 en el supermercado"
	assert.Equal(t, in, Text(in))
}
