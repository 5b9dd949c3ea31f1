// Package sanitize strips personally identifying data from text extracted out
// of receipts and bank statements before that text is sent to any external
// model. Merchant names, totals and line items survive; card numbers, CUIT,
// CBU, emails, DNI, aliases, holder names and addresses do not.
package sanitize

import "regexp"

var (
	reCardNumber  = regexp.MustCompile(`\b(?:\d[ -]?){15}\d\b|\b\d{4}[\s\-]\d{4}[\s\-]\d{4}[\s\-]\d{4}\b`)
	reCardPartial = regexp.MustCompile(`(?i)(tarjeta|nro\.?\s*tarjeta|card\s*n[°º]?\.?)[:\s#]*[\dX*]{4,}`)
	reCUIT        = regexp.MustCompile(`\b\d{2}-\d{8}-\d\b`)
	reCBU         = regexp.MustCompile(`\b\d{22}\b`)
	reAlias       = regexp.MustCompile(`(?i)\balias[:\s]+[\w.]+`)
	reEmail       = regexp.MustCompile(`\b[\w.+-]+@[\w.-]+\.\w{2,}\b`)
	reDNI         = regexp.MustCompile(`(?i)\b(dni|d\.n\.i\.?)[:\s#]*\d{7,8}\b`)
	reHolderLine  = regexp.MustCompile(`(?im)^.*\b(titular|cliente|sr\.?|sra\.?|nombre)\b.*:\s*.+$`)
	reAddressLine = regexp.MustCompile(`(?im)^.*\b(domicilio|direcci[oó]n|calle|av\.?|avda\.?|bv\.?)\b.{0,60}$`)
)

// Text removes every recognized piece of personal data. Line-level rules run
// first so that e.g. a card number inside a holder line is removed with the
// whole line.
func Text(text string) string {
	text = reHolderLine.ReplaceAllString(text, "[DATOS PERSONALES ELIMINADOS]")
	text = reAddressLine.ReplaceAllString(text, "[DOMICILIO ELIMINADO]")
	text = reCardNumber.ReplaceAllString(text, "[TARJETA ELIMINADA]")
	text = reCardPartial.ReplaceAllString(text, "$1: [TARJETA ELIMINADA]")
	text = reCUIT.ReplaceAllString(text, "[CUIT ELIMINADO]")
	text = reCBU.ReplaceAllString(text, "[CBU ELIMINADO]")
	text = reAlias.ReplaceAllString(text, "alias: [ALIAS ELIMINADO]")
	text = reEmail.ReplaceAllString(text, "[EMAIL ELIMINADO]")
	text = reDNI.ReplaceAllString(text, "$1: [DNI ELIMINADO]")
	return text
}
