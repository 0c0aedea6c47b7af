package export

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"plantshop/internal/cart"
	"plantshop/internal/util"
)

const ReceiptSubject = "Your Plant Shop cart"

type ReceiptOptions struct {
	FromName    string
	FromAddress string
	ToAddress   string
	Date        time.Time
}

var receiptHTML = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"price": util.FormatPrice,
}).Parse(`<html><body>
<h2>Plant Shop</h2>
{{if .Lines}}<table>
<tr><th>Plant</th><th>Price</th><th>Qty</th><th>Subtotal</th></tr>
{{range .Lines}}<tr><td>{{.Name}}</td><td>৳{{price .Price}}</td><td>{{.Qty}}</td><td>৳{{price .Subtotal}}</td></tr>
{{end}}</table>{{else}}<p>Cart is empty.</p>{{end}}
<p><strong>Total: ৳{{price .Total}}</strong></p>
</body></html>`))

// BuildReceipt renders the cart as a MIME message with a plain text part,
// an HTML part and the cart spreadsheet attached.
func BuildReceipt(view cart.View, opts ReceiptOptions) ([]byte, error) {
	if strings.TrimSpace(opts.FromAddress) == "" {
		return nil, errors.New("receipt sender address is required")
	}
	to := opts.ToAddress
	if strings.TrimSpace(to) == "" {
		to = opts.FromAddress
	}
	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}

	var htmlBody bytes.Buffer
	if err := receiptHTML.Execute(&htmlBody, view); err != nil {
		return nil, fmt.Errorf("render receipt html: %w", err)
	}

	var sheet bytes.Buffer
	if err := WriteCartXLSX(&sheet, view); err != nil {
		return nil, fmt.Errorf("render receipt spreadsheet: %w", err)
	}

	part, err := enmime.Builder().
		From(opts.FromName, opts.FromAddress).
		To("", to).
		Subject(ReceiptSubject).
		Date(date).
		Text([]byte(ReceiptText(view))).
		HTML(htmlBody.Bytes()).
		AddAttachment(sheet.Bytes(), XLSXContentType, "cart.xlsx").
		Build()
	if err != nil {
		return nil, fmt.Errorf("build receipt: %w", err)
	}

	var out bytes.Buffer
	if err := part.Encode(&out); err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}
	return out.Bytes(), nil
}

// ReceiptText is the plain text body: one line per cart line, then the total.
func ReceiptText(view cart.View) string {
	var b strings.Builder
	b.WriteString("Plant Shop\n\n")
	if len(view.Lines) == 0 {
		b.WriteString("Cart is empty.\n")
	}
	for _, line := range view.Lines {
		fmt.Fprintf(&b, "%s  ৳%s × %d = ৳%s\n", line.Name, util.FormatPrice(line.Price), line.Qty, util.FormatPrice(line.Subtotal()))
	}
	fmt.Fprintf(&b, "\nTotal: ৳%s\n", util.FormatPrice(view.Total))
	return b.String()
}
