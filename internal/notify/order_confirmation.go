package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/shopspring/decimal"
)

var funcs = map[string]any{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

var confirmationText = template.Must(template.New("text").Funcs(funcs).Parse(`Hi {{.CustomerName}},

Thank you for your order {{.Number}}.

{{range .Lines}}- {{.Quantity}} x {{.ProductName}} @ RM {{money .Price}} = RM {{money .Total}}
{{end}}
Total: RM {{money .Total}}

Delivery address:
{{.DeliveryAddress}}
{{if .Notes}}
Notes: {{.Notes}}
{{end}}
We will let you know when your order is being prepared.
`))

var confirmationHTML = htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(`<h2>Thank you for your order, {{.CustomerName}}!</h2>
<p>Order number: <strong>{{.Number}}</strong></p>
<table>
{{range .Lines}}<tr><td>{{.Quantity}} &times; {{.ProductName}}</td><td>RM {{money .Total}}</td></tr>
{{end}}<tr><td><strong>Total</strong></td><td><strong>RM {{money .Total}}</strong></td></tr>
</table>
<p>Delivery address:<br>{{.DeliveryAddress}}</p>
{{if .Notes}}<p>Notes: {{.Notes}}</p>{{end}}`))

// OrderNotifier sends the customer a confirmation for a placed order.
type OrderNotifier struct {
	sender Sender
	from   string
}

func NewOrderNotifier(sender Sender, from string) *OrderNotifier {
	return &OrderNotifier{sender: sender, from: from}
}

func (n *OrderNotifier) OrderPlaced(ctx context.Context, o *order.Order) error {
	msg, err := ConfirmationMessage(o, n.from)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}

func ConfirmationMessage(o *order.Order, from string) (Message, error) {
	var text, html bytes.Buffer
	if err := confirmationText.Execute(&text, o); err != nil {
		return Message{}, fmt.Errorf("render confirmation text: %w", err)
	}
	if err := confirmationHTML.Execute(&html, o); err != nil {
		return Message{}, fmt.Errorf("render confirmation html: %w", err)
	}

	return Message{
		From:    from,
		To:      o.CustomerEmail,
		Subject: "Order Confirmation - " + o.Number,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
