package notifymatchedbuyers

import (
	"bytes"
	"fmt"
	"text/template"

	"wholesale-crm/internal/models"
)

var (
	subjectTmpl = template.Must(template.New("subject").Parse(
		`New deal: {{.Deal.PropertyAddress}}`))

	emailTmpl = template.Must(template.New("email").Funcs(funcs).Parse(`Hi {{.Buyer.Name}},

A deal matching your buy box just came in.

Address:  {{.Deal.PropertyAddress}}
{{- with .Deal.PropertyType}}
Type:     {{.}}{{end}}
{{- with .Deal.Price}}
Price:    {{money .}}{{end}}
{{- with .Deal.ARV}}
ARV:      {{money .}}{{end}}
{{- with .Deal.Bedrooms}}
Beds:     {{deref .}}{{end}}
{{- with .Deal.Bathrooms}}
Baths:    {{derefF .}}{{end}}
{{- with .Deal.SquareFeet}}
Sq ft:    {{deref .}}{{end}}
{{- if .Deal.WholesalerName}}

Contact {{.Deal.WholesalerName}}{{with .Deal.WholesalerPhone}} at {{.}}{{end}}{{with .Deal.WholesalerEmail}} ({{.}}){{end}}.
{{- end}}
`))

	smsTmpl = template.Must(template.New("sms").Funcs(funcs).Parse(
		`New deal: {{.Deal.PropertyAddress}}{{with .Deal.Price}} asking {{money .}}{{end}}{{with .Deal.WholesalerPhone}}. Call {{.}}{{end}}`))
)

var funcs = template.FuncMap{
	"money":  func(v *float64) string { return fmt.Sprintf("$%.0f", *v) },
	"deref":  func(v *int) int { return *v },
	"derefF": func(v *float64) string { return fmt.Sprintf("%g", *v) },
}

type messageData struct {
	Buyer models.Buyer
	Deal  models.WholesaleDeal
}

func render(t *template.Template, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
