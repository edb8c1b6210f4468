package channel

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"medreminder-backend/internal/reminder/domain"
)

const defaultGreetingName = "Valued Customer"

// Content is a rendered reminder notification
type Content struct {
	Subject string
	Text    string
	HTML    string
}

type templateData struct {
	Brand        string
	CustomerName string
	Date         string
	Time         string
	Notes        string
	Medications  []string
}

var htmlBody = htmltemplate.Must(htmltemplate.New("reminder.html").Parse(`<div style="font-family: Arial, sans-serif; max-width:600px; margin:0 auto; padding:16px">
  <h2>&#128336; Medication Reminder</h2>
  <p>Hello {{.CustomerName}},</p>
  <p>This is a friendly reminder for:</p>
  <ul>
    <li><b>Date:</b> {{.Date}}</li>
    <li><b>Time:</b> {{.Time}}</li>
  </ul>
  {{- if .Notes}}
  <p><b>Notes:</b> {{.Notes}}</p>
  {{- end}}
  {{- if .Medications}}
  <h3>Medications</h3>
  <p>{{range $i, $m := .Medications}}{{if $i}}<br/>{{end}}{{$m}}{{end}}</p>
  {{- end}}
  <p>Thank you for choosing {{.Brand}}!</p>
</div>
`))

var textBody = texttemplate.Must(texttemplate.New("reminder.txt").Parse(`Hello {{.CustomerName}},

This is a friendly reminder for:
  Date: {{.Date}}
  Time: {{.Time}}
{{- if .Notes}}

Notes: {{.Notes}}
{{- end}}
{{- if .Medications}}

Medications:
{{- range .Medications}}
{{.}}
{{- end}}
{{- end}}

Thank you for choosing {{.Brand}}!
`))

// Render builds the subject and both bodies for a reminder
func Render(r *domain.Reminder, brand string) (Content, error) {
	data := templateData{
		Brand:        brand,
		CustomerName: strings.TrimSpace(r.CustomerName),
		Date:         r.ReminderDate,
		Time:         r.ReminderTime,
		Notes:        strings.TrimSpace(r.Notes),
	}
	if data.CustomerName == "" {
		data.CustomerName = defaultGreetingName
	}
	for _, m := range r.Medications {
		data.Medications = append(data.Medications, fmt.Sprintf("• %s (Quantity: %d)", m.Name, m.Quantity))
	}

	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return Content{}, fmt.Errorf("failed to render html body: %w", err)
	}
	if err := textBody.Execute(&text, data); err != nil {
		return Content{}, fmt.Errorf("failed to render text body: %w", err)
	}

	return Content{
		Subject: fmt.Sprintf("🕐 Medication Reminder - %s %s", r.ReminderDate, r.ReminderTime),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
