package notify

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

const (
	KindBookingRequested    = "booking_requested"
	KindBookingStatusChange = "booking_status_changed"
	KindRentalCreated       = "rental_created"
)

const layout = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<div style="max-width:560px;margin:0 auto">
<img src="cid:logo.png" alt="Motorent" style="height:48px"/>
{{template "content" .}}
<p style="color:#888;font-size:12px">Motorent - motorbike rentals</p>
</div></body></html>`

var contents = map[string]struct {
	subject string
	body    string
}{
	KindBookingRequested: {
		subject: "We received your booking request {{.booking_code}}",
		body: `<h2>Hello {{.name}},</h2>
<p>Your booking request <strong>{{.booking_code}}</strong> has been received.</p>
<p>Pickup location: {{.pickup_location}}<br/>We will contact you via {{.contact_method}} shortly.</p>`,
	},
	KindBookingStatusChange: {
		subject: "Booking {{.booking_code}} is now {{.status}}",
		body: `<h2>Hello {{.name}},</h2>
<p>The status of booking <strong>{{.booking_code}}</strong> changed to <strong>{{.status}}</strong>.</p>
{{if .admin_notes}}<p>Note from our team: {{.admin_notes}}</p>{{end}}`,
	},
	KindRentalCreated: {
		subject: "Rental {{.booking_code}} confirmed",
		body: `<h2>Hello {{.name}},</h2>
<p>Your rental <strong>{{.booking_code}}</strong> for <strong>{{.bike_model}}</strong> is registered.</p>
<table cellpadding="4">
<tr><td>From</td><td>{{.start_time}}</td></tr>
<tr><td>To</td><td>{{.end_time}}</td></tr>
<tr><td>Pickup</td><td>{{.pickup_location}}</td></tr>
<tr><td>Total</td><td><strong>{{.price}}</strong></td></tr>
</table>`,
	},
}

type compiled struct {
	subject *texttemplate.Template
	body    *template.Template
}

var templates = mustCompile()

func mustCompile() map[string]compiled {
	out := make(map[string]compiled, len(contents))
	for kind, c := range contents {
		body := template.Must(template.New("layout").Option("missingkey=zero").Parse(layout))
		template.Must(body.New("content").Parse(c.body))
		out[kind] = compiled{
			subject: texttemplate.Must(texttemplate.New(kind).Option("missingkey=zero").Parse(c.subject)),
			body:    body,
		}
	}
	return out
}

// Render builds the message for an event. Only the body is HTML-escaped; subjects are plain text.
func Render(ev Event) (Message, error) {
	tpl, ok := templates[ev.Kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown notification kind %q", ev.Kind)
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, ev.Data); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := tpl.body.ExecuteTemplate(&body, "layout", ev.Data); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}

	return Message{
		To:         ev.To,
		Subject:    subject.String(),
		HTML:       body.String(),
		InlineLogo: true,
	}, nil
}
