// Package notification renders patient-facing messages and builds share links
// for delivering them.
package notification

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// ReportReadyTemplate is the ID of the built-in "report is ready" message.
const ReportReadyTemplate = "report-ready"

const whatsAppSendURL = "https://api.whatsapp.com/send"

// Template defines a reusable message with {{key}} placeholders.
type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Body string `json:"body"`
}

// TemplateEngine manages message templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.RegisterTemplate(Template{
		ID:   ReportReadyTemplate,
		Name: "Report Ready",
		Body: "Hello {{patient_name}},\nYour report is ready! Download: {{link}}",
	})
	return e
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement. Keys
// present in the template but absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (string, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", templateID)
	}

	body := t.Body
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}

// ReportReady renders the built-in report message for a patient.
func (e *TemplateEngine) ReportReady(patientName, link string) (string, error) {
	return e.Render(ReportReadyTemplate, map[string]string{
		"patient_name": patientName,
		"link":         link,
	})
}

// NormalizePhone strips '+' and spaces and drops a single leading zero.
func NormalizePhone(phone string) string {
	p := strings.NewReplacer("+", "", " ", "").Replace(strings.TrimSpace(phone))
	return strings.TrimPrefix(p, "0")
}

// WhatsAppLink returns a click-to-chat URL carrying message, or "" when the
// phone number is empty after normalization.
func WhatsAppLink(phone, message string) string {
	p := NormalizePhone(phone)
	if p == "" {
		return ""
	}
	q := url.Values{}
	q.Set("phone", p)
	q.Set("text", message)
	return whatsAppSendURL + "?" + q.Encode()
}
