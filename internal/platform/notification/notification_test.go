package notification

import (
	"net/url"
	"strings"
	"testing"
)

func TestTemplateEngine_RegisterAndRender(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{ID: "greeting", Body: "Hi {{name}}, visit {{place}}"})

	got, err := e.Render("greeting", map[string]string{"name": "Asha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hi Asha, visit {{place}}" {
		t.Errorf("unexpected body %q", got)
	}
}

func TestTemplateEngine_RenderMissing(t *testing.T) {
	e := NewTemplateEngine()
	if _, err := e.Render("nope", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTemplateEngine_ReportReady(t *testing.T) {
	e := NewTemplateEngine()
	got, err := e.ReportReady("Mr. Rohit Patil", "https://example.com/r.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Hello Mr. Rohit Patil,\nYour report is ready! Download: https://example.com/r.pdf"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+91 98765 43210": "919876543210",
		"09876543210":     "9876543210",
		"009876":          "09876",
		"   ":             "",
		"":                "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("+91 98765 43210", "Hello A,\nDone & dusted")
	if !strings.HasPrefix(link, "https://api.whatsapp.com/send?") {
		t.Fatalf("unexpected link %q", link)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("phone") != "919876543210" {
		t.Errorf("unexpected phone %q", q.Get("phone"))
	}
	if q.Get("text") != "Hello A,\nDone & dusted" {
		t.Errorf("unexpected text %q", q.Get("text"))
	}
	if strings.Contains(link, "\n") || strings.Contains(link, " ") {
		t.Error("message must be URL-encoded")
	}
}

func TestWhatsAppLink_EmptyPhone(t *testing.T) {
	if got := WhatsAppLink("", "hi"); got != "" {
		t.Errorf("expected no link, got %q", got)
	}
	if got := WhatsAppLink("0", "hi"); got != "" {
		t.Errorf("expected no link for bare zero, got %q", got)
	}
}
