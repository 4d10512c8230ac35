package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestFileName(t *testing.T) {
	p := samplePatient()
	p.ID = "p-42"
	got := FileName(p, reportTime)
	if got != "p-42_Mr._Rohit_Sharma_05032025_Report.pdf" {
		t.Errorf("unexpected file name %q", got)
	}
	if TempFileName(got) != "temp_p-42_Mr._Rohit_Sharma_05032025_Report.pdf" {
		t.Errorf("unexpected temp name %q", TempFileName(got))
	}
	if QRFileName("p-42") != "qr_p-42.png" {
		t.Errorf("unexpected qr name %q", QRFileName("p-42"))
	}
}

func TestFileName_MissingID(t *testing.T) {
	p := samplePatient()
	p.ID = ""
	if got := FileName(p, reportTime); got != "0000_Mr._Rohit_Sharma_05032025_Report.pdf" {
		t.Errorf("unexpected file name %q", got)
	}
}

func TestFileName_StaysInReportDir(t *testing.T) {
	cases := map[string]string{
		"Mr. Ram/Shyam":     "p-42_Mr._Ram_Shyam_05032025_Report.pdf",
		"Mr. a/../../../x":  "p-42_Mr._a_.._.._.._x_05032025_Report.pdf",
		`Mrs. C:\Users\x`:   "p-42_Mrs._C__Users_x_05032025_Report.pdf",
		"Mr. Rohit #1 ?50%": "p-42_Mr._Rohit__1__50__05032025_Report.pdf",
	}
	for name, want := range cases {
		p := samplePatient()
		p.ID = "p-42"
		p.Name = name
		got := FileName(p, reportTime)
		if got != want {
			t.Errorf("FileName(%q) = %q, want %q", name, got, want)
		}
		if filepath.Base(got) != got {
			t.Errorf("FileName(%q) = %q is not a single path element", name, got)
		}
		dir := t.TempDir()
		if filepath.Dir(filepath.Join(dir, got)) != dir {
			t.Errorf("FileName(%q) escapes the report dir", name)
		}
	}
}

func TestLink_EscapesFileName(t *testing.T) {
	got := Link("https://example.com/r", "a #1?.pdf")
	if got != "https://example.com/r/a%20%231%3F.pdf" {
		t.Errorf("unexpected link %q", got)
	}
}

func TestLink(t *testing.T) {
	cases := []struct{ base, want string }{
		{"https://raw.githubusercontent.com/lab/reports/main", "https://raw.githubusercontent.com/lab/reports/main/a.pdf"},
		{"https://example.com/r/", "https://example.com/r/a.pdf"},
	}
	for _, c := range cases {
		if got := Link(c.base, "a.pdf"); got != c.want {
			t.Errorf("Link(%q) = %q, want %q", c.base, got, c.want)
		}
	}
	if Link("https://x", "a.pdf") != Link("https://x", "a.pdf") {
		t.Error("expected deterministic link")
	}
}

func TestRenderQR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qr.png")
	if err := RenderQR("https://example.com/a.pdf", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read qr: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("expected a PNG image")
	}
}

func TestRenderQR_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "qr.png")
	if err := RenderQR("https://example.com/a.pdf", path); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}
