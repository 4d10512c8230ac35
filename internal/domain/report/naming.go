package report

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/skip2/go-qrcode"

	"github.com/aarogyam/labdesk/internal/domain/patient"
)

const (
	reportSuffix = "_Report.pdf"
	tempPrefix   = "temp_"
	qrSize       = 256
)

// FileName is the artifact name for a report generated on day:
// {id}_{name}_{DDMMYYYY}_Report.pdf. Anything in the id or name other than
// letters, digits, '.', '-' and '_' becomes an underscore, so the result is
// always a single path element.
func FileName(p *patient.Patient, day time.Time) string {
	id := p.ID
	if id == "" {
		id = "0000"
	}
	return fmt.Sprintf("%s_%s_%s%s", fileSafe(id), fileSafe(p.Name), day.Format("02012006"), reportSuffix)
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
}

// TempFileName is the pre-letterhead intermediate for fileName.
func TempFileName(fileName string) string { return tempPrefix + fileName }

func QRFileName(patientID string) string { return "qr_" + patientID + ".png" }

// Link is the public URL a report will be published under.
func Link(base, fileName string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(fileName)
}

// RenderQR writes a PNG QR code encoding link to path.
func RenderQR(link, path string) error {
	if err := qrcode.WriteFile(link, qrcode.Medium, qrSize, path); err != nil {
		return fmt.Errorf("render qr code: %w", err)
	}
	return nil
}
