package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

// Brand is the product identity shown in messages.
type Brand struct {
	Name    string // e.g. "Bank Radar"
	SiteURL string
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// DigestSubject is the email subject for a digest of n postings.
func DigestSubject(b Brand, n int) string {
	return fmt.Sprintf("%d new %s on %s", n, plural(n, "job", "jobs"), b.Name)
}

// NothingFoundSubject is the subject of the end-of-day empty email.
const NothingFoundSubject = "No new postings today, still searching for you"

type emailRow struct {
	Title    string
	Link     string
	Location string
	Label    string
	Intern   bool
}

type emailGroup struct {
	Bank string
	Rows []emailRow
}

// groupByBank keeps banks in order of first appearance.
func groupByBank(postings []model.Posting) []emailGroup {
	var groups []emailGroup
	index := map[string]int{}
	for _, p := range postings {
		bank := p.Bank
		if bank == "" {
			bank = "Other"
		}
		i, ok := index[bank]
		if !ok {
			i = len(groups)
			index[bank] = i
			groups = append(groups, emailGroup{Bank: bank})
		}
		intern := filter.IsInternship(p.Title)
		label := "Analyst"
		if intern {
			label = "Internship"
		}
		groups[i].Rows = append(groups[i].Rows, emailRow{
			Title:    p.Title,
			Link:     p.Link,
			Location: p.Location,
			Label:    label,
			Intern:   intern,
		})
	}
	return groups
}

var digestTmpl = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background:#faf8f5;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;">
  <div style="max-width:600px;margin:0 auto;padding:32px 24px;">
    <p style="font-size:18px;font-weight:800;color:#1e293b;">{{.Brand.Name}}</p>
    <p style="font-size:15px;color:#334155;">Hey{{with .FirstName}} {{.}}{{end}},</p>
    <p style="font-size:15px;color:#334155;">{{.Count}} new {{.Noun}} matching your preferences just went live:</p>
    <table style="width:100%;border-collapse:collapse;">
{{- range .Groups}}
      <tr><td colspan="3" style="padding:16px 0 8px;font-size:16px;font-weight:700;color:#1e293b;border-bottom:1px solid #e2e8f0;">{{.Bank}}</td></tr>
{{- range .Rows}}
      <tr>
        <td style="padding:10px 0;font-size:14px;"><a href="{{.Link}}" style="color:#1e293b;text-decoration:none;font-weight:500;">{{.Title}}</a></td>
        <td style="padding:10px 8px;font-size:12px;color:#64748b;">{{.Location}}</td>
        <td style="padding:10px 0;font-size:11px;font-weight:600;color:{{if .Intern}}#d97706{{else}}#2563eb{{end}};text-transform:uppercase;">{{.Label}}</td>
      </tr>
{{- end}}
{{- end}}
    </table>
{{- with .Brand.SiteURL}}
    <p style="margin-top:32px;text-align:center;"><a href="{{.}}" style="display:inline-block;padding:12px 28px;background:#2563eb;color:#fff;font-size:14px;font-weight:600;text-decoration:none;border-radius:8px;">Browse All Jobs</a></p>
{{- end}}
    <p style="margin-top:32px;font-size:12px;color:#94a3b8;text-align:center;">You're receiving this because you enabled job notifications on {{.Brand.Name}}.<br>To unsubscribe, turn off notifications in your dashboard settings.</p>
  </div>
</body>
</html>
`))

var nothingFoundTmpl = template.Must(template.New("nothing-found").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background:#faf8f5;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',sans-serif;">
  <div style="max-width:600px;margin:0 auto;padding:40px 24px;">
    <p style="font-size:20px;font-weight:800;color:#1e293b;">{{.Brand.Name}}</p>
    <p style="font-size:15px;color:#334155;">Hey {{.FirstName}},</p>
    <p style="font-size:15px;color:#334155;line-height:1.7;">No new postings matching your preferences today. We checked all morning and afternoon.</p>
    <p style="font-size:15px;color:#334155;line-height:1.7;">We'll keep searching and let you know the moment something goes live.</p>
{{- with .Brand.SiteURL}}
    <p style="text-align:center;"><a href="{{.}}" style="display:inline-block;padding:12px 32px;background:#2563eb;color:#fff;font-size:14px;font-weight:600;text-decoration:none;border-radius:8px;">Browse All Active Postings</a></p>
{{- end}}
    <p style="font-size:11px;color:#94a3b8;margin-top:32px;">{{.Brand.Name}} · Not affiliated with any listed bank</p>
  </div>
</body>
</html>
`))

// RenderDigestEmail renders the HTML body of a digest, grouped by bank.
func RenderDigestEmail(b Brand, d model.Digest) (string, error) {
	var buf bytes.Buffer
	err := digestTmpl.Execute(&buf, map[string]any{
		"Brand":     b,
		"FirstName": d.Subscriber.FirstName,
		"Count":     len(d.Postings),
		"Noun":      plural(len(d.Postings), "posting", "postings"),
		"Groups":    groupByBank(d.Postings),
	})
	if err != nil {
		return "", fmt.Errorf("render digest email: %w", err)
	}
	return buf.String(), nil
}

// RenderNothingFoundEmail renders the end-of-day empty email.
func RenderNothingFoundEmail(b Brand, firstName string) (string, error) {
	if firstName == "" {
		firstName = "there"
	}
	var buf bytes.Buffer
	if err := nothingFoundTmpl.Execute(&buf, map[string]any{"Brand": b, "FirstName": firstName}); err != nil {
		return "", fmt.Errorf("render nothing-found email: %w", err)
	}
	return buf.String(), nil
}

const smsHighlights = 3

// RenderSMS renders a short text: up to three "• title @ bank" lines and a
// "+ N more" tail.
func RenderSMS(b Brand, d model.Digest) string {
	n := len(d.Postings)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d new %s posted:", b.Name, n, plural(n, "job", "jobs"))
	for i, p := range d.Postings {
		if i == smsHighlights {
			break
		}
		fmt.Fprintf(&sb, "\n• %s @ %s", p.Title, p.Bank)
	}
	if n > smsHighlights {
		fmt.Fprintf(&sb, "\n+ %d more", n-smsHighlights)
	}
	if b.SiteURL != "" {
		sb.WriteString("\n\n" + strings.TrimPrefix(strings.TrimPrefix(b.SiteURL, "https://"), "http://"))
	}
	return sb.String()
}
