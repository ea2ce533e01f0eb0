package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"

	"tradescout/database/types"
	"tradescout/helpers"
)

var emailFuncs = template.FuncMap{
	"usd": helpers.FormatUSD,
}

var opportunityTemplate = template.Must(template.New("opportunity").Funcs(emailFuncs).Parse(`<html><body>
<h2>{{.Signal.Symbol}}: {{printf "%.0f" .Signal.Confidence}}% confidence</h2>
<table>
<tr><td>Entry</td><td>{{usd .Setup.EntryPrice}} x {{.Setup.PositionSize}} shares</td></tr>
<tr><td>Target</td><td>{{usd .Setup.TargetPrice}}</td></tr>
<tr><td>Stop</td><td>{{usd .Setup.StopPrice}}</td></tr>
<tr><td>Drop from open</td><td>{{printf "%.2f" .Signal.CurrentDropPct}}%</td></tr>
<tr><td>Price Z-Score</td><td>{{printf "%.2f" .Signal.PriceZScore}}</td></tr>
<tr><td>Volume Z-Score</td><td>{{printf "%.2f" .Signal.VolumeZScore}}</td></tr>
</table>
<pre>{{.Setup.Reasoning}}</pre>
</body></html>`))

var reportTemplate = template.Must(template.New("report").Funcs(emailFuncs).Parse(`<html><body>
<h2>{{.Metrics.PeriodType}} report: {{.Metrics.PeriodStart.Format "2006-01-02"}} to {{.Metrics.PeriodEnd.Format "2006-01-02"}}</h2>
<table>
<tr><td>Trades</td><td>{{.Metrics.TotalTrades}} ({{.Metrics.WinningTrades}} W / {{.Metrics.LosingTrades}} L)</td></tr>
<tr><td>Win rate</td><td>{{printf "%.1f" .Metrics.WinRate}}%</td></tr>
<tr><td>Total P&amp;L</td><td>{{usd .Metrics.TotalPnl}}</td></tr>
<tr><td>Return</td><td>{{.Metrics.ReturnPercent.StringFixed 2}}%</td></tr>
{{if .Metrics.ProfitFactor}}<tr><td>Profit factor</td><td>{{.Metrics.ProfitFactor.StringFixed 2}}</td></tr>{{end}}
<tr><td>Projected annual</td><td>{{.Metrics.ProjectedAnnualReturn.StringFixed 2}}%</td></tr>
</table>
<p>{{.TargetAnalysis.Assessment}}</p>
<ul>{{range .Recommendations}}<li>{{.}}</li>{{end}}</ul>
</body></html>`))

// sendMailFunc matches smtp.SendMail
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends HTML mail over SMTP
type EmailNotifier struct {
	addr     string
	auth     smtp.Auth
	from     string
	to       []string
	sendMail sendMailFunc
}

// NewEmailNotifier creates an SMTP notifier. Auth is skipped when username is empty.
func NewEmailNotifier(host string, port int, username, password, from string, to []string) *EmailNotifier {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &EmailNotifier{
		addr:     fmt.Sprintf("%s:%d", host, port),
		auth:     auth,
		from:     from,
		to:       to,
		sendMail: smtp.SendMail,
	}
}

// Name implements Channel
func (e *EmailNotifier) Name() string {
	return "email"
}

// SendOpportunityAlert implements Channel
func (e *EmailNotifier) SendOpportunityAlert(ctx context.Context, opp types.Opportunity) error {
	var body bytes.Buffer
	if err := opportunityTemplate.Execute(&body, opp); err != nil {
		return fmt.Errorf("render opportunity email: %w", err)
	}
	return e.send(ctx, OpportunitySubject(opp), body.String())
}

// SendPeriodReport implements Channel
func (e *EmailNotifier) SendPeriodReport(ctx context.Context, report types.PeriodReport) error {
	var body bytes.Buffer
	if err := reportTemplate.Execute(&body, report); err != nil {
		return fmt.Errorf("render report email: %w", err)
	}
	return e.send(ctx, ReportSubject(report), body.String())
}

func (e *EmailNotifier) send(ctx context.Context, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(e.to) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(html)

	if err := e.sendMail(e.addr, e.auth, e.from, e.to, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
