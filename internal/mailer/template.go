package mailer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/testreport/internal/model"
	"github.com/testreport/internal/web"
)

// Summary is what the mail body reports about a session.
type Summary struct {
	Title  string
	Counts model.Counts
}

// Params returns the ${mail_*} substitutions for the summary.
func (s Summary) Params() map[string]string {
	c := s.Counts
	itoa := strconv.Itoa
	return map[string]string{
		"mail_title":   s.Title,
		"mail_count":   itoa(c.Total()),
		"mail_passed":  itoa(c[model.OutcomePassed]),
		"mail_failed":  itoa(c[model.OutcomeFailed]),
		"mail_xfailed": itoa(c[model.OutcomeXFailed]),
		"mail_xpassed": itoa(c[model.OutcomeXPassed]),
		"mail_errors":  itoa(c[model.OutcomeError]),
		"mail_skipped": itoa(c[model.OutcomeSkipped]),
		"mail_rate":    fmt.Sprintf("%.1f", c.PassRate()),
	}
}

// DefaultTemplate is the built-in HTML mail body.
func DefaultTemplate() string {
	return web.MailTemplate()
}

// RenderTemplate substitutes ${name} tokens in tmpl with params. Unknown
// tokens are left in place.
func RenderTemplate(tmpl string, params map[string]string) string {
	result := tmpl
	for name, value := range params {
		result = strings.ReplaceAll(result, "${"+name+"}", value)
	}
	return result
}
