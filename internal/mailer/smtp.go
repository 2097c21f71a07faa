// Package mailer delivers the generated report over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"gopkg.in/gomail.v2"

	"github.com/testreport/internal/model"
)

// ErrNoRecipient is returned when the settings name no "to" address.
var ErrNoRecipient = errors.New("please specify the email address to send")

const defaultAttachmentName = "report.html"

// Attachment is a file carried by a Message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is an email ready to hand to the SMTP server.
type Message struct {
	From        string
	FromName    string
	To          []string
	Cc          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Recipients is every envelope recipient: To followed by Cc.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc))
	out = append(out, m.To...)
	return append(out, m.Cc...)
}

// Mailer sends the report with the configured SMTP settings.
type Mailer struct {
	settings model.EmailSettings
	logger   *slog.Logger
	sendFn   func(Message) error
}

// New returns a Mailer. Nothing is dialled until SendReport.
func New(settings model.EmailSettings, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mailer{settings: settings, logger: logger}
	m.sendFn = m.dial
	return m
}

// Check validates the settings without connecting: a recipient is set
// and the PGP public key, when configured, can be read.
func (m *Mailer) Check() error {
	if len(m.settings.To) == 0 {
		return ErrNoRecipient
	}
	if m.settings.PGPPublicKeyPath == "" {
		return nil
	}
	if _, err := readKeyRing(m.settings.PGPPublicKeyPath); err != nil {
		return fmt.Errorf("pgp public key: %w", err)
	}
	return nil
}

// SendReport mails the file at reportPath as an attachment. The body is
// the configured contents, or the default template filled from summary.
func (m *Mailer) SendReport(ctx context.Context, summary Summary, reportPath string) error {
	s := m.settings
	if err := m.Check(); err != nil {
		return err
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}
	att := Attachment{
		Name:        attachmentName(reportPath),
		ContentType: "application/octet-stream",
		Data:        data,
	}
	if s.PGPPublicKeyPath != "" {
		enc, err := encryptWithPGP(data, s.PGPPublicKeyPath)
		if err != nil {
			return fmt.Errorf("pgp encryption: %w", err)
		}
		att.Name += ".asc"
		att.Data = enc
	}

	subject := s.Subject
	if subject == "" {
		subject = summary.Title
	}
	body := s.Contents
	if body == "" {
		body = RenderTemplate(DefaultTemplate(), summary.Params())
	}

	msg := Message{
		From:        s.User,
		FromName:    s.FromName,
		To:          s.To,
		Cc:          s.Cc,
		Subject:     sanitizeHeader(subject),
		Body:        body,
		Attachments: []Attachment{att},
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.sendFn(msg); err != nil {
		return fmt.Errorf("sending report: %w", err)
	}
	m.logger.Info("report emailed", "to", strings.Join(msg.To, ","), "cc", len(msg.Cc), "attachment", att.Name)
	return nil
}

// dial opens one SMTP connection, implicit TLS or STARTTLS depending on
// the settings, and sends msg.
func (m *Mailer) dial(msg Message) error {
	s := m.settings
	d := gomail.NewDialer(s.Host, s.SMTPPort(), s.User, s.Password)
	d.SSL = s.UseSSL()

	sc, err := d.Dial()
	if err != nil {
		return fmt.Errorf("smtp dial %s:%d: %w", s.Host, s.SMTPPort(), err)
	}
	defer sc.Close()

	return sc.Send(msg.From, msg.Recipients(), m.compose(msg))
}

func (m *Mailer) compose(msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	if msg.FromName != "" {
		gm.SetAddressHeader("From", msg.From, msg.FromName)
	} else {
		gm.SetHeader("From", msg.From)
	}
	gm.SetHeader("To", strings.Join(msg.To, ","))
	if len(msg.Cc) > 0 {
		gm.SetHeader("Cc", strings.Join(msg.Cc, ","))
	}
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.Body)

	for _, a := range msg.Attachments {
		data := a.Data
		gm.Attach(a.Name,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}
	return gm
}

func attachmentName(path string) string {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return defaultAttachmentName
	}
	return name
}

func readKeyRing(path string) (openpgp.EntityList, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	entityList, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	return entityList, nil
}

// encryptWithPGP encrypts plaintext for the public key at keyPath and
// returns it armored.
func encryptWithPGP(plaintext []byte, keyPath string) ([]byte, error) {
	entityList, err := readKeyRing(keyPath)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	armorWriter, err := armor.Encode(&buf, "PGP MESSAGE", nil)
	if err != nil {
		return nil, fmt.Errorf("creating armor writer: %w", err)
	}

	encWriter, err := openpgp.Encrypt(armorWriter, entityList, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating encrypt writer: %w", err)
	}

	if _, err := encWriter.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return nil, fmt.Errorf("closing encrypt writer: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return nil, fmt.Errorf("closing armor writer: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeHeader keeps header values on one line.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
