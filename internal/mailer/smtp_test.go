package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"github.com/testreport/internal/model"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeReport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nightly.html")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	return path
}

func captureSend(t *testing.T, m *Mailer) *Message {
	t.Helper()
	var captured Message
	m.sendFn = func(msg Message) error {
		captured = msg
		return nil
	}
	return &captured
}

func summary() Summary {
	return Summary{
		Title: "冒烟测试",
		Counts: model.Counts{
			model.OutcomePassed:  3,
			model.OutcomeFailed:  1,
			model.OutcomeSkipped: 2,
		},
	}
}

func TestSendReport(t *testing.T) {
	m := New(model.EmailSettings{
		User:     "ci@example.org",
		FromName: "CI",
		To:       []string{"a@example.org", "b@example.org"},
		Cc:       []string{"lead@example.org"},
	}, discard)
	captured := captureSend(t, m)

	path := writeReport(t, "<html>report</html>")
	if err := m.SendReport(context.Background(), summary(), path); err != nil {
		t.Fatalf("SendReport returned an error: %v", err)
	}

	if captured.Subject != "冒烟测试" {
		t.Errorf("subject should default to the report title, got %q", captured.Subject)
	}
	want := []string{"a@example.org", "b@example.org", "lead@example.org"}
	if got := captured.Recipients(); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("recipients = %v, want %v", got, want)
	}
	if len(captured.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(captured.Attachments))
	}
	att := captured.Attachments[0]
	if att.Name != "nightly.html" {
		t.Errorf("attachment name = %q", att.Name)
	}
	if att.ContentType != "application/octet-stream" {
		t.Errorf("attachment content type = %q", att.ContentType)
	}
	if string(att.Data) != "<html>report</html>" {
		t.Errorf("attachment data = %q", att.Data)
	}
	for _, s := range []string{"冒烟测试", ">4<", ">3<", ">1<", ">2<", "75.0%"} {
		if !strings.Contains(captured.Body, s) {
			t.Errorf("expected %q in body", s)
		}
	}
}

func TestSendReportCustomContents(t *testing.T) {
	m := New(model.EmailSettings{
		To:       []string{"a@example.org"},
		Subject:  "Nightly",
		Contents: "<p>see attachment</p>",
	}, discard)
	captured := captureSend(t, m)

	if err := m.SendReport(context.Background(), summary(), writeReport(t, "x")); err != nil {
		t.Fatalf("SendReport: %v", err)
	}
	if captured.Subject != "Nightly" {
		t.Errorf("subject = %q", captured.Subject)
	}
	if captured.Body != "<p>see attachment</p>" {
		t.Errorf("body = %q", captured.Body)
	}
}

func TestSendReportRequiresRecipient(t *testing.T) {
	m := New(model.EmailSettings{Host: "smtp.example.org"}, discard)
	called := false
	m.sendFn = func(Message) error {
		called = true
		return nil
	}

	err := m.SendReport(context.Background(), summary(), writeReport(t, "x"))
	if !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	if err.Error() != "please specify the email address to send" {
		t.Errorf("unexpected message: %v", err)
	}
	if called {
		t.Error("nothing should be sent without a recipient")
	}
}

func TestSendReportPropagatesSendError(t *testing.T) {
	m := New(model.EmailSettings{To: []string{"a@example.org"}}, discard)
	m.sendFn = func(Message) error { return errors.New("535 authentication failed") }

	err := m.SendReport(context.Background(), summary(), writeReport(t, "x"))
	if err == nil || !strings.Contains(err.Error(), "535 authentication failed") {
		t.Fatalf("expected the SMTP error, got %v", err)
	}
}

func TestSendReportMissingFile(t *testing.T) {
	m := New(model.EmailSettings{To: []string{"a@example.org"}}, discard)
	captureSend(t, m)
	if err := m.SendReport(context.Background(), summary(), filepath.Join(t.TempDir(), "none.html")); err == nil {
		t.Fatal("expected an error for a missing report")
	}
}

func TestComposeHeaders(t *testing.T) {
	m := New(model.EmailSettings{}, discard)
	gm := m.compose(Message{
		From:     "ci@example.org",
		FromName: "CI",
		To:       []string{"a@example.org", "b@example.org"},
		Cc:       []string{"c@example.org"},
		Subject:  "Report",
		Body:     "<p>hi</p>",
		Attachments: []Attachment{
			{Name: "report.html", ContentType: "application/octet-stream", Data: []byte("<html></html>")},
		},
	})

	var buf bytes.Buffer
	if _, err := gm.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	raw := buf.String()

	cases := []struct {
		name string
		want string
	}{
		{"from header", "From: \"CI\" <ci@example.org>"},
		{"to header", "To: a@example.org,b@example.org"},
		{"cc header", "Cc: c@example.org"},
		{"subject header", "Subject: Report"},
		{"attachment", `filename="report.html"`},
		{"attachment type", "Content-Type: application/octet-stream"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !strings.Contains(raw, tc.want) {
				t.Errorf("expected %q in message, got:\n%s", tc.want, raw)
			}
		})
	}
}

func TestAttachmentName(t *testing.T) {
	cases := map[string]string{
		"/tmp/out/report-1.html": "report-1.html",
		"index.html":             "index.html",
		"":                       "report.html",
	}
	for in, want := range cases {
		if got := attachmentName(in); got != want {
			t.Errorf("attachmentName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDialerSettings(t *testing.T) {
	ssl := false
	cases := []struct {
		name string
		s    model.EmailSettings
		port int
		tls  bool
	}{
		{"default port is implicit tls", model.EmailSettings{}, 465, true},
		{"submission port uses starttls", model.EmailSettings{Port: 587}, 587, false},
		{"explicit ssl wins", model.EmailSettings{Port: 465, SSL: &ssl}, 465, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.s.SMTPPort(); got != tc.port {
				t.Errorf("port = %d, want %d", got, tc.port)
			}
			if got := tc.s.UseSSL(); got != tc.tls {
				t.Errorf("ssl = %v, want %v", got, tc.tls)
			}
		})
	}
}

func generateTestKey(t *testing.T) (publickey, privatekey string) {
	t.Helper()

	entity, err := openpgp.NewEntity("Test User", "", "test@example.org", nil)
	if err != nil {
		t.Fatalf("generate test key: %v", err)
	}

	var pubBuf, privBuf strings.Builder
	pubWriter, _ := armor.Encode(&pubBuf, "PGP PUBLIC KEY BLOCK", nil)
	entity.Serialize(pubWriter)
	pubWriter.Close()

	privWriter, _ := armor.Encode(&privBuf, "PGP PRIVATE KEY BLOCK", nil)
	entity.SerializePrivate(privWriter, nil)
	privWriter.Close()

	return pubBuf.String(), privBuf.String()
}

func mustDecrypt(t *testing.T, armoredPrivKey, armoredMsg string) string {
	t.Helper()

	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredPrivKey))
	if err != nil {
		t.Fatalf("mustDecrypt: read private key: %v", err)
	}
	block, err := armor.Decode(strings.NewReader(armoredMsg))
	if err != nil {
		t.Fatalf("mustDecrypt: decode armor: %v", err)
	}
	md, err := openpgp.ReadMessage(block.Body, keyring, nil, nil)
	if err != nil {
		t.Fatalf("mustDecrypt: read message: %v", err)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, md.UnverifiedBody); err != nil {
		t.Fatalf("mustDecrypt: read body: %v", err)
	}
	return buf.String()
}

func writeKey(t *testing.T, key string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pub.asc")
	if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

func TestSendEncryptedReport(t *testing.T) {
	pubKey, privKey := generateTestKey(t)
	m := New(model.EmailSettings{
		To:               []string{"admin@example.org"},
		PGPPublicKeyPath: writeKey(t, pubKey),
	}, discard)
	captured := captureSend(t, m)

	if err := m.SendReport(context.Background(), summary(), writeReport(t, "Sensitive info")); err != nil {
		t.Fatalf("send report error: %v", err)
	}

	att := captured.Attachments[0]
	if att.Name != "nightly.html.asc" {
		t.Errorf("attachment name = %q", att.Name)
	}
	if !strings.Contains(string(att.Data), "-----BEGIN PGP MESSAGE-----") {
		t.Errorf("expected PGP encrypted attachment")
	}
	if got := mustDecrypt(t, privKey, string(att.Data)); got != "Sensitive info" {
		t.Errorf("decrypted attachment = %q", got)
	}
}

func TestCheck(t *testing.T) {
	pubKey, _ := generateTestKey(t)
	to := []string{"qa@example.org"}

	tests := []struct {
		name     string
		settings model.EmailSettings
		wantErr  string
	}{
		{"no recipient", model.EmailSettings{}, ErrNoRecipient.Error()},
		{"plain", model.EmailSettings{To: to}, ""},
		{"valid key", model.EmailSettings{To: to, PGPPublicKeyPath: writeKey(t, pubKey)}, ""},
		{"missing key", model.EmailSettings{To: to, PGPPublicKeyPath: filepath.Join(t.TempDir(), "none.asc")}, "pgp public key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.settings, discard).Check()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Check() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Check() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestRenderTemplate(t *testing.T) {
	got := RenderTemplate("${mail_title}: ${mail_rate}% ${unknown}", Summary{Title: "T"}.Params())
	if got != "T: 0.0% ${unknown}" {
		t.Errorf("RenderTemplate = %q", got)
	}
}
