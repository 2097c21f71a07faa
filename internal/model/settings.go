package model

// EmailSettings configures delivery of the finished report. Nothing is
// dialled unless Enabled is set.
type EmailSettings struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	User             string   `json:"user" yaml:"user"`
	Password         string   `json:"-" yaml:"password"`
	Host             string   `json:"host" yaml:"host"`
	Port             int      `json:"port" yaml:"port"`
	SSL              *bool    `json:"ssl,omitempty" yaml:"ssl"`
	FromName         string   `json:"fromName" yaml:"from_name"`
	To               []string `json:"to" yaml:"to"`
	Cc               []string `json:"cc" yaml:"cc"`
	Subject          string   `json:"subject" yaml:"subject"`
	Contents         string   `json:"contents" yaml:"contents"`
	PGPPublicKeyPath string   `json:"pgpPublicKeyPath" yaml:"pgp_public_key"`
}

// DefaultSMTPPort is the implicit-TLS submission port.
const DefaultSMTPPort = 465

// UseSSL reports whether the connection starts with TLS. Unset means
// implicit TLS on port 465 and STARTTLS elsewhere.
func (s *EmailSettings) UseSSL() bool {
	if s.SSL != nil {
		return *s.SSL
	}
	return s.SMTPPort() == DefaultSMTPPort
}

func (s *EmailSettings) SMTPPort() int {
	if s.Port == 0 {
		return DefaultSMTPPort
	}
	return s.Port
}
