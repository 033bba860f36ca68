package notify

import (
	"strconv"

	"gopkg.in/gomail.v2"
)

// SMTPSender delivers messages through a plain SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(host, port, user, password, from string) (*SMTPSender, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		p = 587
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(host, p, user, password),
		from:   from,
	}, nil
}

func (s *SMTPSender) Send(m Message) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	return s.dialer.DialAndSend(msg)
}
