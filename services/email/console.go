package emailsvc

import (
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ozgesheedu/ozgeshe/core"
)

var (
	sentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

// SentMessages returns a copy of every message delivered by a console service.
func SentMessages() []core.EmailMessage {
	mu.Lock()
	defer mu.Unlock()
	return append([]core.EmailMessage{}, sentMessages...)
}

// ResetSentMessages forgets the recorded messages.
func ResetSentMessages() {
	mu.Lock()
	sentMessages = sentMessages[:0]
	mu.Unlock()
}

func record(msg core.EmailMessage) {
	mu.Lock()
	sentMessages = append(sentMessages, msg)
	mu.Unlock()
}

// consoleService logs the messages it would send, one MIME document per recipient.
type consoleService struct {
	conf   *core.Config
	logger core.Logger
	quiet  bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{conf: conf, logger: logger}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.deliver(msg)
	}
}

func (svc consoleService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(svc.conf); err != nil {
		svc.logger.Error("rendering email", errors.Wrap(err, msg.Category()))
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	for _, to := range msg.To {
		doc, err := svc.format(*msg, to.String())
		if err != nil {
			svc.logger.Error("formatting email", errors.Wrap(err, msg.Category()))
			return
		}
		if !svc.quiet {
			svc.logger.Info("email sent", map[string]interface{}{"category": msg.Category(), "to": to.Address, "message": doc})
		}
	}
	record(*msg)
}

func (svc consoleService) format(msg core.EmailMessage, to string) (string, error) {
	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.conf.DefaultFromEmail.String())
	_, _ = fmt.Fprintf(body, "To: %s\r\n", to)
	_, _ = fmt.Fprintf(body, "Subject: [%s] %s\r\n", svc.conf.AppName, msg.Subject)
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")

	if msg.HTMLContent == "" {
		_, _ = fmt.Fprintf(body, "Content-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", msg.TextContent)
		return body.String(), nil
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())
	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", msg.TextContent},
		{"text/html; charset=utf-8", msg.HTMLContent},
	} {
		w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return "", errors.Wrap(err, "creating "+part.contentType+" part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", part.content)
	}
	if err := altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart body")
	}
	return body.String(), nil
}

type consoleServiceMock struct {
	consoleService
}

// NewConsoleServiceMock records messages synchronously without printing them.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleServiceMock{consoleService: consoleService{conf: conf, logger: logger, quiet: true}}
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		svc.deliver(msg)
	}
}
