// Package email delivers billing notifications over Amazon SES.
package email

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/crewfleet/billing-service/usecase"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config holds the sending identity and environment routing. Outside
// production every message is redirected to the testing inbox so invoice
// runs against staging data never reach real companies.
type Config struct {
	Sender       string `mapstructure:"sender"`
	Region       string `mapstructure:"region"`
	Production   bool   `mapstructure:"production"`
	TestingInbox string `mapstructure:"testing_inbox"`
}

// AttachmentFetcher loads a stored document so it can ride along as a MIME
// attachment.
type AttachmentFetcher interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// SESNotifier implements usecase.Notifier on top of SES v2.
type SESNotifier struct {
	client      *sesv2.Client
	attachments AttachmentFetcher
	templates   *template.Template
	cfg         Config
	logger      *zap.Logger
}

// NewSESNotifier builds the notifier from the ambient AWS credential chain.
func NewSESNotifier(ctx context.Context, cfg Config, attachments AttachmentFetcher, logger *zap.Logger) (*SESNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse email templates")
	}

	return &SESNotifier{
		client:      sesv2.NewFromConfig(awsCfg),
		attachments: attachments,
		templates:   tmpl,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// SendEmail renders the message body from its template and delivers it. With
// an attachment key present the stored PDF is fetched and the message goes
// out as raw multipart MIME; otherwise a simple HTML message is sent.
func (n *SESNotifier) SendEmail(ctx context.Context, msg *usecase.EmailMessage) error {
	body, err := n.renderBody(msg)
	if err != nil {
		return err
	}

	to, cc := n.route(msg)
	if len(to) == 0 {
		return errors.New("email has no recipients")
	}

	var content types.EmailContent
	if msg.AttachmentKey != "" {
		raw, err := n.buildRaw(ctx, msg, body, to, cc)
		if err != nil {
			return err
		}
		content = types.EmailContent{Raw: &types.RawMessage{Data: raw}}
	} else {
		content = types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(body)},
				},
			},
		}
	}

	_, err = n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.cfg.Sender),
		Destination: &types.Destination{
			ToAddresses: to,
			CcAddresses: cc,
		},
		Content: &content,
	})
	if err != nil {
		return errors.Wrapf(err, "send email %q", msg.Subject)
	}

	n.logger.Info("email sent",
		zap.String("template", msg.Template),
		zap.Strings("to", to),
		zap.String("subject", msg.Subject))
	return nil
}

func (n *SESNotifier) renderBody(msg *usecase.EmailMessage) (string, error) {
	var buf bytes.Buffer
	name := msg.Template + ".html"
	if err := n.templates.ExecuteTemplate(&buf, name, msg.Data); err != nil {
		return "", errors.Wrapf(err, "render template %s", name)
	}
	return buf.String(), nil
}

// route swaps recipients for the testing inbox outside production.
func (n *SESNotifier) route(msg *usecase.EmailMessage) (to, cc []string) {
	if n.cfg.Production {
		return msg.To, msg.Cc
	}
	if n.cfg.TestingInbox == "" {
		return nil, nil
	}
	return []string{n.cfg.TestingInbox}, nil
}

// buildRaw assembles a multipart/mixed MIME message with the HTML body and
// the stored PDF as a base64 attachment.
func (n *SESNotifier) buildRaw(ctx context.Context, msg *usecase.EmailMessage, body string, to, cc []string) ([]byte, error) {
	pdf, err := n.attachments.Get(ctx, msg.AttachmentKey)
	if err != nil {
		return nil, errors.Wrap(err, "fetch attachment")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", n.cfg.Sender)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	if len(cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(cc, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	htmlPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create html part")
	}
	if _, err := htmlPart.Write([]byte(body)); err != nil {
		return nil, errors.Wrap(err, "write html part")
	}

	name := msg.AttachmentName
	if name == "" {
		name = "invoice.pdf"
	}
	attachPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/pdf"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", name)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create attachment part")
	}
	encoded := base64.StdEncoding.EncodeToString(pdf)
	for len(encoded) > 0 {
		line := encoded
		if len(line) > 76 {
			line = line[:76]
		}
		if _, err := fmt.Fprintf(attachPart, "%s\r\n", line); err != nil {
			return nil, errors.Wrap(err, "write attachment part")
		}
		encoded = encoded[len(line):]
	}

	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "close mime writer")
	}
	return buf.Bytes(), nil
}
