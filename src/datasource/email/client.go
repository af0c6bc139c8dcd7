package email

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/jordan-wright/email"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"AirQuality/src/config"
	"AirQuality/src/storage"
)

const (
	MaxFetchMessages   = 100 // cap per fetch
	FetchBufferSize    = 10
	RecentMailDuration = 7 * 24 * time.Hour
)

func init() {
	message.CharsetReader = charsetReader
}

// MailService is the mailbox side used by CheckAndProcessEmails.
type MailService interface {
	Connect() error
	Disconnect()
	FetchRecentEmails() ([]*Email, error)
}

// Email is a fetched message with its decoded attachments.
type Email struct {
	UID         uint32
	Date        time.Time
	From        string
	Subject     string
	Attachments []*Attachment
}

// Attachment is one decoded attachment.
type Attachment struct {
	Filename string
	Content  []byte
}

// EmailClient is a thread-safe IMAP client.
type EmailClient struct {
	server    string // host:port
	username  string
	password  string
	client    *client.Client
	mu        sync.Mutex
	connected bool
}

// NewEmailClient creates a client for server (e.g. "imap.example.com:993").
func NewEmailClient(server, username, password string) *EmailClient {
	return &EmailClient{
		server:   server,
		username: username,
		password: password,
	}
}

// Connect dials TLS and logs in, reusing a live connection.
func (s *EmailClient) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		if _, err := s.client.Capability(); err == nil {
			return nil
		}
		s.client.Logout()
		s.client = nil
		s.connected = false
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.server, err)
	}

	if err := c.Login(s.username, s.password); err != nil {
		c.Logout()
		return fmt.Errorf("login: %w", err)
	}

	s.client = c
	s.connected = true
	return nil
}

// Disconnect logs out.
func (s *EmailClient) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Logout()
		s.client = nil
	}
	s.connected = false
}

// FetchRecentEmails returns the INBOX messages received within
// RecentMailDuration, newest MaxFetchMessages at most.
func (s *EmailClient) FetchRecentEmails() ([]*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, errors.New("not connected to mail server")
	}

	if _, err := s.client.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = time.Now().Add(-RecentMailDuration)

	ids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxFetchMessages {
		ids = ids[len(ids)-MaxFetchMessages:]
	}

	return s.fetchMessages(ids)
}

func (s *EmailClient) fetchMessages(ids []uint32) ([]*Email, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, FetchBufferSize)
	done := make(chan error, 1)
	go func() {
		done <- s.client.Fetch(seqset, items, messages)
	}()

	var emails []*Email
	var parseErrs int
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			parseErrs++
			continue
		}
		e, err := ParseMessage(r, msg.Uid)
		if err != nil {
			parseErrs++
			continue
		}
		if e.Date.IsZero() {
			e.Date = msg.InternalDate
		}
		emails = append(emails, e)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if parseErrs > 0 && len(emails) == 0 {
		return nil, fmt.Errorf("could not parse %d messages", parseErrs)
	}
	return emails, nil
}

// ParseMessage decodes a raw RFC 5322 message and collects its attachments.
func ParseMessage(r io.Reader, uid uint32) (*Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	header := mr.Header
	date, _ := header.Date()

	e := &Email{
		UID:     uid,
		Date:    date,
		From:    decodeHeader(header.Get("From")),
		Subject: decodeHeader(header.Get("Subject")),
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) || message.IsUnknownEncoding(err) {
				continue
			}
			return nil, fmt.Errorf("read part: %w", err)
		}

		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		if err := parseAttachment(h, p.Body, e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func parseAttachment(h *mail.AttachmentHeader, body io.Reader, e *Email) error {
	filename, err := h.Filename()
	if err != nil || filename == "" {
		return nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("read attachment %s: %w", filename, err)
	}

	e.Attachments = append(e.Attachments, &Attachment{
		Filename: decodeHeader(filename),
		Content:  buf.Bytes(),
	})
	return nil
}

// decodeHeader decodes RFC 2047 words, returning the input on failure.
func decodeHeader(header string) string {
	decoder := mime.WordDecoder{
		CharsetReader: charsetReader,
	}

	decoded, err := decoder.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// charsetReader converts the Latin charsets used by the monitoring network's
// mail to UTF-8.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "us-ascii", "":
		return input, nil
	case "iso-8859-1", "latin1", "latin-1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	case "iso-8859-15":
		return transform.NewReader(input, charmap.ISO8859_15.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unhandled charset %q", charset)
	}
}

// CheckAndProcessEmails connects, fetches recent mail and returns the latest
// message whose subject contains subject. A nil email with a nil error means
// nothing matched.
func CheckAndProcessEmails(mailService MailService, subject string, logger *storage.Logger) (*Email, error) {
	startTime := time.Now()
	logger.Info("checking mailbox")

	if err := mailService.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer mailService.Disconnect()

	emails, err := mailService.FetchRecentEmails()
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if len(emails) == 0 {
		logger.Info("no recent mail")
		return nil, nil
	}

	target := filterLatestTargetEmail(emails, subject)
	if target == nil {
		logger.Info(fmt.Sprintf("no mail with subject %q", subject))
		return nil, nil
	}

	logger.Info(fmt.Sprintf("found %q (%d attachments) in %v", target.Subject, len(target.Attachments), time.Since(startTime)))
	return target, nil
}

// filterLatestTargetEmail returns the newest message whose subject contains
// keyword.
func filterLatestTargetEmail(emails []*Email, keyword string) *Email {
	var targetEmails []*Email
	for _, e := range emails {
		if strings.Contains(e.Subject, keyword) {
			targetEmails = append(targetEmails, e)
		}
	}

	if len(targetEmails) == 0 {
		return nil
	}

	sort.SliceStable(targetEmails, func(i, j int) bool {
		return targetEmails[i].Date.After(targetEmails[j].Date)
	})

	return targetEmails[0]
}

// NewReport builds the report message carrying the given files.
func NewReport(c *config.Config, body string, attachments ...string) (*email.Email, error) {
	if len(c.SendEmail.To) == 0 {
		return nil, errors.New("send_email.to is empty")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("Air Quality Dashboard <%s>", c.SendEmail.Username)
	e.To = c.SendEmail.To
	e.Subject = c.SendEmail.Subject
	if e.Subject == "" {
		e.Subject = "Air quality report"
	}
	e.Text = []byte(body)

	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("attachment %s: %w", filepath.Base(path), err)
		}
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("attach %s: %w", filepath.Base(path), err)
		}
	}
	return e, nil
}

// SendReport mails the processed outputs over implicit TLS.
func SendReport(c *config.Config, body string, attachments ...string) error {
	e, err := NewReport(c, body, attachments...)
	if err != nil {
		return err
	}

	smtpAddr := c.SendEmail.Server
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":465"
	}
	host := strings.Split(smtpAddr, ":")[0]

	err = e.SendWithTLS(
		smtpAddr,
		smtp.PlainAuth("", c.SendEmail.Username, c.SendEmail.Password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("send report via %s: %w", smtpAddr, err)
	}
	return nil
}
