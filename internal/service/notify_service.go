package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/repository"
	pkglogger "github.com/communityweb/strtracker/pkg/logger"
	"github.com/communityweb/strtracker/pkg/mailer"
	"github.com/communityweb/strtracker/pkg/storage"
	"github.com/mitchellh/go-wordwrap"
)

const (
	wrapColumns = 72

	noReplyNotice = "DO NOT REPLY TO THIS MESSAGE. INSTEAD, POST ANY RESPONSES TO THE LINK BELOW."

	// SubjectReply prefixes notifications about existing reports
	SubjectReply = "Re: "
)

// NotifyConfig holds the addresses and limits used to compose notifications
type NotifyConfig struct {
	SiteURL         string
	ProjectAddress  string
	NoReplyAddress  string
	InlineFileBytes int64
}

// Notice describes one change to announce
type Notice struct {
	Report        *domain.Report
	Content       string
	File          *domain.ReportFile
	SubjectPrefix string
}

// Notifier sends report notifications
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifyService composes and sends report notification emails and manages
// each report's carbon-copy list
type NotifyService struct {
	sender mailer.Sender
	users  repository.UserRepository
	cc     repository.CarbonCopyRepository
	files  storage.FileStore
	cfg    NotifyConfig
}

// NewNotifyService creates a new NotifyService
func NewNotifyService(
	sender mailer.Sender,
	users repository.UserRepository,
	cc repository.CarbonCopyRepository,
	files storage.FileStore,
	cfg NotifyConfig,
) *NotifyService {
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	return &NotifyService{sender: sender, users: users, cc: cc, files: files, cfg: cfg}
}

// Notify sends one email; failures are logged and counted, never returned
func (s *NotifyService) Notify(ctx context.Context, n Notice) {
	log := pkglogger.WithReport(n.Report.ID)

	msg, err := s.Compose(ctx, n)
	if err != nil {
		notifications.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("compose notification failed")
		return
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		notifications.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Strs("to", msg.To).Msg("send notification failed")
		return
	}
	notifications.WithLabelValues("sent").Inc()
	log.Info().Strs("to", msg.To).Strs("cc", msg.Cc).Msg("notification sent")
}

// Compose builds the message for a notice without sending it
func (s *NotifyService) Compose(ctx context.Context, n Notice) (*mailer.Message, error) {
	r := n.Report
	modifier := r.ModifyUser

	// recipient: the manager, or the creator when the manager made this change
	to := s.cfg.ProjectAddress
	var toUser string
	if r.ManagerUser != "" {
		toUser = r.ManagerUser
		if modifier == r.ManagerUser {
			toUser = r.CreateUser
		}
	}

	var ccUsers []string
	if r.CreateUser != "" && r.CreateUser != modifier && r.CreateUser != toUser {
		ccUsers = append(ccUsers, r.CreateUser)
	}

	emails, err := s.resolve(ctx, append([]string{toUser}, ccUsers...))
	if err != nil {
		return nil, err
	}
	if addr := emails[toUser]; addr != "" {
		to = addr
	}
	if to == "" {
		return nil, mailer.ErrNoRecipient
	}

	var cc []string
	for _, u := range ccUsers {
		cc = append(cc, emails[u])
	}
	if r.ManagerUser != "" && r.Status >= domain.StatusUnresolved {
		cc = append(cc, s.cfg.ProjectAddress)
	}
	subscribed, err := s.cc.ListEmails(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("list carbon copies: %w", err)
	}
	cc = append(cc, subscribed...)

	msg := &mailer.Message{
		To:      []string{to},
		Cc:      dedupe(cc, to),
		ReplyTo: s.cfg.ProjectAddress,
		Subject: fmt.Sprintf("%sSTR #%d: %s", n.SubjectPrefix, r.ID, r.Summary),
	}
	if r.Status.IsOpen() {
		msg.ReplyTo = s.cfg.NoReplyAddress
	}

	var fileLine string
	if n.File != nil {
		if att := s.inlineAttachment(ctx, n.File); att != nil {
			msg.Attachments = append(msg.Attachments, *att)
		} else {
			fileLine = "Attachment: " + s.fileURL(n.File)
		}
	}

	msg.Body = s.body(r, n.Content, fileLine)
	return msg, nil
}

func (s *NotifyService) body(r *domain.Report, content, fileLine string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[STR %s]\n\n", r.Status)
	if r.Status.IsOpen() {
		b.WriteString(wordwrap.WrapString(noReplyNotice, wrapColumns) + "\n\n")
	}
	if content = strings.TrimSpace(content); content != "" {
		b.WriteString(wordwrap.WrapString(content, wrapColumns))
		b.WriteString("\n\n")
	}
	if fileLine != "" {
		b.WriteString(fileLine + "\n\n")
	}
	fmt.Fprintf(&b, "Link: %s\n", s.permalink(r.ID))
	fmt.Fprintf(&b, "Version: %s\n", r.StrVersion)
	if r.FixVersion != "" {
		fmt.Fprintf(&b, "Fix Version: %s", r.FixVersion)
		if r.FixRevision != "" {
			fmt.Fprintf(&b, " (r%s)", r.FixRevision)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// inlineAttachment returns nil when the file should be linked instead.
// Storage errors fall back to the link so the notice still goes out.
func (s *NotifyService) inlineAttachment(ctx context.Context, f *domain.ReportFile) *mailer.Attachment {
	if strings.EqualFold(path.Ext(f.Filename), ".zip") {
		return nil
	}
	log := pkglogger.WithReport(f.StrID)
	rc, err := s.files.Get(ctx, storage.ReportKey(f.StrID, f.Filename))
	if err != nil {
		log.Warn().Err(err).Str("file", f.Filename).Msg("open attachment failed, linking instead")
		return nil
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.cfg.InlineFileBytes+1))
	if err != nil {
		log.Warn().Err(err).Str("file", f.Filename).Msg("read attachment failed, linking instead")
		return nil
	}
	if int64(len(data)) > s.cfg.InlineFileBytes {
		return nil
	}

	ct := contentType(f.Filename, "")
	if strings.HasPrefix(ct, "text/") || (ct == "application/octet-stream" && isText(data)) {
		ct = "text/plain; charset=utf-8"
	}
	return &mailer.Attachment{Filename: f.Filename, ContentType: ct, Data: data}
}

func (s *NotifyService) permalink(id int) string {
	return fmt.Sprintf("%s/str/%d", s.cfg.SiteURL, id)
}

func (s *NotifyService) fileURL(f *domain.ReportFile) string {
	return fmt.Sprintf("%s/str/%d/files/%s", s.cfg.SiteURL, f.StrID, url.PathEscape(f.Filename))
}

// resolve maps usernames to addresses; a name that already is an address is kept as is
func (s *NotifyService) resolve(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	var lookup []string
	for _, n := range names {
		switch {
		case n == "":
		case strings.Contains(n, "@"):
			out[n] = n
		default:
			lookup = append(lookup, n)
		}
	}
	if len(lookup) == 0 {
		return out, nil
	}
	found, err := s.users.EmailsByNames(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	for k, v := range found {
		out[k] = v
	}
	return out, nil
}

// Subscribe adds an address to the report's CC list. Empty email means the
// actor's own; only developers may subscribe other addresses.
func (s *NotifyService) Subscribe(ctx context.Context, actor domain.Actor, reportID int, email string) (string, error) {
	addr, err := s.ccAddress(actor, email)
	if err != nil {
		return "", err
	}
	return addr, s.cc.Add(ctx, reportID, addr, actor.Username)
}

// Unsubscribe removes an address from the report's CC list
func (s *NotifyService) Unsubscribe(ctx context.Context, actor domain.Actor, reportID int, email string) (string, error) {
	addr, err := s.ccAddress(actor, email)
	if err != nil {
		return "", err
	}
	return addr, s.cc.Remove(ctx, reportID, addr)
}

// CarbonCopies lists the report's CC list; developers only
func (s *NotifyService) CarbonCopies(ctx context.Context, actor domain.Actor, reportID int) ([]string, error) {
	if !actor.IsDeveloper() {
		return nil, nil
	}
	return s.cc.ListEmails(ctx, reportID)
}

func (s *NotifyService) ccAddress(actor domain.Actor, email string) (string, error) {
	if !actor.IsLoggedIn() {
		return "", common.ErrUnauthorized
	}
	email = strings.ToLower(strings.TrimSpace(email))
	own := strings.ToLower(actor.Email)
	switch {
	case email == "" && own == "":
		return "", common.ErrInvalidInput
	case email == "":
		return own, nil
	case email != own && !actor.IsDeveloper():
		return "", common.ErrForbidden
	}
	return email, nil
}

func dedupe(addrs []string, exclude string) []string {
	seen := map[string]bool{strings.ToLower(exclude): true}
	var out []string
	for _, a := range addrs {
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func isText(data []byte) bool {
	return bytes.IndexByte(data, 0) < 0 && utf8.Valid(data)
}
