// Package entitlement issues and checks bearer-token access to purchased courses.
package entitlement

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/samber/lo"
)

const (
	tokenBytes = 32
	accessPage = "/acceder-curso.html"
)

type Config struct {
	GrantTTL  time.Duration
	ClientURL string
}

type Provisioner struct {
	grants   port.AccessGrantRepository
	catalog  port.CatalogSource
	security port.SecurityRecorder
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Provisioner)

func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) { p.now = now }
}

func NewProvisioner(
	grants port.AccessGrantRepository,
	catalog port.CatalogSource,
	security port.SecurityRecorder,
	cfg Config,
	log *slog.Logger,
	opts ...Option,
) (*Provisioner, error) {
	if grants == nil {
		return nil, errors.New("grants is nil")
	}
	if catalog == nil {
		return nil, errors.New("catalog is nil")
	}
	if security == nil {
		return nil, errors.New("security is nil")
	}
	if cfg.GrantTTL <= 0 {
		return nil, errors.New("GrantTTL must be positive")
	}
	if _, err := url.ParseRequestURI(cfg.ClientURL); err != nil {
		return nil, fmt.Errorf("ClientURL: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	p := &Provisioner{
		grants:   grants,
		catalog:  catalog,
		security: security,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

type Issued struct {
	Grant   domain.AccessGrant
	Link    string
	Created bool
}

// Issue grants access to a course for an order. Repeated calls for the same
// order and course return the existing grant with Created=false.
func (p *Provisioner) Issue(ctx context.Context, email string, courseID, orderID uuid.UUID) (Issued, error) {
	email = normalizeEmail(email)
	if email == "" {
		return Issued{}, domain.Validationf("email is required")
	}
	if courseID == uuid.Nil || orderID == uuid.Nil {
		return Issued{}, domain.Validationf("course and order ids are required")
	}

	token, err := newToken()
	if err != nil {
		return Issued{}, fmt.Errorf("newToken: %w", err)
	}

	grant, created, err := p.grants.InsertGrant(ctx, domain.AccessGrant{
		Email:     email,
		CourseID:  courseID,
		OrderID:   orderID,
		Token:     token,
		ExpiresAt: p.now().Add(p.cfg.GrantTTL),
		Active:    true,
	})
	if err != nil {
		return Issued{}, fmt.Errorf("grants.InsertGrant: %w", err)
	}

	if created {
		p.log.Info("course access issued", "order_id", orderID, "course_id", courseID)
	}

	return Issued{
		Grant:   grant,
		Link:    p.Link(grant.Token),
		Created: created,
	}, nil
}

func (p *Provisioner) Link(token string) string {
	return strings.TrimRight(p.cfg.ClientURL, "/") + accessPage + "?token=" + url.QueryEscape(token)
}

type Verification struct {
	Valid   bool
	Message string
	Grant   domain.AccessGrant
	Course  domain.Course
}

// Verify reports an unusable token as Valid=false; errors are reserved for failures.
func (p *Provisioner) Verify(ctx context.Context, token string) (Verification, error) {
	grant, reason, err := p.usableGrant(ctx, token)
	if err != nil {
		return Verification{}, err
	}
	if reason != "" {
		return Verification{Message: reason}, nil
	}

	course, err := p.course(ctx, grant.CourseID)
	if err != nil {
		return Verification{}, err
	}

	now := p.now()
	if err := p.grants.TouchGrant(ctx, grant.ID, now); err != nil {
		return Verification{}, fmt.Errorf("grants.TouchGrant: %w", err)
	}
	grant.LastAccessAt = &now

	return Verification{
		Valid:  true,
		Grant:  grant,
		Course: course,
	}, nil
}

func (p *Provisioner) Lesson(ctx context.Context, token string, lessonID uuid.UUID) (domain.Lesson, error) {
	grant, err := p.requireGrant(ctx, token)
	if err != nil {
		return domain.Lesson{}, err
	}

	course, err := p.course(ctx, grant.CourseID)
	if err != nil {
		return domain.Lesson{}, err
	}

	lesson, ok := lo.Find(course.Lessons, func(l domain.Lesson) bool { return l.ID == lessonID })
	if !ok {
		return domain.Lesson{}, fmt.Errorf("lesson %s: %w", lessonID, domain.ErrLessonNotFound)
	}

	return lesson, nil
}

type Progress struct {
	Progress  int
	Completed bool
}

func (p *Provisioner) UpdateProgress(ctx context.Context, token string, progress int, completed bool) (Progress, error) {
	grant, err := p.requireGrant(ctx, token)
	if err != nil {
		return Progress{}, err
	}

	result := Progress{
		Progress:  domain.ClampProgress(progress),
		Completed: completed || progress >= 100,
	}

	if err := p.grants.UpdateProgress(ctx, grant.ID, result.Progress, result.Completed); err != nil {
		return Progress{}, fmt.Errorf("grants.UpdateProgress: %w", err)
	}

	if err := p.grants.TouchGrant(ctx, grant.ID, p.now()); err != nil {
		return Progress{}, fmt.Errorf("grants.TouchGrant: %w", err)
	}

	return result, nil
}

type CourseAccess struct {
	Grant  domain.AccessGrant
	Course domain.Course
}

// CoursesForEmail lists active, unexpired grants of an email with their courses.
func (p *Provisioner) CoursesForEmail(ctx context.Context, email string) ([]CourseAccess, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, domain.Validationf("email is required")
	}

	grants, err := p.grants.ListGrantsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("grants.ListGrantsByEmail: %w", err)
	}

	now := p.now()
	result := make([]CourseAccess, 0, len(grants))

	for _, g := range grants {
		if !g.Active || g.Expired(now) {
			continue
		}

		course, err := p.course(ctx, g.CourseID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				p.log.Warn("granted course is missing from the catalog", "course_id", g.CourseID, "grant_id", g.ID)
				continue
			}
			return nil, err
		}

		result = append(result, CourseAccess{Grant: g, Course: course})
	}

	return result, nil
}

// usableGrant returns a non-empty reason when the token cannot be used.
func (p *Provisioner) usableGrant(ctx context.Context, token string) (domain.AccessGrant, string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.AccessGrant{}, "", domain.Validationf("access token is required")
	}

	grant, err := p.grants.GetGrantByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.recordInvalid(ctx, "unknown_token", uuid.Nil)
			return domain.AccessGrant{}, "Invalid or expired access token", nil
		}
		return domain.AccessGrant{}, "", fmt.Errorf("grants.GetGrantByToken: %w", err)
	}

	if !grant.Active {
		p.recordInvalid(ctx, "inactive_grant", grant.ID)
		return domain.AccessGrant{}, "Invalid or expired access token", nil
	}

	if grant.Expired(p.now()) {
		return domain.AccessGrant{}, "Access has expired", nil
	}

	return grant, "", nil
}

func (p *Provisioner) requireGrant(ctx context.Context, token string) (domain.AccessGrant, error) {
	grant, reason, err := p.usableGrant(ctx, token)
	if err != nil {
		return domain.AccessGrant{}, err
	}
	if reason != "" {
		return domain.AccessGrant{}, fmt.Errorf("%s: %w", reason, domain.ErrInvalidAccess)
	}
	return grant, nil
}

func (p *Provisioner) recordInvalid(ctx context.Context, reason string, grantID uuid.UUID) {
	details := map[string]any{"reason": reason}
	if grantID != uuid.Nil {
		details["grant_id"] = grantID.String()
	}
	p.security.Record(ctx, domain.EventUnauthorizedAccess, domain.SeverityLow, details)
}

func (p *Provisioner) course(ctx context.Context, courseID uuid.UUID) (domain.Course, error) {
	course, err := p.catalog.Course(ctx, courseID)
	if err != nil {
		return domain.Course{}, fmt.Errorf("catalog.Course: %w", err)
	}

	course.Lessons = slices.Clone(course.Lessons)
	slices.SortFunc(course.Lessons, func(a, b domain.Lesson) int { return a.Position - b.Position })

	return course, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
