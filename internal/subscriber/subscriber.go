// Package subscriber resolves the billing contacts of an employer.
package subscriber

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/jobboard/internal/clock"
	employerdomain "github.com/smallbiznis/jobboard/internal/employer/domain"
	"github.com/smallbiznis/jobboard/internal/notification"
	obslogger "github.com/smallbiznis/jobboard/internal/observability/logger"
)

const defaultAdminName = "Admin"

type Directory interface {
	// GetAdminEmails returns the normalized, de-duplicated, sorted admin addresses of one employer.
	GetAdminEmails(ctx context.Context, employerID snowflake.ID) ([]string, error)
	GetAdminEmailsByEmployer(ctx context.Context, employerIDs []snowflake.ID) (map[snowflake.ID][]string, error)
	// EnsureAdmin creates a fallback admin from email when the employer has no usable address.
	EnsureAdmin(ctx context.Context, employerID snowflake.ID, email, name string) ([]string, error)
}

var Module = fx.Module("subscriber",
	fx.Provide(NewDirectory),
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  employerdomain.Repository
}

type directory struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  employerdomain.Repository
}

func NewDirectory(p Params) Directory {
	return &directory{
		db:    p.DB,
		log:   p.Log.Named("subscriber.directory"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (d *directory) GetAdminEmails(ctx context.Context, employerID snowflake.ID) ([]string, error) {
	admins, err := d.repo.ListAdmins(ctx, d.db, employerID)
	if err != nil {
		return nil, err
	}
	return normalize(admins), nil
}

func (d *directory) GetAdminEmailsByEmployer(ctx context.Context, employerIDs []snowflake.ID) (map[snowflake.ID][]string, error) {
	out := make(map[snowflake.ID][]string, len(employerIDs))
	if len(employerIDs) == 0 {
		return out, nil
	}
	admins, err := d.repo.ListAdminsByEmployers(ctx, d.db, employerIDs)
	if err != nil {
		return nil, err
	}
	grouped := make(map[snowflake.ID][]employerdomain.AdminUser, len(employerIDs))
	for _, a := range admins {
		grouped[a.EmployerID] = append(grouped[a.EmployerID], a)
	}
	for _, id := range employerIDs {
		out[id] = normalize(grouped[id])
	}
	return out, nil
}

func (d *directory) EnsureAdmin(ctx context.Context, employerID snowflake.ID, email, name string) ([]string, error) {
	emails, err := d.GetAdminEmails(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if len(emails) > 0 {
		return emails, nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !notification.LooksLikeEmail(email) {
		return emails, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultAdminName
	}

	created, err := d.repo.InsertAdmin(ctx, d.db, &employerdomain.AdminUser{
		ID:         d.genID.Generate(),
		EmployerID: employerID,
		Email:      email,
		Name:       name,
		CreatedAt:  d.clock.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if created {
		obslogger.WithContext(ctx, d.log).Info("created fallback admin",
			zap.String("employer_id", employerID.String()),
		)
	}
	return []string{email}, nil
}

func normalize(admins []employerdomain.AdminUser) []string {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, a := range admins {
		e := strings.ToLower(strings.TrimSpace(a.Email))
		if notification.LooksLikeEmail(e) {
			set.Add(e)
		}
	}
	out := set.ToSlice()
	sort.Strings(out)
	return out
}
