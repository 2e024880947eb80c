package subscriber

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/jobboard/internal/clock"
	employerrepo "github.com/smallbiznis/jobboard/internal/employer/repository"
	"github.com/smallbiznis/jobboard/internal/testutil"
)

func setup(t *testing.T) (Directory, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	dir := NewDirectory(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  employerrepo.Provide(),
	})
	return dir, db, node
}

func TestGetAdminEmailsNormalizes(t *testing.T) {
	dir, db, node := setup(t)
	id := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{
		Slug:   "acme",
		Admins: []string{" Zed@Acme.com", "zed@acme.com ", "broken", "amy@acme.com"},
	})

	emails, err := dir.GetAdminEmails(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy@acme.com", "zed@acme.com"}, emails)
}

func TestGetAdminEmailsByEmployer(t *testing.T) {
	dir, db, node := setup(t)
	a := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "a", Admins: []string{"hr@a.com"}})
	b := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "b"})

	got, err := dir.GetAdminEmailsByEmployer(context.Background(), []snowflake.ID{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"hr@a.com"}, got[a])
	assert.Empty(t, got[b])
	assert.Contains(t, got, b)
}

func TestEnsureAdminCreatesFallbackOnce(t *testing.T) {
	dir, db, node := setup(t)
	ctx := context.Background()
	id := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "acme"})

	emails, err := dir.EnsureAdmin(ctx, id, " Owner@Acme.com ", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@acme.com"}, emails)

	emails, err = dir.EnsureAdmin(ctx, id, "other@acme.com", "Other")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@acme.com"}, emails)

	testutil.AssertCount(t, db, "SELECT COUNT(1) FROM employer_admin_users WHERE employer_id = ? AND name = 'Admin'", 1, id)
}

func TestEnsureAdminSkipsInvalidContact(t *testing.T) {
	dir, db, node := setup(t)
	id := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "acme"})

	emails, err := dir.EnsureAdmin(context.Background(), id, "not-an-email", "x")
	require.NoError(t, err)
	assert.Empty(t, emails)
	testutil.AssertCount(t, db, "SELECT COUNT(1) FROM employer_admin_users", 0)
}
