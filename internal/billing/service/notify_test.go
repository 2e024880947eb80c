package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/jobboard/internal/billing/domain"
	"github.com/smallbiznis/jobboard/internal/billing/repository"
	"github.com/smallbiznis/jobboard/internal/clock"
	"github.com/smallbiznis/jobboard/internal/config"
	employerrepo "github.com/smallbiznis/jobboard/internal/employer/repository"
	"github.com/smallbiznis/jobboard/internal/notification"
	notificationmocks "github.com/smallbiznis/jobboard/internal/notification/mocks"
	planrepo "github.com/smallbiznis/jobboard/internal/plan/repository"
	"github.com/smallbiznis/jobboard/internal/subscriber"
	"github.com/smallbiznis/jobboard/internal/testutil"
)

func TestSendPreviewMailRendersEveryKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := notificationmocks.NewMockSender(ctrl)

	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(testNow)
	employers := employerrepo.Provide()
	billingCfg := config.DefaultBillingConfig()
	billingCfg.Timezone = "UTC"

	svc := NewService(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Config:       config.Config{FrontendOrigin: "https://jobs.example"},
		BillingCfg:   config.NewStaticBillingConfigHolder(billingCfg),
		Repo:         repository.Provide(),
		EmployerRepo: employers,
		PlanRepo:     planrepo.Provide(),
		Directory: subscriber.NewDirectory(subscriber.Params{
			DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: employers,
		}),
		Sender: sender,
	})

	empID := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{
		Slug: "initech", Name: "Initech", Admins: []string{"not-an-email", "boss@initech.test"},
	})

	kinds := []domain.PreviewMailKind{
		domain.PreviewMailTrial,
		domain.PreviewMailPaid,
		domain.PreviewMailWarn3,
		domain.PreviewMailWarn1,
		domain.PreviewMailExpired,
	}
	subjects := map[string]bool{}
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg notification.Message) (notification.Receipt, error) {
			assert.Equal(t, []string{"boss@initech.test"}, msg.To)
			assert.NotEmpty(t, msg.Kind)
			assert.NotEmpty(t, msg.HTML)
			assert.NotEmpty(t, msg.Text)
			return notification.Receipt{MessageID: "m", Provider: "test", Recipients: msg.To, SentAt: testNow}, nil
		}).
		Times(len(kinds))

	for _, kind := range kinds {
		res, err := svc.SendPreviewMail(context.Background(), empID, kind)
		require.NoError(t, err, kind)
		assert.Equal(t, []string{"boss@initech.test"}, res.SentTo)
		subjects[res.Subject] = true
	}
	assert.Len(t, subjects, len(kinds))

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return(notification.Receipt{}, errors.New("smtp down"))
	_, err := svc.SendPreviewMail(context.Background(), empID, domain.PreviewMailTrial)
	assert.Error(t, err)
}
