package queries_test

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/adapters/out/postgres/orderrepo"
	"dispatch/internal/adapters/out/postgres/pgtest"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
)

type AuthorizeOrderRoomQueryHandlerTestSuite struct {
	suite.Suite
	database *pgtest.Database
	handler  queries.AuthorizeOrderRoomQueryHandler

	assigned   *order.Order
	unassigned *order.Order
	partnerID  kernel.UUID
}

func (suite *AuthorizeOrderRoomQueryHandlerTestSuite) SetupSuite() {
	database, err := pgtest.Start(context.Background())
	suite.Require().NoError(err)
	suite.database = database
	suite.handler = queries.NewAuthorizeOrderRoomQueryHandler(database.DB)
}

func (suite *AuthorizeOrderRoomQueryHandlerTestSuite) TearDownSuite() {
	suite.Require().NoError(suite.database.Terminate(context.Background()))
}

func (suite *AuthorizeOrderRoomQueryHandlerTestSuite) SetupTest() {
	suite.Require().NoError(suite.database.Truncate())
	repo := orderrepo.NewGormOrderRepository(suite.database.DB, noopTracker{})

	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	suite.partnerID = kernel.NewUUID()

	assigned, err := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(),
		kernel.MustNewLocation(28.63, 77.22), kernel.MustNewLocation(28.60, 77.20))
	suite.Require().NoError(err)
	otp, err := kernel.NewOTP("654321", now.Add(30*time.Minute))
	suite.Require().NoError(err)
	suite.Require().NoError(assigned.Assign(suite.partnerID, otp, now.Add(35*time.Minute)))
	suite.Require().NoError(repo.Add(context.Background(), assigned))

	unassigned, err := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(),
		kernel.MustNewLocation(28.63, 77.22), kernel.MustNewLocation(28.60, 77.20))
	suite.Require().NoError(err)
	suite.Require().NoError(repo.Add(context.Background(), unassigned))

	suite.assigned = assigned
	suite.unassigned = unassigned
}

func (suite *AuthorizeOrderRoomQueryHandlerTestSuite) TestHandle() {
	tests := []struct {
		name    string
		orderID kernel.UUID
		viewer  kernel.Principal
		wantErr error
	}{
		{
			name:    "owning customer",
			orderID: suite.assigned.ID(),
			viewer:  kernel.Principal{ID: suite.assigned.CustomerID(), Role: kernel.RoleCustomer},
		},
		{
			name:    "assigned partner",
			orderID: suite.assigned.ID(),
			viewer:  kernel.Principal{ID: suite.partnerID, Role: kernel.RolePartner},
		},
		{
			name:    "admin",
			orderID: suite.unassigned.ID(),
			viewer:  kernel.Principal{ID: kernel.NewUUID(), Role: kernel.RoleAdmin},
		},
		{
			name:    "other customer",
			orderID: suite.assigned.ID(),
			viewer:  kernel.Principal{ID: kernel.NewUUID(), Role: kernel.RoleCustomer},
			wantErr: queries.ErrOrderRoomForbidden,
		},
		{
			name:    "partner of an unassigned order",
			orderID: suite.unassigned.ID(),
			viewer:  kernel.Principal{ID: suite.partnerID, Role: kernel.RolePartner},
			wantErr: queries.ErrOrderRoomForbidden,
		},
		{
			name:    "unknown order",
			orderID: kernel.NewUUID(),
			viewer:  kernel.Principal{ID: kernel.NewUUID(), Role: kernel.RoleAdmin},
			wantErr: errs.ErrObjectNotFound,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			query, err := queries.NewAuthorizeOrderRoomQuery(tt.orderID, tt.viewer)
			suite.Require().NoError(err)

			err = suite.handler.Handle(context.Background(), query)
			if tt.wantErr == nil {
				suite.NoError(err)
				return
			}
			suite.ErrorIs(err, tt.wantErr)
		})
	}
}

func TestAuthorizeOrderRoomQueryHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AuthorizeOrderRoomQueryHandlerTestSuite))
}
