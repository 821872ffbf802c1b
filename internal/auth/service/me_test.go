package service

import (
	"errors"

	"go.uber.org/mock/gomock"

	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestMe() {
	user := s.newUser()

	s.Run("returns the profile", func() {
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
		got, err := s.service.Me(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal(user, got)
	})

	s.Run("deleted user is unauthorized", func() {
		s.allowAudit()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Me(s.ctx, user.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("store failure is unavailable", func() {
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(nil, errors.New("down"))
		_, err := s.service.Me(s.ctx, user.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
