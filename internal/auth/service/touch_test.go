package service

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	id "salesgate/pkg/domain"
	"salesgate/pkg/requestcontext"
	fixtures "salesgate/pkg/testutil"
)

func (s *ServiceSuite) TestTouch_RunsDetachedFromRequest() {
	sid := fixtures.TestIDs.SessionID1
	ctx, cancel := context.WithCancel(requestcontext.WithRequestID(s.ctx, "req-1"))

	var touchErr error
	var at time.Time
	s.mockSessionStore.EXPECT().Touch(gomock.Any(), sid, gomock.Any()).DoAndReturn(
		func(tctx context.Context, _ id.SessionID, t time.Time) error {
			touchErr = tctx.Err()
			at = t
			_, hasDeadline := tctx.Deadline()
			s.True(hasDeadline)
			return nil
		})

	cancel()
	s.service.Touch(ctx, sid)
	s.Require().NoError(s.service.Wait(context.Background()))

	s.NoError(touchErr, "request cancellation must not cancel the touch")
	s.Equal(s.now, at)
}

func (s *ServiceSuite) TestTouch_FailureIsCountedNotReturned() {
	s.mockSessionStore.EXPECT().Touch(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("down"))

	s.service.Touch(s.ctx, fixtures.TestIDs.SessionID1)
	s.Require().NoError(s.service.Wait(context.Background()))

	s.Equal(1.0, testutil.ToFloat64(s.metrics.TouchFailures))
}

func (s *ServiceSuite) TestTouch_NilSessionIsIgnored() {
	s.service.Touch(s.ctx, id.SessionID{})
	s.Require().NoError(s.service.Wait(context.Background()))
}
