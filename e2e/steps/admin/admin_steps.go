package admin

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cucumber/godog"

	"salesgate/pkg/platform/middleware/admin"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GetAdminToken() string
	GetSessionIDFor(name string) string
	GetUserIDFor(name string) string
}

// RegisterSteps registers forced revocation step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^an admin revokes the session of "([^"]*)"$`, steps.revokeSession)
	ctx.Step(`^I revoke the session of "([^"]*)" without an admin token$`, steps.revokeSessionWithoutToken)
	ctx.Step(`^an admin logs out "([^"]*)" everywhere$`, steps.logoutEverywhere)
	ctx.Step(`^an admin logs out "([^"]*)" on tenant "([^"]*)"$`, steps.logoutOnTenant)
}

type adminSteps struct {
	tc TestContext
}

func (s *adminSteps) headers() map[string]string {
	return map[string]string{
		admin.TokenHeader:   s.tc.GetAdminToken(),
		admin.ActorIDHeader: "e2e-operator",
	}
}

func (s *adminSteps) sessionPath(name string) (string, error) {
	sessionID := s.tc.GetSessionIDFor(name)
	if sessionID == "" {
		return "", fmt.Errorf("no session saved for %s", name)
	}
	return "/admin/sessions/" + sessionID + "/revoke", nil
}

func (s *adminSteps) revokeSession(ctx context.Context, name string) error {
	path, err := s.sessionPath(name)
	if err != nil {
		return err
	}
	return s.tc.POST(path, nil, s.headers())
}

func (s *adminSteps) revokeSessionWithoutToken(ctx context.Context, name string) error {
	path, err := s.sessionPath(name)
	if err != nil {
		return err
	}
	return s.tc.POST(path, nil, nil)
}

func (s *adminSteps) logout(name string, query url.Values) error {
	userID := s.tc.GetUserIDFor(name)
	if userID == "" {
		return fmt.Errorf("no user saved for %s", name)
	}
	path := "/admin/users/" + userID + "/logout"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return s.tc.POST(path, nil, s.headers())
}

func (s *adminSteps) logoutEverywhere(ctx context.Context, name string) error {
	return s.logout(name, nil)
}

func (s *adminSteps) logoutOnTenant(ctx context.Context, name, tenant string) error {
	return s.logout(name, url.Values{"tenant": {tenant}})
}
