package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/cucumber/godog"

	"salesgate/internal/seeder"
	request "salesgate/pkg/platform/middleware/request"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetTokenFor(name string) string
	SetTokenFor(name, token string)
	SetSessionIDFor(name, sessionID string)
	SetUserIDFor(name, userID string)
	GetBaseURL() string
	GetHTTPClient() *http.Client
}

// RegisterSteps registers session lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc, password: password()}

	// Login steps
	ctx.Step(`^"([^"]*)" logs in as "([^"]*)" on tenant "([^"]*)"$`, steps.logInOnTenant)
	ctx.Step(`^"([^"]*)" logs in as "([^"]*)" without a tenant$`, steps.logInWithoutTenant)
	ctx.Step(`^I log in as "([^"]*)" on tenant "([^"]*)" with password "([^"]*)"$`, steps.logInWithPassword)
	ctx.Step(`^(\d+) clients log in concurrently as "([^"]*)" on tenant "([^"]*)"$`, steps.concurrentLogins)
	ctx.Step(`^exactly (\d+) of the logins should succeed$`, steps.exactlyNLoginsSucceeded)
	ctx.Step(`^the others should fail with "([^"]*)"$`, steps.othersFailedWith)

	// Profile steps
	ctx.Step(`^"([^"]*)" requests their profile on tenant "([^"]*)"$`, steps.profileOnTenant)
	ctx.Step(`^"([^"]*)" requests their profile without a tenant$`, steps.profileWithoutTenant)
	ctx.Step(`^I request the profile with token "([^"]*)"$`, steps.profileWithRawToken)

	// Logout steps
	ctx.Step(`^"([^"]*)" logs out$`, steps.logOut)
	ctx.Step(`^"([^"]*)" logs out with the token in the body$`, steps.logOutWithBodyToken)
}

func password() string {
	if p := os.Getenv("E2E_PASSWORD"); p != "" {
		return p
	}
	return seeder.DemoPassword
}

type loginOutcome struct {
	status int
	code   string
}

type authSteps struct {
	tc       TestContext
	password string

	mu       sync.Mutex
	outcomes []loginOutcome
}

func (s *authSteps) login(code, tenant, password string) error {
	headers := map[string]string{"User-Agent": "salesgate-e2e/1.0"}
	if tenant != "" {
		headers[request.TenantHeader] = tenant
	}
	return s.tc.POST("/login", map[string]string{"code": code, "password": password}, headers)
}

func (s *authSteps) saveLogin(name string) error {
	if status := s.tc.GetLastResponseStatus(); status != http.StatusOK {
		return fmt.Errorf("login for %s failed with status %d: %s", name, status, string(s.tc.GetLastResponseBody()))
	}
	for field, set := range map[string]func(string, string){
		"token":     s.tc.SetTokenFor,
		"sessionId": s.tc.SetSessionIDFor,
		"id":        s.tc.SetUserIDFor,
	} {
		v, err := s.tc.GetResponseField(field)
		if err != nil {
			return err
		}
		set(name, fmt.Sprint(v))
	}
	return nil
}

func (s *authSteps) logInOnTenant(ctx context.Context, name, code, tenant string) error {
	if err := s.login(code, tenant, s.password); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusOK {
		return nil
	}
	return s.saveLogin(name)
}

func (s *authSteps) logInWithoutTenant(ctx context.Context, name, code string) error {
	return s.logInOnTenant(ctx, name, code, "")
}

func (s *authSteps) logInWithPassword(ctx context.Context, code, tenant, password string) error {
	return s.login(code, tenant, password)
}

// concurrentLogins fires n logins for the same user at once. It uses its own
// requests so the shared last-response state is not raced.
func (s *authSteps) concurrentLogins(ctx context.Context, n int, code, tenant string) error {
	baseURL, client := s.tc.GetBaseURL(), s.tc.GetHTTPClient()
	body, _ := json.Marshal(map[string]string{"code": code, "password": s.password})

	s.outcomes = s.outcomes[:0]
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/login", bytes.NewReader(body))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(request.TenantHeader, tenant)
			resp, err := client.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			var payload struct {
				Code  string `json:"code"`
				Token string `json:"token"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&payload)

			s.mu.Lock()
			defer s.mu.Unlock()
			s.outcomes = append(s.outcomes, loginOutcome{status: resp.StatusCode, code: payload.Code})
			if resp.StatusCode == http.StatusOK {
				s.tc.SetTokenFor(fmt.Sprintf("concurrent-%d", len(s.outcomes)), payload.Token)
			}
		}()
	}
	wg.Wait()
	if len(s.outcomes) != n {
		return fmt.Errorf("only %d of %d logins completed", len(s.outcomes), n)
	}
	return nil
}

func (s *authSteps) exactlyNLoginsSucceeded(ctx context.Context, n int) error {
	ok := 0
	for _, o := range s.outcomes {
		if o.status == http.StatusOK {
			ok++
		}
	}
	if ok != n {
		return fmt.Errorf("expected %d successful logins, got %d: %+v", n, ok, s.outcomes)
	}
	return nil
}

func (s *authSteps) othersFailedWith(ctx context.Context, code string) error {
	for _, o := range s.outcomes {
		if o.status != http.StatusOK && o.code != code {
			return fmt.Errorf("expected failure code %s, got %+v", code, o)
		}
	}
	return nil
}

func (s *authSteps) bearer(name, tenant string) (map[string]string, error) {
	token := s.tc.GetTokenFor(name)
	if token == "" {
		return nil, fmt.Errorf("no token saved for %s", name)
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	if tenant != "" {
		headers[request.TenantHeader] = tenant
	}
	return headers, nil
}

func (s *authSteps) profileOnTenant(ctx context.Context, name, tenant string) error {
	headers, err := s.bearer(name, tenant)
	if err != nil {
		return err
	}
	return s.tc.GET("/me", headers)
}

func (s *authSteps) profileWithoutTenant(ctx context.Context, name string) error {
	return s.profileOnTenant(ctx, name, "")
}

func (s *authSteps) profileWithRawToken(ctx context.Context, token string) error {
	return s.tc.GET("/me", map[string]string{"Authorization": "Bearer " + token})
}

func (s *authSteps) logOut(ctx context.Context, name string) error {
	headers, err := s.bearer(name, "")
	if err != nil {
		return err
	}
	return s.tc.POST("/logout", nil, headers)
}

func (s *authSteps) logOutWithBodyToken(ctx context.Context, name string) error {
	token := s.tc.GetTokenFor(name)
	if token == "" {
		return fmt.Errorf("no token saved for %s", name)
	}
	return s.tc.POST("/logout", map[string]string{"token": token}, nil)
}
