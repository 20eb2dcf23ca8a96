// Package claim defines godog steps for the license claim endpoints.
package claim

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the main test context these steps need.
type TestContext interface {
	AuthenticateAs(email string) error
	POST(path string, body any) error
	LastStatus() int
	GetResponseField(field string) (any, error)
	Reset()
}

// RegisterSteps registers claim-related step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &claimSteps{tc: tc}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.Reset()
		return ctx, nil
	})

	ctx.Step(`^I am authenticated as "([^"]*)"$`, steps.authenticateAs)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)
	ctx.Step(`^I claim the code "([^"]*)"$`, steps.claimCode)
	ctx.Step(`^I claim the token "([^"]*)"$`, steps.claimToken)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusIs)
	ctx.Step(`^the response error should be "([^"]*)"$`, steps.responseErrorIs)
	ctx.Step(`^the response message should contain a claimed license$`, steps.responseHasLicense)
}

type claimSteps struct {
	tc TestContext
}

func (s *claimSteps) authenticateAs(_ context.Context, email string) error {
	return s.tc.AuthenticateAs(email)
}

func (s *claimSteps) notAuthenticated(_ context.Context) error {
	s.tc.Reset()
	return nil
}

func (s *claimSteps) claimCode(_ context.Context, code string) error {
	return s.tc.POST("/licenses/claim", map[string]any{"code": code})
}

func (s *claimSteps) claimToken(_ context.Context, token string) error {
	return s.tc.POST("/licenses/claim-token", map[string]any{"token": token})
}

func (s *claimSteps) responseStatusIs(_ context.Context, status int) error {
	if s.tc.LastStatus() != status {
		return fmt.Errorf("expected status %d, got %d", status, s.tc.LastStatus())
	}
	return nil
}

func (s *claimSteps) responseErrorIs(_ context.Context, code string) error {
	value, err := s.tc.GetResponseField("error")
	if err != nil {
		return err
	}
	if value != code {
		return fmt.Errorf("expected error %q, got %v", code, value)
	}
	return nil
}

func (s *claimSteps) responseHasLicense(_ context.Context) error {
	if _, err := s.tc.GetResponseField("license"); err != nil {
		return err
	}
	_, err := s.tc.GetResponseField("message")
	return err
}
