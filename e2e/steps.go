package e2e

import (
	"github.com/cucumber/godog"

	"salesgate/e2e/steps/admin"
	"salesgate/e2e/steps/auth"
	"salesgate/e2e/steps/common"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	admin.RegisterSteps(ctx, tc)
}
