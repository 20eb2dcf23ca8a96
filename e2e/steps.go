package e2e

import (
	"github.com/cucumber/godog"

	"kitclaim/e2e/steps/claim"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	claim.RegisterSteps(ctx, tc)
}
