package support

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/homest/internal/version"
)

// theOutputShouldContainVersionInformation verifies --version output.
func (testCtx *TestContext) theOutputShouldContainVersionInformation() error {
	if !strings.Contains(testCtx.LastOutput, version.Version) {
		return fmt.Errorf("output does not contain version %s: %s", version.Version, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldListAvailableSubcommands verifies help output.
func (testCtx *TestContext) theOutputShouldListAvailableSubcommands() error {
	for _, sub := range []string{"estimate", "batch", "generate", "serve", "bench", "config"} {
		if !strings.Contains(testCtx.LastOutput, sub) {
			return fmt.Errorf("help output does not list subcommand %q", sub)
		}
	}
	return nil
}

// theErrorShouldSuggestAvailableCommands verifies cobra's unknown command hint.
func (testCtx *TestContext) theErrorShouldSuggestAvailableCommands() error {
	return testCtx.theErrorShouldMention("unknown command")
}

// noOutputShouldBeWritten verifies a failed command left stdout empty.
func (testCtx *TestContext) noOutputShouldBeWritten() error {
	if strings.TrimSpace(testCtx.LastOutput) != "" {
		return fmt.Errorf("expected no output, got: %s", testCtx.LastOutput)
	}
	return nil
}

// RegisterErrorSteps registers step definitions for failure cases.
func (testCtx *TestContext) RegisterErrorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the output should contain version information$`, testCtx.theOutputShouldContainVersionInformation)
	sc.Step(`^the output should list available subcommands$`, testCtx.theOutputShouldListAvailableSubcommands)
	sc.Step(`^the error should suggest available commands$`, testCtx.theErrorShouldSuggestAvailableCommands)
	sc.Step(`^no output should be written$`, testCtx.noOutputShouldBeWritten)
}
