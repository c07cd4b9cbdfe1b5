package notify

import (
	"fmt"
	"strings"
)

// maxFailedTestsListed caps the {{failedTests}} expansion so a huge
// run does not blow up a chat message.
const maxFailedTestsListed = 10

// DefaultTemplate is used when a channel config sets no template.
const DefaultTemplate = "Test run {{grade}}: {{passed}}/{{total}} passed ({{passRate}}%), " +
	"{{failed}} failed, {{flaky}} flaky\n{{failedTests}}"

// RenderTemplate substitutes the run's statistics into a message
// template. Tokens are flat, there is no conditional logic.
func RenderTemplate(template string, in Input) string {
	s := in.Summary

	replacer := strings.NewReplacer(
		"{{total}}", fmt.Sprintf("%d", s.Total),
		"{{passed}}", fmt.Sprintf("%d", s.Passed),
		"{{failed}}", fmt.Sprintf("%d", s.Failed),
		"{{skipped}}", fmt.Sprintf("%d", s.Skipped),
		"{{flaky}}", fmt.Sprintf("%d", s.Flaky),
		"{{passRate}}", fmt.Sprintf("%.2f", s.PassRate),
		"{{duration}}", fmt.Sprintf("%dms", s.Duration),
		"{{grade}}", summaryGrade(s),
		"{{failedTests}}", failedTestsList(in),
	)

	return strings.TrimSpace(replacer.Replace(template))
}

func failedTestsList(in Input) string {
	if in.Results == nil {
		return ""
	}

	failed := in.Results.Failed()
	if len(failed) == 0 {
		return ""
	}

	lines := make([]string, 0, maxFailedTestsListed+1)

	for i, r := range failed {
		if i == maxFailedTestsListed {
			lines = append(lines, fmt.Sprintf("... and %d more", len(failed)-maxFailedTestsListed))

			break
		}

		lines = append(lines, "- "+r.Key())
	}

	return strings.Join(lines, "\n")
}
