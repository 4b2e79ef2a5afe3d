package service

import (
	"fmt"
	"strings"

	"github.com/templui/fractional/internal/model"
)

func welcomeEmailTemplate(name, appURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready. Set this month's goals and log today's numbers to start your streak:
%s

Best,
The %s Team`, greetingName(name), appURL, appName)

	return subject, body
}

func insightDigestEmailTemplate(name string, insights []*model.UserInsight, appURL, appName string) (string, string) {
	subject := fmt.Sprintf("%d new insight(s) need your attention", len(insights))
	if len(insights) == 1 {
		subject = insights[0].Title
	}

	var b strings.Builder
	for _, in := range insights {
		fmt.Fprintf(&b, "* %s\n  %s\n", in.Title, in.Description)
		for _, action := range in.SuggestedActions {
			fmt.Fprintf(&b, "  - %s\n", action)
		}
		b.WriteString("\n")
	}

	body := fmt.Sprintf(`Hi %s,

Here is what stood out in your numbers today:

%sReview and dismiss them here:
%s/insights

Best,
The %s Team`, greetingName(name), b.String(), strings.TrimSuffix(appURL, "/"), appName)

	return subject, body
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}
