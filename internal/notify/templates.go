package notify

import "fmt"

// Confirmation email copy per form. Plain text; the site renders the styled
// versions, this service only needs the transactional fallbacks.

func confirmationSubject(kind string) string {
	switch kind {
	case "waitlist":
		return "You're on the Solace waitlist"
	case "contact":
		return "We received your message"
	case "referral":
		return "Referral received"
	default:
		return "Thank you for reaching out"
	}
}

func confirmationBody(kind, name string) string {
	greeting := "Hello,"
	if name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}

	switch kind {
	case "waitlist":
		return greeting + "\n\n" +
			"Thank you for joining the Solace Retreat waitlist. We review openings\n" +
			"weekly and will reach out as soon as a place becomes available.\n\n" +
			"Warmly,\nThe Solace Care Team"
	case "contact":
		return greeting + "\n\n" +
			"Thank you for contacting Solace Retreat. A member of our care team\n" +
			"will reply within two business days.\n\n" +
			"Warmly,\nThe Solace Care Team"
	case "referral":
		return greeting + "\n\n" +
			"Thank you for your referral. Our clinical team reviews every referral\n" +
			"personally and will follow up with next steps.\n\n" +
			"Warmly,\nThe Solace Care Team"
	default:
		return greeting + "\n\nThank you for reaching out to Solace Retreat.\n\nWarmly,\nThe Solace Care Team"
	}
}

func staffAlertSubject(kind string) string {
	return fmt.Sprintf("New %s submission", kind)
}

func staffAlertBody(kind, summary, link string) string {
	body := fmt.Sprintf("A new %s submission just arrived.\n\n%s\n", kind, summary)
	if link != "" {
		body += "\nReview it in the dashboard: " + link + "\n"
	}
	return body
}

func newsletterWelcomeBody(unsubscribeURL string) string {
	return "Welcome to the Solace Retreat newsletter.\n\n" +
		"Once a month we share retreat openings, practitioner interviews, and\n" +
		"recovery resources. No noise, ever.\n\n" +
		"If this wasn't you, unsubscribe here: " + unsubscribeURL + "\n"
}
