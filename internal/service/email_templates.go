package service

import "fmt"

func verificationEmailTemplate(verifyURL, appName string) (subject, body string) {
	subject = fmt.Sprintf("Verify your email - %s", appName)
	body = fmt.Sprintf(`Welcome to %s!

Please confirm your email address by opening this link:

%s

Do not share this link with anyone. If you did not create an account,
you can safely ignore this email.
`, appName, verifyURL)
	return subject, body
}

func passwordResetEmailTemplate(resetURL, appName string) (subject, body string) {
	subject = fmt.Sprintf("Reset your password - %s", appName)
	body = fmt.Sprintf(`You requested to reset your %s password.

Open this link to choose a new password. The link is valid for 1 hour:

%s

Do not share this link with anyone. If you did not request this, you can
safely ignore this email.
`, appName, resetURL)
	return subject, body
}
