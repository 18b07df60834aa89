package email

import (
	"fmt"
	"time"
)

// OTPMessage renders the verification-code email. Returns subject, html and
// text bodies.
func OTPMessage(appName, code string, ttl time.Duration) (string, string, string) {
	subject := fmt.Sprintf("%s verification code", appName)

	minutes := int(ttl.Minutes())
	text := fmt.Sprintf(
		"Your %s verification code is %s. It expires in %d minutes.\n\nIf you did not request this code, you can ignore this email.",
		appName, code, minutes,
	)
	html := fmt.Sprintf(
		`<p>Your %s verification code is:</p><p style="font-size:1.5em"><strong>%s</strong></p><p>It expires in %d minutes.</p><p>If you did not request this code, you can ignore this email.</p>`,
		appName, code, minutes,
	)

	return subject, html, text
}
