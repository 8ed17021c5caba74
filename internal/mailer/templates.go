package mailer

import (
	"fmt"
	"strings"
	"time"
)

// Message is a rendered outbound email.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

func orThere(firstName string) string {
	if strings.TrimSpace(firstName) == "" {
		return "there"
	}
	return firstName
}

func baseLayout(title, inner, supportEmail string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8" /></head>
<body style="margin:0; padding:0; background:#0f2f28;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="background:#0f2f28; padding:24px 0;">
    <tr><td align="center">
      <table width="600" cellpadding="0" cellspacing="0" style="max-width:600px; background:#0b3a31; border-radius:16px;">
        <tr><td style="padding:20px; text-align:center; color:#ffffff; font-family:Arial,sans-serif;"><h2 style="margin:0;">%s</h2></td></tr>
        <tr><td style="padding:20px; color:#ffffff; font-family:Arial,sans-serif; line-height:1.5;">%s</td></tr>
        <tr><td style="padding:16px; text-align:center; color:#9fbfb5; font-family:Arial,sans-serif; font-size:12px;">Need help? %s</td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`, title, inner, supportEmail)
}

// BuildWelcome renders the signup welcome email.
func BuildWelcome(firstName, appURL, supportEmail string) Message {
	subject := "Welcome to OpenSpots"
	inner := fmt.Sprintf(`<p>Hi %s,</p>
<p>You're in. OpenSpots helps you park faster with verified locations and simple checkout.</p>
<p><a href="%s" style="color:#7fd7bd;">Open OpenSpots</a></p>`, orThere(firstName), appURL)
	text := fmt.Sprintf(`Hi %s,

You're in. OpenSpots helps you park faster with verified locations and simple checkout.

OpenSpots: %s
Need help? %s
`, orThere(firstName), appURL, supportEmail)
	return Message{Subject: subject, HTML: baseLayout(subject, inner, supportEmail), Text: text}
}

// BuildPaymentMethodAdded renders the saved-card confirmation.
func BuildPaymentMethodAdded(firstName, appURL, supportEmail, cardBrand, last4 string, expMonth, expYear int64) Message {
	subject := "Payment method added"
	cardLine := "Your payment method is now saved."
	if cardBrand != "" && last4 != "" {
		cardLine = fmt.Sprintf("%s •••• %s", strings.ToUpper(cardBrand), last4)
		if expMonth > 0 && expYear > 0 {
			cardLine = fmt.Sprintf("%s (exp %d/%d)", cardLine, expMonth, expYear)
		}
	}
	inner := fmt.Sprintf(`<p>Hi %s,</p>
<p>%s</p>
<p>You're ready to park in seconds.</p>
<p><a href="%s" style="color:#7fd7bd;">Open OpenSpots</a></p>`, orThere(firstName), cardLine, appURL)
	text := fmt.Sprintf(`Hi %s,

Payment method added.

%s

OpenSpots: %s
Need help? %s
`, orThere(firstName), cardLine, appURL, supportEmail)
	return Message{Subject: subject, HTML: baseLayout(subject, inner, supportEmail), Text: text}
}

// BuildParkingStarted renders the "session is now ACTIVE" notification.
func BuildParkingStarted(firstName, appURL, supportEmail, zoneNumber string, startedAt time.Time, ratePerHour float64) Message {
	subject := "Parking started"
	zonePart := ""
	if zoneNumber != "" {
		zonePart = fmt.Sprintf(" (Zone %s)", zoneNumber)
	}
	inner := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your parking session is now <strong>ACTIVE</strong>%s.</p>
<p>You can end your session anytime from <strong>My Spots</strong>.</p>
<p><a href="%s/my-spots.html" style="color:#7fd7bd;">View My Session</a></p>`, orThere(firstName), zonePart, appURL)
	text := fmt.Sprintf(`Hi %s,

Your parking session is ACTIVE%s.
Start: %s
Rate: $%.2f/hr

Manage: %s/my-spots.html
Need help? %s
`, orThere(firstName), zonePart, startedAt.Format(time.Kitchen), ratePerHour, appURL, supportEmail)
	return Message{Subject: subject, HTML: baseLayout(subject, inner, supportEmail), Text: text}
}

// BuildParkingReceipt renders the end-of-session receipt.
func BuildParkingReceipt(firstName, appURL, supportEmail, zoneNumber string, startTime, endTime time.Time, totalMinutes int64, totalAmount float64) Message {
	subject := "Receipt: parking completed"
	zonePart := ""
	if zoneNumber != "" {
		zonePart = fmt.Sprintf(" • Zone %s", zoneNumber)
	}
	inner := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your parking session is complete%s.</p>
<p>Duration: %d min<br/>Total: $%.2f</p>
<p><a href="%s/my-spots.html" style="color:#7fd7bd;">View Activity</a></p>`, orThere(firstName), zonePart, totalMinutes, totalAmount, appURL)
	text := fmt.Sprintf(`Hi %s,

Parking completed%s.
Start: %s
End: %s
Duration: %d min
Total: $%.2f

View activity: %s/my-spots.html
Need help? %s
`, orThere(firstName), zonePart, startTime.Format(time.Kitchen), endTime.Format(time.Kitchen), totalMinutes, totalAmount, appURL, supportEmail)
	return Message{Subject: subject, HTML: baseLayout(subject, inner, supportEmail), Text: text}
}

// BuildParkingCancelled renders the never-materialized session notice.
func BuildParkingCancelled(firstName, appURL, supportEmail, zoneNumber string) Message {
	subject := "Parking session cancelled"
	zonePart := ""
	if zoneNumber != "" {
		zonePart = fmt.Sprintf(" for Zone %s", zoneNumber)
	}
	inner := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your pending parking session%s was cancelled because no vehicle arrived. You were not charged.</p>
<p><a href="%s" style="color:#7fd7bd;">Open OpenSpots</a></p>`, orThere(firstName), zonePart, appURL)
	text := fmt.Sprintf(`Hi %s,

Your pending parking session%s was cancelled because no vehicle arrived.
You were not charged.

OpenSpots: %s
Need help? %s
`, orThere(firstName), zonePart, appURL, supportEmail)
	return Message{Subject: subject, HTML: baseLayout(subject, inner, supportEmail), Text: text}
}
