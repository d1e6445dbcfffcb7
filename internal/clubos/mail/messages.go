package mail

import (
	"fmt"
	"html"
)

// InviteMessage builds the club-invitation email. The link lands on the
// signup page with the invite token prefilled, matching the frontend route.
func InviteMessage(frontendURL, clubName, inviteToken string) (subject, body string) {
	link := fmt.Sprintf("%s/signup?inviteToken=%s", frontendURL, inviteToken)
	subject = fmt.Sprintf("You're invited to join %s", clubName)
	body = fmt.Sprintf(`<p>Hello,</p>
<p>You have been invited to join <strong>%s</strong> on ClubOS.</p>
<p><a href="%s">Create your account</a> to accept the invitation.
The invitation expires in 7 days.</p>
<p>If you weren't expecting this, you can ignore this email.</p>`,
		html.EscapeString(clubName), link)
	return subject, body
}

// ResetMessage builds the password-reset email.
func ResetMessage(frontendURL, resetToken string) (subject, body string) {
	link := fmt.Sprintf("%s/reset-password/%s", frontendURL, resetToken)
	subject = "Reset your ClubOS password"
	body = fmt.Sprintf(`<p>Hello,</p>
<p>We received a request to reset your password.
<a href="%s">Choose a new password</a> within the next 15 minutes.</p>
<p>If you didn't request this, your account is still safe and no action is
needed.</p>`, link)
	return subject, body
}
