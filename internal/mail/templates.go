package mail

import (
	"html/template"
	"strings"
	"time"
)

// The bodies mirror the product emails: a headline, one action button, the
// raw link as a fallback, and the expiry note.

var verificationTmpl = template.Must(template.New("verification").Parse(`
<div style="background:#f6f8fa;padding:32px 0;font-family:Arial,sans-serif;">
  <div style="max-width:520px;margin:0 auto;background:#fff;border-radius:12px;padding:32px 24px;">
    <h2 style="color:#2e8555;text-align:center;">Welcome to DokuAI!</h2>
    <p>Thank you for registering with DokuAI. Please verify your email address by clicking the button below:</p>
    <div style="text-align:center;margin:32px 0;">
      <a href="{{.Link}}" style="background:#2e8555;color:#fff;padding:14px 36px;text-decoration:none;border-radius:8px;">Verify Email</a>
    </div>
    <p>If the button doesn't work, copy and paste this link into your browser:</p>
    <p style="word-break:break-all;color:#888;">{{.Link}}</p>
    <p style="color:#888;">This link will expire in 24 hours.</p>
    <p style="color:#888;">If you didn't create an account with DokuAI, you can safely ignore this email.</p>
  </div>
  <div style="text-align:center;margin-top:24px;color:#b3b3b3;">&copy; {{.Year}} DokuAI. All rights reserved.</div>
</div>`))

var resetTmpl = template.Must(template.New("reset").Parse(`
<div style="background:#f6f8fa;padding:32px 0;font-family:Arial,sans-serif;">
  <div style="max-width:520px;margin:0 auto;background:#fff;border-radius:12px;padding:32px 24px;">
    <h2 style="color:#dc3545;text-align:center;">Password Reset Request</h2>
    <p>You requested a password reset for your DokuAI account. Click the button below to reset your password:</p>
    <div style="text-align:center;margin:32px 0;">
      <a href="{{.Link}}" style="background:#dc3545;color:#fff;padding:14px 36px;text-decoration:none;border-radius:8px;">Reset Password</a>
    </div>
    <p>If the button doesn't work, copy and paste this link into your browser:</p>
    <p style="word-break:break-all;color:#888;">{{.Link}}</p>
    <p style="color:#888;">This link will expire in 1 hour.</p>
    <p style="color:#888;">If you didn't request a password reset, you can safely ignore this email.</p>
  </div>
  <div style="text-align:center;margin-top:24px;color:#b3b3b3;">&copy; {{.Year}} DokuAI. All rights reserved.</div>
</div>`))

var passwordChangedTmpl = template.Must(template.New("changed").Parse(`
<div style="background:#f6f8fa;padding:32px 0;font-family:Arial,sans-serif;">
  <div style="max-width:520px;margin:0 auto;background:#fff;border-radius:12px;padding:32px 24px;">
    <h2 style="color:#2e8555;text-align:center;">Password Changed Successfully</h2>
    <p>Your DokuAI account password has been successfully changed.</p>
    <p>If you didn't make this change, please contact our support team immediately.</p>
    <p>Thank you for using DokuAI!</p>
  </div>
  <div style="text-align:center;margin-top:24px;color:#b3b3b3;">&copy; {{.Year}} DokuAI. All rights reserved.</div>
</div>`))

type linkData struct {
	Link string
	Year int
}

func renderVerification(link string) (string, error) {
	return render(verificationTmpl, linkData{Link: link, Year: time.Now().Year()})
}

func renderReset(link string) (string, error) {
	return render(resetTmpl, linkData{Link: link, Year: time.Now().Year()})
}

func renderPasswordChanged() (string, error) {
	return render(passwordChangedTmpl, linkData{Year: time.Now().Year()})
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
