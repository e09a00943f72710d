package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/mhofmann/membersite/internal/i18n"
)

// Email is a fully rendered message ready for a Mailer.
type Email struct {
	Subject string
	HTML    string
}

type templateData struct {
	Heading string
	Intro   string
	Button  string
	Link    string
	Outro   string
	Footer  string
}

// One shared layout; the locale only swaps the strings.
var bodyTmpl = template.Must(template.New("mail").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #1e40af; text-align: center;">membersite</h1>
  <h2 style="color: #334155;">{{.Heading}}</h2>
  <p style="color: #475569; font-size: 16px;">{{.Intro}}</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.Link}}" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 6px; font-size: 16px;">{{.Button}}</a>
  </div>
  <p style="color: #94a3b8; font-size: 14px;">{{.Outro}}</p>
  <hr style="border: none; border-top: 1px solid #e2e8f0; margin: 20px 0;" />
  <p style="color: #94a3b8; font-size: 12px; text-align: center;">{{.Footer}}</p>
</div>
`))

// VerificationEmail builds the localized verify-your-address message.
// The embedded link is {base}/{locale}/auth/verify-email?token={token}.
func VerificationEmail(baseURL, locale, token string) (Email, error) {
	locale = i18n.Normalize(locale)
	link := buildLink(baseURL, locale, "/auth/verify-email", token)

	var data templateData
	var subject string

	if locale == i18n.LocaleDE {
		subject = "E-Mail bestätigen - membersite"
		data = templateData{
			Heading: "E-Mail-Adresse bestätigen",
			Intro:   "Vielen Dank für Ihre Registrierung! Bitte klicken Sie auf den Button unten, um Ihre E-Mail-Adresse zu bestätigen.",
			Button:  "E-Mail bestätigen",
			Link:    link,
			Outro:   "Falls Sie sich nicht registriert haben, können Sie diese E-Mail ignorieren.",
			Footer:  "© 2026 membersite. Alle Rechte vorbehalten.",
		}
	} else {
		subject = "Verify your email - membersite"
		data = templateData{
			Heading: "Verify Your Email Address",
			Intro:   "Thank you for registering! Please click the button below to verify your email address.",
			Button:  "Verify Email",
			Link:    link,
			Outro:   "If you didn't create an account, you can safely ignore this email.",
			Footer:  "© 2026 membersite. All rights reserved.",
		}
	}

	return render(subject, data)
}

// PasswordResetEmail builds the localized reset message.
// The embedded link is {base}/{locale}/auth/reset-password?token={token}.
func PasswordResetEmail(baseURL, locale, token string) (Email, error) {
	locale = i18n.Normalize(locale)
	link := buildLink(baseURL, locale, "/auth/reset-password", token)

	var data templateData
	var subject string

	if locale == i18n.LocaleDE {
		subject = "Passwort zurücksetzen - membersite"
		data = templateData{
			Heading: "Passwort zurücksetzen",
			Intro:   "Sie haben angefordert, Ihr Passwort zurückzusetzen. Klicken Sie auf den Button unten, um ein neues Passwort festzulegen.",
			Button:  "Passwort zurücksetzen",
			Link:    link,
			Outro:   "Dieser Link ist 1 Stunde gültig. Falls Sie kein Zurücksetzen angefordert haben, ignorieren Sie diese E-Mail.",
			Footer:  "© 2026 membersite. Alle Rechte vorbehalten.",
		}
	} else {
		subject = "Reset your password - membersite"
		data = templateData{
			Heading: "Reset Your Password",
			Intro:   "You requested to reset your password. Click the button below to set a new password.",
			Button:  "Reset Password",
			Link:    link,
			Outro:   "This link is valid for 1 hour. If you didn't request a reset, you can safely ignore this email.",
			Footer:  "© 2026 membersite. All rights reserved.",
		}
	}

	return render(subject, data)
}

func buildLink(baseURL, locale, path, token string) string {
	base := strings.TrimRight(baseURL, "/")

	return fmt.Sprintf("%s/%s%s?token=%s", base, locale, path, url.QueryEscape(token))
}

func render(subject string, data templateData) (Email, error) {
	var buf bytes.Buffer

	if err := bodyTmpl.Execute(&buf, data); err != nil {
		return Email{}, err
	}

	return Email{Subject: subject, HTML: buf.String()}, nil
}
