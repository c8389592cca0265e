package email

import (
	"fmt"
	"strings"
	"text/template"
)

// Template names used by the email:send task payload
const (
	TemplateKYCStarted           = "kyc_started"
	TemplateKYCApproved          = "kyc_approved"
	TemplateKYCRejected          = "kyc_rejected"
	TemplateSubscriptionCreated  = "subscription_created"
	TemplateSubscriptionCanceled = "subscription_canceled"
	TemplatePaymentFailed        = "payment_failed"
)

type emailTemplate struct {
	subject string
	html    *template.Template
	plain   *template.Template
}

var templates = map[string]emailTemplate{
	TemplateKYCStarted: {
		subject: "Identity Verification Started",
		html: mustParse("kyc_started_html", `
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>Your identity verification has started. We will email you as soon as the review completes.</p>
	<p>Most verifications finish within a few minutes.</p>
</body>
</html>
`),
		plain: mustParse("kyc_started_plain", `
Hello {{.Name}},

Your identity verification has started. We will email you as soon as the review completes.

Most verifications finish within a few minutes.
`),
	},
	TemplateKYCApproved: {
		subject: "Identity Verification Approved",
		html: mustParse("kyc_approved_html", `
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>Your identity verification has been approved. Your account is now eligible for asset tokenization.</p>
	<p>Your verification remains valid until {{.ExpiresAt}}.</p>
</body>
</html>
`),
		plain: mustParse("kyc_approved_plain", `
Hello {{.Name}},

Your identity verification has been approved. Your account is now eligible for asset tokenization.

Your verification remains valid until {{.ExpiresAt}}.
`),
	},
	TemplateKYCRejected: {
		subject: "Identity Verification Update",
		html: mustParse("kyc_rejected_html", `
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>Unfortunately we could not verify your identity.</p>
	{{if .Reasons}}<p>Details: {{.Reasons}}</p>{{end}}
	<p>You can start a new verification with updated documents at any time.</p>
</body>
</html>
`),
		plain: mustParse("kyc_rejected_plain", `
Hello {{.Name}},

Unfortunately we could not verify your identity.
{{if .Reasons}}
Details: {{.Reasons}}
{{end}}
You can start a new verification with updated documents at any time.
`),
	},
	TemplateSubscriptionCreated: {
		subject: "Welcome to Your New Plan",
		html: mustParse("subscription_created_html", `
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>Your {{.Plan}} subscription is now active.</p>
	<p>You can tokenize up to {{.TokensLimit}} assets in each billing period.</p>
</body>
</html>
`),
		plain: mustParse("subscription_created_plain", `
Hello {{.Name}},

Your {{.Plan}} subscription is now active.

You can tokenize up to {{.TokensLimit}} assets in each billing period.
`),
	},
	TemplateSubscriptionCanceled: {
		subject: "Subscription Canceled",
		html: mustParse("subscription_canceled_html", `
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>Your subscription has been canceled.</p>
	<p>You keep access until the end of the current billing period.</p>
</body>
</html>
`),
		plain: mustParse("subscription_canceled_plain", `
Hello {{.Name}},

Your subscription has been canceled.

You keep access until the end of the current billing period.
`),
	},
	TemplatePaymentFailed: {
		subject: "Payment Failed",
		html: mustParse("payment_failed_html", `
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>We could not collect payment for your subscription.</p>
	<p>Please update your payment method to keep your plan active.</p>
	{{if .InvoiceURL}}<p><a href="{{.InvoiceURL}}">View invoice</a></p>{{end}}
</body>
</html>
`),
		plain: mustParse("payment_failed_plain", `
Hello {{.Name}},

We could not collect payment for your subscription.

Please update your payment method to keep your plan active.
{{if .InvoiceURL}}
View invoice: {{.InvoiceURL}}
{{end}}
`),
	},
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(strings.TrimSpace(text)))
}

// Render produces the subject, html and plain bodies for a template name
func Render(name string, data map[string]string) (subject, html, plain string, err error) {
	tpl, ok := templates[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown email template: %s", name)
	}

	var htmlBuf, plainBuf strings.Builder
	if err := tpl.html.Execute(&htmlBuf, data); err != nil {
		return "", "", "", fmt.Errorf("failed to render html body: %w", err)
	}
	if err := tpl.plain.Execute(&plainBuf, data); err != nil {
		return "", "", "", fmt.Errorf("failed to render plain body: %w", err)
	}

	return tpl.subject, htmlBuf.String(), plainBuf.String(), nil
}

// HasTemplate reports whether a template name is registered
func HasTemplate(name string) bool {
	_, ok := templates[name]
	return ok
}
