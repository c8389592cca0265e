package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Run("approved template interpolates fields", func(t *testing.T) {
		subject, html, plain, err := Render(TemplateKYCApproved, map[string]string{
			"Name":      "Ada",
			"ExpiresAt": "2027-03-01",
		})
		require.NoError(t, err)
		assert.Equal(t, "Identity Verification Approved", subject)
		assert.Contains(t, html, "Hello Ada")
		assert.Contains(t, html, "2027-03-01")
		assert.Contains(t, plain, "2027-03-01")
	})

	t.Run("rejected template includes reasons when present", func(t *testing.T) {
		_, html, plain, err := Render(TemplateKYCRejected, map[string]string{
			"Name":    "Ada",
			"Reasons": "document:consider",
		})
		require.NoError(t, err)
		assert.Contains(t, html, "document:consider")
		assert.Contains(t, plain, "document:consider")
	})

	t.Run("rejected template omits empty reasons", func(t *testing.T) {
		_, html, _, err := Render(TemplateKYCRejected, map[string]string{"Name": "Ada"})
		require.NoError(t, err)
		assert.NotContains(t, html, "Details:")
	})

	t.Run("unknown template errors", func(t *testing.T) {
		_, _, _, err := Render("no_such_template", nil)
		assert.Error(t, err)
	})
}

func TestHasTemplate(t *testing.T) {
	for _, name := range []string{
		TemplateKYCStarted,
		TemplateKYCApproved,
		TemplateKYCRejected,
		TemplateSubscriptionCreated,
		TemplateSubscriptionCanceled,
		TemplatePaymentFailed,
	} {
		assert.True(t, HasTemplate(name), name)
	}

	assert.False(t, HasTemplate("kyc_requires_review"))
}
