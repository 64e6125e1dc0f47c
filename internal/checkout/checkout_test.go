package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturnURLs(t *testing.T) {
	redirectURL, cancelURL := ReturnURLs("https://console.test", "wf-123")

	assert.Equal(t, "https://console.test/api/v1/payments/callback/authorized?token=wf-123", redirectURL)
	assert.Equal(t, "https://console.test/api/v1/payments/callback/cancelled?token=wf-123", cancelURL)
}

func TestReturnURLs_EscapesToken(t *testing.T) {
	redirectURL, _ := ReturnURLs("https://console.test", "a b&c")

	assert.Equal(t, "https://console.test/api/v1/payments/callback/authorized?token=a+b%26c", redirectURL)
}
