package tools

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSSRFRejectsLoopbackHostname(t *testing.T) {
	assert.Error(t, checkSSRF("http://localhost/admin"))
	assert.Error(t, checkSSRF("http://127.0.0.1:8080/"))
}

func TestCheckSSRFRejectsCloudMetadataAddress(t *testing.T) {
	assert.Error(t, checkSSRF("http://169.254.169.254/latest/meta-data/"))
}

func TestCheckSSRFRejectsPrivateAddress(t *testing.T) {
	assert.Error(t, checkSSRF("http://10.0.0.5/"))
	assert.Error(t, checkSSRF("http://192.168.1.1/"))
}

func TestCheckSSRFAcceptsPublicAddress(t *testing.T) {
	assert.NoError(t, checkSSRF("http://8.8.8.8/"))
}

func TestCheckSSRFRejectsInvalidURL(t *testing.T) {
	assert.Error(t, checkSSRF("://not-a-url"))
}

func TestCheckSSRFRejectsMissingHost(t *testing.T) {
	assert.Error(t, checkSSRF("file:///etc/passwd"))
}

func TestIsBlockedIPClassifications(t *testing.T) {
	assert.True(t, isBlockedIP(net.ParseIP("127.0.0.1")))
	assert.True(t, isBlockedIP(net.ParseIP("169.254.169.254")))
	assert.True(t, isBlockedIP(net.ParseIP("10.1.2.3")))
	assert.True(t, isBlockedIP(net.ParseIP("::1")))
	assert.False(t, isBlockedIP(net.ParseIP("8.8.8.8")))
}
