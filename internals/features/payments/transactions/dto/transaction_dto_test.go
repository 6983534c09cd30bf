package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMidtransOutcome(t *testing.T) {
	cases := []struct {
		status, fraud string
		want          GatewayOutcome
	}{
		{"settlement", "", GatewaySettle},
		{"capture", "accept", GatewaySettle},
		{"capture", "", GatewaySettle},
		{"capture", "challenge", GatewayWait},
		{"capture", "deny", GatewayFail},
		{"pending", "", GatewayWait},
		{"expire", "", GatewayFail},
		{"CANCEL", "", GatewayFail},
		{"deny", "", GatewayFail},
	}
	for _, c := range cases {
		n := &MidtransNotification{TransactionStatus: c.status, FraudStatus: c.fraud}
		assert.Equal(t, c.want, n.Outcome(), "%s/%s", c.status, c.fraud)
	}
}

func TestSendReceiptDetailsDefault(t *testing.T) {
	r := &SendReceiptRequest{}
	assert.True(t, r.Details())
	off := false
	r.IncludeDetails = &off
	assert.False(t, r.Details())
}
