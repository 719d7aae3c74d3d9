package sms

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/deepscalers/student-assistant/internal/domain/auth"
)

// TwilioSender delivers verification codes over Twilio SMS.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender constructs the sender.
func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, from: fromNumber}
}

// Send texts the code to the phone number.
func (s *TwilioSender) Send(_ context.Context, phone, code string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.from)
	params.SetBody(fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	return nil
}

var _ auth.CodeSender = (*TwilioSender)(nil)
