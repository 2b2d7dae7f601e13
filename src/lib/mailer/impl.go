package mailer

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"signup/src/lib"
	"signup/src/types"
)

// NewMailerMessage hands the email to the queue in deployed environments and
// sends directly over SMTP locally. Callers treat failures as fire-and-forget:
// a lost confirmation email never fails a purchase transition.
func NewMailerMessage(input *lib.SendMailInput) error {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == string(types.Local) || emailQueue == "" {
		if err := lib.SendMail(input); err != nil {
			return fmt.Errorf("error sending mail: %s", err.Error())
		}
		return nil
	}
	emailBody := &types.JSONB{
		"from":      input.From,
		"from-name": input.FromName,
		"to":        input.To,
		"body":      input.Body,
		"html":      input.Html,
		"subject":   input.Subject,
	}
	body, err := json.Marshal(&emailBody)
	if err != nil {
		return err
	}
	if err := lib.SQSProduceMessage(emailQueue, string(body)); err != nil {
		return fmt.Errorf("error sending message to queue: %s", err.Error())
	}
	log.Printf("[mailer] queued message for %v\n", input.To)
	return nil
}
