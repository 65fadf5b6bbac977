package Notifications

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"Clinia/Models"
)

// Global Firebase client
var firebaseClient *messaging.Client
var ctx = context.Background()

// InitFirebase wires up Cloud Messaging. Call once at startup; push sends are
// silently skipped when FIREBASE_CREDENTIALS is not configured.
func InitFirebase() error {
	credentials := os.Getenv("FIREBASE_CREDENTIALS")
	if credentials == "" {
		log.Println("FIREBASE_CREDENTIALS not set, push notifications disabled")
		return nil
	}
	opt := option.WithCredentialsFile(credentials)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing Firebase app: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("error getting Messaging client: %v", err)
	}

	firebaseClient = client
	log.Println("Firebase initialized successfully")
	return nil
}

// SendTaskReminder pushes a reminder about unfinished protocol tasks to every
// registered device of the user.
func SendTaskReminder(user *Models.User, protocolName string, remaining int) error {
	if firebaseClient == nil {
		return nil
	}

	var tokens []Models.DeviceToken
	if err := Models.DB.Where("user_id = ?", user.ID).Find(&tokens).Error; err != nil {
		return err
	}

	for _, token := range tokens {
		message := &messaging.Message{
			Token: token.Value,
			Data: map[string]string{
				"type":      "task_reminder",
				"protocol":  protocolName,
				"remaining": strconv.Itoa(remaining),
			},
			Notification: &messaging.Notification{
				Title: "Daily check-in",
				Body: fmt.Sprintf("You have %d task(s) left in %s today",
					remaining, protocolName),
			},
			Android: &messaging.AndroidConfig{
				Notification: &messaging.AndroidNotification{
					Icon:  "task_reminder_icon",
					Color: "#2E86DE",
					Sound: "default",
				},
				Priority: "high",
			},
		}

		response, err := firebaseClient.Send(ctx, message)
		if err != nil {
			log.Printf("Error sending push to user %d: %v", user.ID, err)
			continue
		}
		log.Printf("Sent task reminder: %s", response)
	}
	return nil
}

// SendProtocolAssigned notifies a patient that a new protocol was assigned.
func SendProtocolAssigned(user *Models.User, protocolName string) error {
	if firebaseClient == nil {
		return nil
	}

	var tokens []Models.DeviceToken
	if err := Models.DB.Where("user_id = ?", user.ID).Find(&tokens).Error; err != nil {
		return err
	}

	for _, token := range tokens {
		message := &messaging.Message{
			Token: token.Value,
			Data: map[string]string{
				"type":     "protocol_assigned",
				"protocol": protocolName,
			},
			Notification: &messaging.Notification{
				Title: "New protocol",
				Body:  fmt.Sprintf("Your doctor assigned you %s", protocolName),
			},
			Android: &messaging.AndroidConfig{
				Notification: &messaging.AndroidNotification{
					Icon:  "protocol_icon",
					Color: "#2E86DE",
					Sound: "default",
				},
				Priority: "high",
			},
		}

		if _, err := firebaseClient.Send(ctx, message); err != nil {
			log.Printf("Error sending push to user %d: %v", user.ID, err)
		}
	}
	return nil
}
