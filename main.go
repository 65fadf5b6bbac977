package main

import (
	"log"
	"os"

	"Clinia/CronJobs"
	"Clinia/FiberConfig"
	"Clinia/Models"
	"Clinia/Notifications"
)

func main() {
	setupLogging()
	Models.Connect()

	go func() {
		if err := Notifications.InitFirebase(); err != nil {
			log.Printf("Failed to initialize Firebase: %v", err)
		}
	}()

	reminders := CronJobs.NewReminderScheduler(false)
	if err := reminders.Start(); err != nil {
		log.Printf("Failed to start reminder scheduler: %v", err)
	}
	defer reminders.Stop()

	FiberConfig.FiberConfig()
}

func setupLogging() {
	// Create logs directory if it doesn't exist
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Error creating logs directory: %v\n", err)
		return
	}

	logFile, err := os.OpenFile("logs/application.log",
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Error opening log file: %v\n", err)
		return
	}

	log.SetOutput(logFile)
	log.SetFlags(log.Ldate | log.Ltime)
}
