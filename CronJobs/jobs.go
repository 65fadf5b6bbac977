package CronJobs

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"Clinia/Controllers"
	"Clinia/Models"
	"Clinia/Notifications"
	"Clinia/Slack"
	"Clinia/email"
)

// ReminderScheduler sends the morning nudge to patients with unfinished
// protocol tasks and posts the ops digest.
type ReminderScheduler struct {
	cronScheduler  *cron.Cron
	runImmediately bool
	jobID          cron.EntryID
}

// NewReminderScheduler creates a reminder scheduler.
func NewReminderScheduler(runImmediately bool) *ReminderScheduler {
	return &ReminderScheduler{
		cronScheduler:  cron.New(cron.WithSeconds()),
		runImmediately: runImmediately,
	}
}

// Start schedules the daily run at 9:00 AM server time.
func (s *ReminderScheduler) Start() error {
	var err error
	s.jobID, err = s.cronScheduler.AddFunc("0 0 9 * * *", func() {
		log.Println("Running scheduled daily task reminders")
		s.runReminders()
	})
	if err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}

	s.cronScheduler.Start()
	log.Println("Reminder scheduler started - will run daily at 9:00 AM")

	if s.runImmediately {
		log.Println("Running initial reminder pass")
		s.runReminders()
	}
	return nil
}

// Stop terminates the scheduler.
func (s *ReminderScheduler) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
		log.Println("Reminder scheduler stopped")
	}
}

// UpdateSchedule changes the reminder schedule.
// Format: "0 0 9 * * *" = at 09:00:00 AM every day.
func (s *ReminderScheduler) UpdateSchedule(schedule string) error {
	s.cronScheduler.Remove(s.jobID)

	var err error
	s.jobID, err = s.cronScheduler.AddFunc(schedule, func() {
		log.Println("Running scheduled daily task reminders")
		s.runReminders()
	})
	if err != nil {
		return fmt.Errorf("error updating schedule: %w", err)
	}

	log.Printf("Reminder schedule updated to: %s\n", schedule)
	return nil
}

// RunManualPass executes the reminder pass outside the schedule.
func (s *ReminderScheduler) RunManualPass() {
	log.Println("Running manual reminder pass")
	s.runReminders()
}

func (s *ReminderScheduler) runReminders() {
	now := time.Now()

	var assignments []Models.ProtocolAssignment
	err := Models.DB.Preload("Protocol").Preload("User").
		Where("status = ?", Models.AssignmentActive).
		Find(&assignments).Error
	if err != nil {
		log.Printf("Failed to load active assignments: %v", err)
		return
	}

	emailConfig := Models.EmailConfigFromEnv()
	remindedPatients := 0
	totalRemaining := 0

	for i := range assignments {
		assignment := &assignments[i]

		// Skip assignments that have run past their protocol duration.
		day := assignment.CurrentDay(now)
		if day < 1 || day > assignment.Protocol.Duration {
			continue
		}

		remaining, err := Controllers.IncompleteTasksForToday(Models.DB, assignment, now)
		if err != nil {
			log.Printf("Failed to compute remaining tasks for assignment %d: %v", assignment.ID, err)
			continue
		}
		if len(remaining) == 0 {
			continue
		}

		remindedPatients++
		totalRemaining += len(remaining)

		if err := Notifications.SendTaskReminder(&assignment.User, assignment.Protocol.Name, len(remaining)); err != nil {
			log.Printf("Push reminder failed for user %d: %v", assignment.UserID, err)
		}

		if emailConfig.SMTPServer != "" && assignment.User.Email != "" {
			message := email.TaskReminderMessage(
				assignment.User.Email,
				assignment.User.Name,
				assignment.Protocol.Name,
				len(remaining),
			)
			if err := email.SendEmail(emailConfig, message); err != nil {
				log.Printf("Email reminder failed for user %d: %v", assignment.UserID, err)
			}
		}
	}

	log.Printf("Reminder pass done: %d patient(s) nudged, %d open task(s)", remindedPatients, totalRemaining)

	if remindedPatients > 0 {
		digest := fmt.Sprintf("🌅 Morning digest: %d patient(s) reminded about %d open task(s) across %d active assignment(s)",
			remindedPatients, totalRemaining, len(assignments))
		if err := Slack.SendDailyDigest(digest); err != nil {
			log.Printf("Slack digest failed: %v", err)
		}
	}
}
