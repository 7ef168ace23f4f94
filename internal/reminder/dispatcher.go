package reminder

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seahollis/bywater/internal/model"
)

// PreferenceSource is the slice of the preference store the dispatcher needs.
type PreferenceSource interface {
	ListEventReminderPreferences() ([]model.EventReminderPreference, error)
	TaskDueRemindersEnabled(userID, familyID int64) (bool, error)
}

// TaskSource is the slice of the task store the dispatcher needs.
type TaskSource interface {
	FindDueTasks(before time.Time) ([]model.Task, error)
}

// Notifier appends a notification to the ledger and fans it out to delivery
// transports. A duplicate append must be treated as success.
type Notifier interface {
	Notify(n model.Notification) (*model.Notification, error)
}

// Summary is what one dispatcher run reports back to its trigger.
type Summary struct {
	RemindersSent int `json:"reminders_sent"`
}

// Dispatcher orchestrates one scan: event reminders per lead-time group, then
// a separate due/overdue task pass. It holds no state between runs; everything
// it decides on is read fresh from the stores, and "now" is always an explicit
// parameter.
type Dispatcher struct {
	prefs    PreferenceSource
	tasks    TaskSource
	resolver *Resolver
	gate     *Gate
	notifier Notifier
	logger   *slog.Logger
}

func NewDispatcher(prefs PreferenceSource, tasks TaskSource, resolver *Resolver, gate *Gate, notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		prefs:    prefs,
		tasks:    tasks,
		resolver: resolver,
		gate:     gate,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes one dispatch cycle at the given instant and returns how many
// notifications were sent. A failure in one lead-time group or one task is
// logged and skipped; only a failure of a whole pass surfaces in the returned
// error. Either way the run is safe to repeat: everything it sends is behind
// the dedup gate, so an interrupted cycle simply under-delivers and heals on
// the next tick.
func (d *Dispatcher) Run(now time.Time) (Summary, error) {
	eventCount, eventErr := d.checkEventReminders(now)
	taskCount, taskErr := d.checkDueTasks(now)

	summary := Summary{RemindersSent: eventCount + taskCount}
	if err := errors.Join(eventErr, taskErr); err != nil {
		return summary, err
	}

	d.logger.Info("dispatch cycle complete", "reminders_sent", summary.RemindersSent)
	return summary, nil
}

func (d *Dispatcher) checkEventReminders(now time.Time) (int, error) {
	prefs, err := d.prefs.ListEventReminderPreferences()
	if err != nil {
		return 0, fmt.Errorf("list event reminder preferences: %w", err)
	}
	if len(prefs) == 0 {
		return 0, nil
	}

	sent := 0
	for advanceMinutes, group := range GroupByAdvance(prefs) {
		candidates, err := d.resolver.ResolveGroup(now, advanceMinutes, group)
		if err != nil {
			// One bad group must not take down the others.
			d.logger.Error("resolve reminder group", "advance_minutes", advanceMinutes, "error", err)
			continue
		}

		for _, c := range candidates {
			already, err := d.gate.EventReminderSent(c.UserID, c.Event.ID)
			if err != nil {
				d.logger.Error("check event reminder sent", "user_id", c.UserID, "event_id", c.Event.ID, "error", err)
				continue
			}
			if already {
				continue
			}

			n := model.Notification{
				FamilyID: c.Event.FamilyID,
				UserID:   c.UserID,
				Type:     model.NotifTypeEventReminder,
				Title:    "Upcoming Event",
				Message:  fmt.Sprintf("%q starts in %d minutes", c.Event.Title, c.MinutesUntil),
				Data: model.EventReminderData{
					EventID:                 c.Event.ID,
					StartTime:               c.Event.StartTime,
					AdvanceMinutes:          c.AdvanceMinutes,
					ActualMinutesUntilEvent: c.MinutesUntil,
				},
			}
			if _, err := d.notifier.Notify(n); err != nil {
				d.logger.Error("send event reminder", "user_id", c.UserID, "event_id", c.Event.ID, "error", err)
				continue
			}

			sent++
			d.logger.Info("event reminder sent",
				"user_id", c.UserID, "event_id", c.Event.ID,
				"minutes_until", c.MinutesUntil, "advance_minutes", c.AdvanceMinutes)
		}
	}
	return sent, nil
}

func (d *Dispatcher) checkDueTasks(now time.Time) (int, error) {
	tasks, err := d.tasks.FindDueTasks(now.Add(DueSoonHorizon))
	if err != nil {
		return 0, fmt.Errorf("find due tasks: %w", err)
	}

	sent := 0
	for _, task := range tasks {
		// The store filters these already; the task leaves the reminder
		// cycle the moment either field changes, read live each pass.
		if task.AssigneeID == nil || task.DueDate == nil || task.Status != model.TaskStatusTodo {
			continue
		}
		userID := *task.AssigneeID

		inCooldown, err := d.gate.TaskReminderInCooldown(userID, task.ID, now)
		if err != nil {
			d.logger.Error("check task reminder cooldown", "user_id", userID, "task_id", task.ID, "error", err)
			continue
		}
		if inCooldown {
			continue
		}

		enabled, err := d.prefs.TaskDueRemindersEnabled(userID, task.FamilyID)
		if err != nil {
			d.logger.Error("check task reminder preference", "user_id", userID, "error", err)
			continue
		}
		if !enabled {
			continue
		}

		notifType, title, message := ClassifyDueTask(task, now)
		n := model.Notification{
			FamilyID: task.FamilyID,
			UserID:   userID,
			Type:     notifType,
			Title:    title,
			Message:  message,
			Data: model.TaskDueData{
				TaskID:  task.ID,
				DueDate: *task.DueDate,
			},
		}
		if _, err := d.notifier.Notify(n); err != nil {
			d.logger.Error("send task reminder", "user_id", userID, "task_id", task.ID, "error", err)
			continue
		}

		sent++
		d.logger.Info("task reminder sent", "user_id", userID, "task_id", task.ID, "type", notifType)
	}
	return sent, nil
}
