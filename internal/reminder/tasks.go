package reminder

import (
	"fmt"
	"time"

	"github.com/seahollis/bywater/internal/model"
)

// DueSoonHorizon is how far ahead the due-task pass looks. Tasks due within
// this window (or already past due) are reminder candidates.
const DueSoonHorizon = 24 * time.Hour

// ClassifyDueTask maps a due task to the notification it should produce:
// task_overdue when the due date has passed, task_due_soon otherwise. The
// caller guarantees the task has a due date.
func ClassifyDueTask(task model.Task, now time.Time) (notifType, title, message string) {
	if task.DueDate.Before(now) {
		return model.NotifTypeTaskOverdue,
			"Task Overdue",
			fmt.Sprintf("Task %q is overdue", task.Title)
	}
	return model.NotifTypeTaskDueSoon,
		"Task Due Soon",
		fmt.Sprintf("Task %q is due soon", task.Title)
}
