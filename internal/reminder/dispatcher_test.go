package reminder

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/seahollis/bywater/internal/model"
)

type fakePrefSource struct {
	prefs           []model.EventReminderPreference
	taskDueDisabled map[int64]bool
}

func (f *fakePrefSource) ListEventReminderPreferences() ([]model.EventReminderPreference, error) {
	return f.prefs, nil
}

func (f *fakePrefSource) TaskDueRemindersEnabled(userID, familyID int64) (bool, error) {
	return !f.taskDueDisabled[userID], nil
}

type fakeTaskSource struct {
	tasks []model.Task
}

func (f *fakeTaskSource) FindDueTasks(before time.Time) ([]model.Task, error) {
	var out []model.Task
	for _, task := range f.tasks {
		if task.Status == model.TaskStatusTodo && task.AssigneeID != nil &&
			task.DueDate != nil && !task.DueDate.After(before) {
			out = append(out, task)
		}
	}
	return out, nil
}

// fakeLedger records notifications and answers the dedup queries from what was
// recorded, mirroring the real ledger's semantics.
type fakeLedger struct {
	sent []model.Notification
	at   []time.Time
	now  time.Time
}

func (f *fakeLedger) Notify(n model.Notification) (*model.Notification, error) {
	f.sent = append(f.sent, n)
	f.at = append(f.at, f.now)
	return &n, nil
}

func (f *fakeLedger) Exists(userID int64, notifType string, correlationID int64) (bool, error) {
	for _, n := range f.sent {
		if n.UserID == userID && n.Type == notifType && n.Data.CorrelationID() == correlationID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) ExistsSince(userID int64, notifTypes []string, correlationID int64, since time.Time) (bool, error) {
	for i, n := range f.sent {
		if n.UserID != userID || n.Data.CorrelationID() != correlationID || f.at[i].Before(since) {
			continue
		}
		for _, nt := range notifTypes {
			if n.Type == nt {
				return true, nil
			}
		}
	}
	return false, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(prefs *fakePrefSource, tasks *fakeTaskSource, events *fakeEventSource, members *fakeMemberSource, ledger *fakeLedger) *Dispatcher {
	resolver := NewResolver(events, members)
	gate := NewGate(ledger)
	return NewDispatcher(prefs, tasks, resolver, gate, ledger, discardLogger())
}

func TestRunSendsEventReminder(t *testing.T) {
	events := &fakeEventSource{events: []model.CalendarEvent{
		{ID: 1, FamilyID: 1, Title: "Dentist", StartTime: testNow.Add(15 * time.Minute)},
	}}
	prefs := &fakePrefSource{prefs: []model.EventReminderPreference{
		{UserID: 10, FamilyID: 1, AdvanceMinutes: 15},
	}}
	ledger := &fakeLedger{now: testNow}
	d := newTestDispatcher(prefs, &fakeTaskSource{}, events, &fakeMemberSource{}, ledger)

	summary, err := d.Run(testNow)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RemindersSent != 1 {
		t.Fatalf("RemindersSent = %d, want 1", summary.RemindersSent)
	}

	n := ledger.sent[0]
	if n.Type != model.NotifTypeEventReminder {
		t.Errorf("type = %q, want event_reminder", n.Type)
	}
	if n.Title != "Upcoming Event" {
		t.Errorf("title = %q", n.Title)
	}
	if want := `"Dentist" starts in 15 minutes`; n.Message != want {
		t.Errorf("message = %q, want %q", n.Message, want)
	}
	data, ok := n.Data.(model.EventReminderData)
	if !ok {
		t.Fatalf("data type = %T", n.Data)
	}
	if data.EventID != 1 || data.AdvanceMinutes != 15 || data.ActualMinutesUntilEvent != 15 {
		t.Errorf("data = %+v", data)
	}
}

func TestRunEventReminderAtMostOnce(t *testing.T) {
	events := &fakeEventSource{events: []model.CalendarEvent{
		{ID: 1, FamilyID: 1, Title: "Dentist", StartTime: testNow.Add(15 * time.Minute)},
	}}
	prefs := &fakePrefSource{prefs: []model.EventReminderPreference{
		{UserID: 10, FamilyID: 1, AdvanceMinutes: 15},
	}}
	ledger := &fakeLedger{now: testNow}
	d := newTestDispatcher(prefs, &fakeTaskSource{}, events, &fakeMemberSource{}, ledger)

	if _, err := d.Run(testNow); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// The next tick still sees the event inside its window.
	summary, err := d.Run(testNow.Add(30 * time.Second))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.RemindersSent != 0 {
		t.Errorf("second run sent %d, want 0", summary.RemindersSent)
	}
	if len(ledger.sent) != 1 {
		t.Errorf("ledger has %d entries, want 1", len(ledger.sent))
	}
}

// flakyEventSource fails the window query whose lower bound matches failFrom
// and serves every other window normally.
type flakyEventSource struct {
	inner    *fakeEventSource
	failFrom time.Time
}

func (f *flakyEventSource) FindStartingBetween(familyIDs []int64, from, to time.Time) ([]model.CalendarEvent, error) {
	if from.Equal(f.failFrom) {
		return nil, errors.New("database is locked")
	}
	return f.inner.FindStartingBetween(familyIDs, from, to)
}

func TestRunGroupFailureIsolation(t *testing.T) {
	// Two lead-time groups; the 15-minute group's window query fails. The
	// 30-minute group must still be scanned and its reminder sent.
	events := &flakyEventSource{
		inner: &fakeEventSource{events: []model.CalendarEvent{
			{ID: 1, FamilyID: 1, Title: "Dentist", StartTime: testNow.Add(15 * time.Minute)},
			{ID: 2, FamilyID: 1, Title: "Soccer", StartTime: testNow.Add(30 * time.Minute)},
		}},
		failFrom: testNow.Add(14 * time.Minute),
	}
	prefs := &fakePrefSource{prefs: []model.EventReminderPreference{
		{UserID: 10, FamilyID: 1, AdvanceMinutes: 15},
		{UserID: 11, FamilyID: 1, AdvanceMinutes: 30},
	}}
	ledger := &fakeLedger{now: testNow}
	resolver := NewResolver(events, &fakeMemberSource{})
	d := NewDispatcher(prefs, &fakeTaskSource{}, resolver, NewGate(ledger), ledger, discardLogger())

	summary, err := d.Run(testNow)
	if err != nil {
		t.Fatalf("run: %v (a failed group is logged, not surfaced)", err)
	}
	if summary.RemindersSent != 1 {
		t.Fatalf("RemindersSent = %d, want 1 from the healthy group", summary.RemindersSent)
	}
	if len(ledger.sent) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(ledger.sent))
	}
	if n := ledger.sent[0]; n.UserID != 11 || n.Data.(model.EventReminderData).EventID != 2 {
		t.Errorf("sent = user %d event %d, want user 11 event 2", n.UserID, n.Data.CorrelationID())
	}
}

func TestRunGroupsSharedLeadTimes(t *testing.T) {
	// Three users, lead times {15, 15, 30}: two windows, two event queries.
	events := &fakeEventSource{}
	prefs := &fakePrefSource{prefs: []model.EventReminderPreference{
		{UserID: 10, FamilyID: 1, AdvanceMinutes: 15},
		{UserID: 11, FamilyID: 1, AdvanceMinutes: 15},
		{UserID: 12, FamilyID: 1, AdvanceMinutes: 30},
	}}
	d := newTestDispatcher(prefs, &fakeTaskSource{}, events, &fakeMemberSource{}, &fakeLedger{now: testNow})

	if _, err := d.Run(testNow); err != nil {
		t.Fatalf("run: %v", err)
	}
	if events.calls != 2 {
		t.Errorf("event queries = %d, want 2 (one per distinct lead time)", events.calls)
	}
}

func TestRunTaskDueSoon(t *testing.T) {
	assignee := int64(10)
	due := testNow.Add(3 * time.Hour)
	tasks := &fakeTaskSource{tasks: []model.Task{
		{ID: 5, FamilyID: 1, Title: "Take out trash", Status: model.TaskStatusTodo, AssigneeID: &assignee, DueDate: &due},
	}}
	ledger := &fakeLedger{now: testNow}
	d := newTestDispatcher(&fakePrefSource{}, tasks, &fakeEventSource{}, &fakeMemberSource{}, ledger)

	summary, err := d.Run(testNow)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RemindersSent != 1 {
		t.Fatalf("RemindersSent = %d, want 1", summary.RemindersSent)
	}
	n := ledger.sent[0]
	if n.Type != model.NotifTypeTaskDueSoon {
		t.Errorf("type = %q, want task_due_soon", n.Type)
	}
	if want := `Task "Take out trash" is due soon`; n.Message != want {
		t.Errorf("message = %q, want %q", n.Message, want)
	}
}

func TestRunTaskOverdue(t *testing.T) {
	assignee := int64(10)
	due := testNow.Add(-2 * time.Hour)
	tasks := &fakeTaskSource{tasks: []model.Task{
		{ID: 5, FamilyID: 1, Title: "Pay rent", Status: model.TaskStatusTodo, AssigneeID: &assignee, DueDate: &due},
	}}
	ledger := &fakeLedger{now: testNow}
	d := newTestDispatcher(&fakePrefSource{}, tasks, &fakeEventSource{}, &fakeMemberSource{}, ledger)

	if _, err := d.Run(testNow); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ledger.sent[0].Type != model.NotifTypeTaskOverdue {
		t.Errorf("type = %q, want task_overdue", ledger.sent[0].Type)
	}
	if ledger.sent[0].Title != "Task Overdue" {
		t.Errorf("title = %q", ledger.sent[0].Title)
	}
}

func TestRunTaskCooldown(t *testing.T) {
	assignee := int64(10)
	due := testNow.Add(2 * time.Hour)
	tasks := &fakeTaskSource{tasks: []model.Task{
		{ID: 5, FamilyID: 1, Title: "Laundry", Status: model.TaskStatusTodo, AssigneeID: &assignee, DueDate: &due},
	}}
	ledger := &fakeLedger{now: testNow}
	d := newTestDispatcher(&fakePrefSource{}, tasks, &fakeEventSource{}, &fakeMemberSource{}, ledger)

	if _, err := d.Run(testNow); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Inside the cooldown: suppressed even though the task is now overdue.
	ledger.now = testNow.Add(6 * time.Hour)
	summary, err := d.Run(testNow.Add(6 * time.Hour))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.RemindersSent != 0 {
		t.Errorf("run inside cooldown sent %d, want 0", summary.RemindersSent)
	}

	// Past the cooldown: fires again.
	later := testNow.Add(13 * time.Hour)
	ledger.now = later
	summary, err = d.Run(later)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if summary.RemindersSent != 1 {
		t.Errorf("run past cooldown sent %d, want 1", summary.RemindersSent)
	}
	if last := ledger.sent[len(ledger.sent)-1]; last.Type != model.NotifTypeTaskOverdue {
		t.Errorf("re-reminder type = %q, want task_overdue", last.Type)
	}
}

func TestRunCompletedTaskLeavesCycle(t *testing.T) {
	assignee := int64(10)
	due := testNow.Add(2 * time.Hour)
	task := model.Task{ID: 5, FamilyID: 1, Title: "Dishes", Status: model.TaskStatusDone, AssigneeID: &assignee, DueDate: &due}
	tasks := &fakeTaskSource{tasks: []model.Task{task}}
	ledger := &fakeLedger{now: testNow}
	d := newTestDispatcher(&fakePrefSource{}, tasks, &fakeEventSource{}, &fakeMemberSource{}, ledger)

	summary, err := d.Run(testNow)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RemindersSent != 0 {
		t.Errorf("done task sent %d reminders, want 0", summary.RemindersSent)
	}
}

func TestRunUnassignedTaskSkipped(t *testing.T) {
	due := testNow.Add(2 * time.Hour)
	tasks := &fakeTaskSource{tasks: []model.Task{
		{ID: 5, FamilyID: 1, Title: "Dishes", Status: model.TaskStatusTodo, DueDate: &due},
	}}
	d := newTestDispatcher(&fakePrefSource{}, tasks, &fakeEventSource{}, &fakeMemberSource{}, &fakeLedger{now: testNow})

	summary, err := d.Run(testNow)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RemindersSent != 0 {
		t.Errorf("unassigned task sent %d reminders, want 0", summary.RemindersSent)
	}
}

func TestRunTaskRemindersRespectPreference(t *testing.T) {
	assignee := int64(10)
	due := testNow.Add(2 * time.Hour)
	tasks := &fakeTaskSource{tasks: []model.Task{
		{ID: 5, FamilyID: 1, Title: "Dishes", Status: model.TaskStatusTodo, AssigneeID: &assignee, DueDate: &due},
	}}
	prefs := &fakePrefSource{taskDueDisabled: map[int64]bool{10: true}}
	d := newTestDispatcher(prefs, tasks, &fakeEventSource{}, &fakeMemberSource{}, &fakeLedger{now: testNow})

	summary, err := d.Run(testNow)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RemindersSent != 0 {
		t.Errorf("opted-out user got %d reminders, want 0", summary.RemindersSent)
	}
}

func TestClassifyDueTask(t *testing.T) {
	past := testNow.Add(-time.Minute)
	future := testNow.Add(time.Minute)

	notifType, title, _ := ClassifyDueTask(model.Task{Title: "x", DueDate: &past}, testNow)
	if notifType != model.NotifTypeTaskOverdue || title != "Task Overdue" {
		t.Errorf("past due: got (%q, %q)", notifType, title)
	}
	notifType, title, _ = ClassifyDueTask(model.Task{Title: "x", DueDate: &future}, testNow)
	if notifType != model.NotifTypeTaskDueSoon || title != "Task Due Soon" {
		t.Errorf("future due: got (%q, %q)", notifType, title)
	}
}
