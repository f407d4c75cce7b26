package domain

import "testing"

func TestThread_MessageCount(t *testing.T) {
	thread := &Thread{Messages: []Email{{ID: "1"}, {ID: "2"}}}
	if got := thread.MessageCount(); got != 2 {
		t.Errorf("MessageCount() = %d, want 2", got)
	}
}

func TestThread_MessageCount_Summary(t *testing.T) {
	thread := &Thread{TotalCount: 5}
	if got := thread.MessageCount(); got != 5 {
		t.Errorf("MessageCount() = %d, want 5 (from TotalCount)", got)
	}
}

func TestThread_IsUnread(t *testing.T) {
	thread := &Thread{Messages: []Email{
		{ID: "1", IsRead: true},
		{ID: "2", IsRead: false},
	}}
	if !thread.IsUnread() {
		t.Error("expected IsUnread() = true when one message is unread")
	}

	allRead := &Thread{Messages: []Email{
		{ID: "1", IsRead: true},
		{ID: "2", IsRead: true},
	}}
	if allRead.IsUnread() {
		t.Error("expected IsUnread() = false when all messages are read")
	}
}

func TestThread_IsUnread_Summary(t *testing.T) {
	thread := &Thread{HasUnread: true}
	if !thread.IsUnread() {
		t.Error("expected IsUnread() = true from HasUnread summary field")
	}

	allRead := &Thread{HasUnread: false, IsRead: true}
	if allRead.IsUnread() {
		t.Error("expected IsUnread() = false from summary fields")
	}
}

func TestThread_AddLabel_Idempotent(t *testing.T) {
	thread := &Thread{Labels: []string{LabelInbox}}
	thread.AddLabel(LabelStarred)
	thread.AddLabel(LabelStarred)
	if len(thread.Labels) != 2 {
		t.Errorf("Labels = %v, want exactly [INBOX STARRED]", thread.Labels)
	}
}

func TestThread_RemoveLabel(t *testing.T) {
	thread := &Thread{Labels: []string{LabelInbox, LabelStarred}}
	thread.RemoveLabel(LabelInbox)
	if thread.HasLabel(LabelInbox) {
		t.Error("expected INBOX removed")
	}
	if !thread.HasLabel(LabelStarred) {
		t.Error("expected STARRED untouched")
	}

	// Removing an absent label is a no-op.
	thread.RemoveLabel(LabelInbox)
	if len(thread.Labels) != 1 {
		t.Errorf("Labels = %v, want [STARRED]", thread.Labels)
	}
}
