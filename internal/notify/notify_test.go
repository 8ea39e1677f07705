package notify

import (
	"testing"
)

func TestPublishReachesObservers(t *testing.T) {
	n := NewNotifier()

	var got []Change
	n.Subscribe(func(c Change) {
		got = append(got, c)
	})

	n.Publish(Change{Type: ChangeFileTokens, Path: "/ws/a.lua", Reason: "save"})

	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].Type != ChangeFileTokens || got[0].Path != "/ws/a.lua" {
		t.Errorf("got[0] = %+v", got[0])
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	n := NewNotifier()

	count := 0
	sub := n.Subscribe(func(Change) { count++ })

	n.Publish(Change{Type: ChangeInvalidateAll})
	sub.Unsubscribe()
	n.Publish(Change{Type: ChangeInvalidateAll})

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if n.ObserverCount() != 0 {
		t.Errorf("ObserverCount() = %d, want 0", n.ObserverCount())
	}
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe(func(Change) {})
	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestChangeTypeString(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want string
	}{
		{ChangeInvalidateAll, "invalidate-all"},
		{ChangeFileTokens, "file-tokens"},
		{ChangeFileRemoved, "file-removed"},
		{ChangeType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.ct.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
