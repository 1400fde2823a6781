package notify

import "testing"

func TestChannelDeliversAndDropsWhenFull(t *testing.T) {
	ch := NewChannel(1)
	ch.Notify(Notice{Kind: KindInfo, Text: "first"})
	ch.Notify(Notice{Kind: KindInfo, Text: "second"})

	if ch.Dropped() != 1 {
		t.Fatalf("expected one dropped notice, got %d", ch.Dropped())
	}
	ch.Close()
	ch.Notify(Notice{Kind: KindError, Text: "after close"})

	var got []string
	for n := range ch.Notices() {
		got = append(got, n.Text)
	}
	if len(got) != 1 || got[0] != "first" {
		t.Fatalf("unexpected notices %v", got)
	}
}
