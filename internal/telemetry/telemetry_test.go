package telemetry

import (
	"testing"
	"time"
)

func TestSubscribeReceivesPublishedReports(t *testing.T) {
	p := NewPublisher()
	ch := p.Subscribe(4)

	want := RoundReport{Round: 1, NumResults: 3, Elapsed: time.Millisecond}
	p.Publish(want)

	select {
	case got := <-ch:
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the published report")
	}
}

func TestSubscribeDefaultsNonPositiveBufferSize(t *testing.T) {
	p := NewPublisher()
	ch := p.Subscribe(0)
	if cap(ch) != 16 {
		t.Errorf("buffer size 0 should default to 16, got cap %d", cap(ch))
	}
}

func TestPublishDropsWhenSubscriberBufferIsFull(t *testing.T) {
	p := NewPublisher()
	ch := p.Subscribe(1)

	p.Publish(RoundReport{Round: 1})
	p.Publish(RoundReport{Round: 2}) // buffer full, must be dropped silently

	got := <-ch
	if got.Round != 1 {
		t.Errorf("expected the first report to survive, got round %d", got.Round)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected no second report, got %+v", extra)
	default:
	}
}

func TestPublishFansOutToEverySubscriber(t *testing.T) {
	p := NewPublisher()
	a := p.Subscribe(4)
	b := p.Subscribe(4)

	p.Publish(RoundReport{Round: 7})

	for _, ch := range []<-chan RoundReport{a, b} {
		select {
		case got := <-ch:
			if got.Round != 7 {
				t.Errorf("got round %d, want 7", got.Round)
			}
		case <-time.After(time.Second):
			t.Fatal("a subscriber never received the published report")
		}
	}
}

func TestCloseClosesEverySubscriberChannel(t *testing.T) {
	p := NewPublisher()
	ch := p.Subscribe(4)

	p.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber channel was never closed")
	}
}
