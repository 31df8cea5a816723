package playback

import (
	"errors"
	"testing"
	"testing/synctest"
	"time"
)

func TestNewSubscription_ChannelsReadable(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		sub := newSubscription()

		sub.sendState(StateChange{Previous: StateStopped, Current: StatePlaying})
		sub.sendTrack(TrackChange{Index: 1})
		sub.sendPosition(30 * time.Second)
		sub.sendQueue(QueueChange{Index: 2, Tracks: []Track{{Identifier: "/test/queue.mp3"}}})
		sub.sendMode(ModeChange{RepeatMode: RepeatAll})
		sub.sendError(ErrorEvent{Operation: "play", Err: errors.New("boom")})
		sub.sendQueueEnded()

		e := <-sub.StateChanged
		if e.Current != StatePlaying {
			t.Errorf("StateChanged.Current = %v, want Playing", e.Current)
		}

		tr := <-sub.TrackChanged
		if tr.Index != 1 {
			t.Errorf("TrackChanged.Index = %d, want 1", tr.Index)
		}

		pos := <-sub.PositionChanged
		if pos.Position != 30*time.Second {
			t.Errorf("PositionChanged.Position = %v, want 30s", pos.Position)
		}

		q := <-sub.QueueChanged
		if q.Index != 2 {
			t.Errorf("QueueChanged.Index = %d, want 2", q.Index)
		}
		if len(q.Tracks) != 1 || q.Tracks[0].Identifier != "/test/queue.mp3" {
			t.Errorf("QueueChanged.Tracks = %v, want [{/test/queue.mp3}]", q.Tracks)
		}

		m := <-sub.ModeChanged
		if m.RepeatMode != RepeatAll {
			t.Errorf("ModeChanged.RepeatMode = %v, want RepeatAll", m.RepeatMode)
		}

		er := <-sub.Error
		if er.Operation != "play" {
			t.Errorf("Error.Operation = %q, want play", er.Operation)
		}

		<-sub.QueueEnded
	})
}

func TestSubscription_Close_SignalsDone(t *testing.T) {
	synctest.Test(t, func(_ *testing.T) {
		sub := newSubscription()
		sub.close()
		<-sub.Done
	})
}

func TestSubscription_NonBlocking_DropsWhenFull(t *testing.T) {
	sub := newSubscription()

	for range eventBufferSize + 5 {
		sub.sendState(StateChange{})
	}
	sub.sendQueueEnded()
	sub.sendQueueEnded()

	count := 0
	for {
		select {
		case <-sub.StateChanged:
			count++
		default:
			goto done
		}
	}
done:
	if count != eventBufferSize {
		t.Errorf("received %d events, want %d (buffer size)", count, eventBufferSize)
	}
	if len(sub.QueueEnded) != 1 {
		t.Errorf("QueueEnded holds %d signals, want 1", len(sub.QueueEnded))
	}
}
