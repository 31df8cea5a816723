package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/llehouerou/wavefeed/internal/player"
)

const (
	testPathA = "/a.mp3"
	testPathB = "/b.mp3"
	testPathC = "/c.mp3"
)

func newTestService(ids ...string) (*player.Mock, Service) {
	p := player.NewMock()
	svc := New(p)
	tracks := make([]Track, len(ids))
	for i, id := range ids {
		tracks[i] = Track{Identifier: id}
	}
	svc.AddTracks(tracks...)
	return p, svc
}

func playedIdentifiers(p *player.Mock) []string {
	var ids []string
	for _, req := range p.PlayCalls() {
		ids = append(ids, req.Identifier)
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func finish(p *player.Mock) {
	p.Emit(player.TrackEnd{Reason: player.EndFinished})
}

func TestService_State_ReflectsPlayer(t *testing.T) {
	p, svc := newTestService()

	if svc.State() != StateStopped {
		t.Errorf("State() = %v, want Stopped", svc.State())
	}
	p.SetState(player.Playing)
	if !svc.IsPlaying() {
		t.Errorf("State() = %v, want Playing", svc.State())
	}
	p.Pause()
	if !svc.IsPaused() {
		t.Errorf("State() = %v, want Paused", svc.State())
	}
	p.SetState(player.Stopped)
	if !svc.IsStopped() {
		t.Errorf("State() = %v, want Stopped", svc.State())
	}
}

func TestService_Position_ReflectsPlayer(t *testing.T) {
	p, svc := newTestService()

	_ = p.SetPosition(30000)

	if svc.Position() != 30*time.Second {
		t.Errorf("Position() = %v, want 30s", svc.Position())
	}
}

func TestService_Play_EmptyQueue(t *testing.T) {
	_, svc := newTestService()

	if err := svc.Play(); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("Play() error = %v, want ErrEmptyQueue", err)
	}
}

func TestService_Play_StartsFirstTrack(t *testing.T) {
	p := player.NewMock()
	svc := New(p)
	svc.AddTracks(Track{Identifier: testPathA, Start: 1500 * time.Millisecond})
	sub := svc.Subscribe()

	if err := svc.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	calls := p.PlayCalls()
	if len(calls) != 1 {
		t.Fatalf("PlayTrack called %d times, want 1", len(calls))
	}
	if calls[0].Identifier != testPathA || calls[0].Position != 1500 || !calls[0].ReplaceExisting {
		t.Errorf("PlayTrack request = %+v", calls[0])
	}
	if svc.QueueCurrentIndex() != 0 {
		t.Errorf("QueueCurrentIndex() = %d, want 0", svc.QueueCurrentIndex())
	}

	select {
	case tc := <-sub.TrackChanged:
		if tc.Index != 0 || tc.Current.Identifier != testPathA {
			t.Errorf("TrackChanged = %+v", tc)
		}
	default:
		t.Error("expected TrackChanged event")
	}
}

func TestService_AdvancesOnFinished(t *testing.T) {
	p, svc := newTestService(testPathA, testPathB, testPathC)
	sub := svc.Subscribe()

	_ = svc.Play()
	finish(p)
	p.Emit(player.TrackEnd{Reason: player.EndLoadFailed})

	want := []string{testPathA, testPathB, testPathC}
	if got := playedIdentifiers(p); !equalStrings(got, want) {
		t.Errorf("played %v, want %v", got, want)
	}

	finish(p)
	select {
	case <-sub.QueueEnded:
	default:
		t.Error("expected QueueEnded after the last track")
	}
	if len(p.PlayCalls()) != 3 {
		t.Errorf("PlayTrack called %d times, want 3", len(p.PlayCalls()))
	}
}

func TestService_DoesNotAdvanceOnOtherReasons(t *testing.T) {
	reasons := []player.EndReason{player.EndStopped, player.EndReplaced, player.EndCleanup}

	for _, reason := range reasons {
		t.Run(reason.String(), func(t *testing.T) {
			p, svc := newTestService(testPathA, testPathB)
			_ = svc.Play()

			p.Emit(player.TrackEnd{Reason: reason})

			if n := len(p.PlayCalls()); n != 1 {
				t.Errorf("PlayTrack called %d times, want 1", n)
			}
		})
	}
}

func TestService_RepeatModes(t *testing.T) {
	tests := []struct {
		name string
		mode RepeatMode
		want []string
	}{
		{"off", RepeatOff, []string{testPathA, testPathB}},
		{"all", RepeatAll, []string{testPathA, testPathB, testPathA, testPathB}},
		{"one", RepeatOne, []string{testPathA, testPathA, testPathA, testPathA}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, svc := newTestService(testPathA, testPathB)
			svc.SetRepeatMode(tt.mode)
			_ = svc.Play()

			for range 3 {
				finish(p)
			}

			if got := playedIdentifiers(p); !equalStrings(got, tt.want) {
				t.Errorf("played %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_SkipsTracksThatFailToStart(t *testing.T) {
	p, svc := newTestService(testPathA, testPathB)
	sub := svc.Subscribe()
	startErr := errors.New("no such file")
	p.SetPlayError(startErr)

	err := svc.Play()

	if !errors.Is(err, startErr) {
		t.Errorf("Play() error = %v, want %v", err, startErr)
	}
	if n := len(p.PlayCalls()); n != 2 {
		t.Errorf("PlayTrack called %d times, want 2", n)
	}
	if n := len(sub.Error); n != 2 {
		t.Errorf("received %d error events, want 2", n)
	}
	ev := <-sub.Error
	if ev.Identifier != testPathA || !errors.Is(ev.Err, startErr) {
		t.Errorf("first error event = %+v", ev)
	}
	select {
	case <-sub.QueueEnded:
	default:
		t.Error("expected QueueEnded")
	}
}

func TestService_Navigation(t *testing.T) {
	p, svc := newTestService(testPathA, testPathB, testPathC)
	_ = svc.Play()

	if err := svc.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if err := svc.JumpTo(2); err != nil {
		t.Fatalf("JumpTo(2) error = %v", err)
	}
	if err := svc.Previous(); err != nil {
		t.Fatalf("Previous() error = %v", err)
	}
	if err := svc.JumpTo(7); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("JumpTo(7) error = %v, want ErrInvalidIndex", err)
	}

	want := []string{testPathA, testPathB, testPathC, testPathB}
	if got := playedIdentifiers(p); !equalStrings(got, want) {
		t.Errorf("played %v, want %v", got, want)
	}
	if cur := svc.CurrentTrack(); cur == nil || cur.Identifier != testPathB {
		t.Errorf("CurrentTrack() = %v, want %s", cur, testPathB)
	}
}

func TestService_NextAtEnd(t *testing.T) {
	p, svc := newTestService(testPathA)
	_ = svc.Play()

	if err := svc.Next(); err != nil {
		t.Errorf("Next() error = %v", err)
	}
	if n := len(p.PlayCalls()); n != 1 {
		t.Errorf("PlayTrack called %d times, want 1", n)
	}

	svc.SetRepeatMode(RepeatAll)
	_ = svc.Next()
	if n := len(p.PlayCalls()); n != 2 {
		t.Errorf("PlayTrack called %d times with RepeatAll, want 2", n)
	}
}

func TestService_PauseAndResume(t *testing.T) {
	p, svc := newTestService(testPathA)
	_ = svc.Play()

	_ = svc.Pause()
	if !p.IsPaused() {
		t.Error("player should be paused")
	}

	// Play resumes instead of restarting.
	_ = svc.Play()
	if p.IsPaused() {
		t.Error("player should be resumed")
	}
	if n := len(p.PlayCalls()); n != 1 {
		t.Errorf("PlayTrack called %d times, want 1", n)
	}

	_ = svc.Toggle()
	if !p.IsPaused() {
		t.Error("Toggle() should pause")
	}
}

func TestService_ToggleWhenStoppedPlays(t *testing.T) {
	p, svc := newTestService(testPathA)

	_ = svc.Toggle()

	if n := len(p.PlayCalls()); n != 1 {
		t.Errorf("PlayTrack called %d times, want 1", n)
	}
}

func TestService_Stop(t *testing.T) {
	p, svc := newTestService(testPathA)
	_ = svc.Play()

	_ = svc.Stop()

	if p.StopCalls() != 1 {
		t.Errorf("StopTrack called %d times, want 1", p.StopCalls())
	}
}

func TestService_SeekTo(t *testing.T) {
	p, svc := newTestService(testPathA)
	sub := svc.Subscribe()

	if err := svc.SeekTo(30 * time.Second); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	if got := p.SeekCalls(); len(got) != 1 || got[0] != 30000 {
		t.Errorf("SeekCalls() = %v, want [30000]", got)
	}
	if pos := <-sub.PositionChanged; pos.Position != 30*time.Second {
		t.Errorf("PositionChanged = %v, want 30s", pos.Position)
	}

	seekErr := errors.New("not seekable")
	p.SetSeekError(seekErr)
	if err := svc.SeekTo(time.Second); !errors.Is(err, seekErr) {
		t.Errorf("SeekTo() error = %v, want %v", err, seekErr)
	}
	if ev := <-sub.Error; ev.Operation != "seek" {
		t.Errorf("Error.Operation = %q, want seek", ev.Operation)
	}
}

func TestService_QueueManipulation(t *testing.T) {
	_, svc := newTestService(testPathA)
	sub := svc.Subscribe()

	first := svc.ReplaceTracks(Track{Identifier: testPathB}, Track{Identifier: testPathC})
	if first == nil || first.Identifier != testPathB {
		t.Errorf("ReplaceTracks() = %v, want %s", first, testPathB)
	}
	if svc.QueueLen() != 2 {
		t.Errorf("QueueLen() = %d, want 2", svc.QueueLen())
	}
	if qc := <-sub.QueueChanged; len(qc.Tracks) != 2 || qc.Index != 0 {
		t.Errorf("QueueChanged = %+v", qc)
	}

	svc.ClearQueue()
	if svc.QueueLen() != 0 || svc.QueueCurrentIndex() != -1 {
		t.Errorf("queue not cleared: len %d index %d", svc.QueueLen(), svc.QueueCurrentIndex())
	}
	if tracks := svc.QueueTracks(); len(tracks) != 0 {
		t.Errorf("QueueTracks() = %v, want empty", tracks)
	}
}

func TestService_CycleRepeatMode(t *testing.T) {
	_, svc := newTestService()
	sub := svc.Subscribe()

	if got := svc.CycleRepeatMode(); got != RepeatAll {
		t.Errorf("CycleRepeatMode() = %v, want All", got)
	}
	if m := <-sub.ModeChanged; m.RepeatMode != RepeatAll {
		t.Errorf("ModeChanged = %v, want All", m.RepeatMode)
	}
	if svc.RepeatMode() != RepeatAll {
		t.Errorf("RepeatMode() = %v, want All", svc.RepeatMode())
	}
}

func TestService_ForwardsPlayerEvents(t *testing.T) {
	p, svc := newTestService(testPathA)
	sub := svc.Subscribe()

	p.SetState(player.Playing)
	p.Emit(player.TrackStart{})
	p.Pause()
	p.Emit(player.PlayerPause{})

	first := <-sub.StateChanged
	if first.Previous != StateStopped || first.Current != StatePlaying {
		t.Errorf("first StateChange = %+v", first)
	}
	second := <-sub.StateChanged
	if second.Current != StatePaused {
		t.Errorf("second StateChange = %+v", second)
	}

	p.Emit(player.TrackException{})
	if ev := <-sub.Error; ev.Operation != "read track" {
		t.Errorf("Error.Operation = %q, want read track", ev.Operation)
	}
}

func TestService_Close(t *testing.T) {
	p, svc := newTestService(testPathA, testPathB)
	sub := svc.Subscribe()
	_ = svc.Play()

	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	<-sub.Done

	finish(p)
	if n := len(p.PlayCalls()); n != 1 {
		t.Errorf("PlayTrack called %d times after Close, want 1", n)
	}
	if err := svc.Play(); !errors.Is(err, ErrClosed) {
		t.Errorf("Play() error = %v, want ErrClosed", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	<-svc.Subscribe().Done
	if svc.Player() != p {
		t.Error("Player() should return the driven player")
	}
}
