package peer

import (
	"sync"
	"testing"

	"github.com/aakashbhandari1000/Meeting/internal/domain"
	"github.com/aakashbhandari1000/Meeting/internal/protocol"
)

type sendRecorder struct {
	mu   sync.Mutex
	envs []protocol.Envelope
}

func (r *sendRecorder) send(env protocol.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return nil
}

func (r *sendRecorder) count(kind protocol.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, env := range r.envs {
		if env.Kind == kind {
			n++
		}
	}
	return n
}

func (r *sendRecorder) targetsOf(kind protocol.Kind) []domain.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.UserID
	for _, env := range r.envs {
		if env.Kind == kind {
			out = append(out, env.TargetUserID)
		}
	}
	return out
}

func newTestManager(t *testing.T, uid domain.UserID) (*Manager, *sendRecorder) {
	t.Helper()
	rec := &sendRecorder{}
	m := NewManager(Config{
		UserID:      uid,
		DisplayName: string(uid),
		Video:       newVideoTrack(t, string(uid)),
	})
	m.send = rec.send
	t.Cleanup(m.TeardownAll)
	return m, rec
}

func joined(user domain.UserID) protocol.Envelope {
	return protocol.Envelope{Kind: protocol.KindParticipantJoined, UserID: user}
}

func TestSmallerIDInitiates(t *testing.T) {
	tests := []struct {
		name      string
		local     domain.UserID
		remote    domain.UserID
		wantOffer bool
	}{
		{name: "local smaller offers", local: "alice", remote: "bob", wantOffer: true},
		{name: "local larger waits", local: "bob", remote: "alice", wantOffer: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, rec := newTestManager(t, tt.local)
			m.handle(joined(tt.remote))

			wantOffers := 0
			if tt.wantOffer {
				wantOffers = 1
			}
			if got := rec.count(protocol.KindOffer); got != wantOffers {
				t.Fatalf("sent %d offers, want %d", got, wantOffers)
			}
			if _, ok := m.Link(tt.remote); ok != tt.wantOffer {
				t.Fatalf("link exists = %v, want %v (answerer creates it on the offer)", ok, tt.wantOffer)
			}
		})
	}
}

func TestSnapshotPairsWithEveryExistingMember(t *testing.T) {
	m, rec := newTestManager(t, "alice")

	var sawJoined bool
	m.events.OnJoined = func(isHost bool, participants []protocol.ParticipantInfo) {
		sawJoined = true
		if isHost {
			t.Error("alice reported as host")
		}
		if len(participants) != 2 {
			t.Errorf("roster size = %d, want 2 (self excluded)", len(participants))
		}
	}

	m.handle(protocol.Envelope{
		Kind:   protocol.KindParticipantJoined,
		UserID: "alice",
		Participants: []protocol.ParticipantInfo{
			{UserID: "alice"},
			{UserID: "bob"},
			{UserID: "carol", IsHost: true},
		},
	})

	if !sawJoined {
		t.Fatal("OnJoined not fired")
	}
	targets := rec.targetsOf(protocol.KindOffer)
	if len(targets) != 2 {
		t.Fatalf("sent %d offers, want 2", len(targets))
	}
	for _, target := range targets {
		if target != "bob" && target != "carol" {
			t.Fatalf("offered to %q", target)
		}
	}
}

func TestSnapshotWithLargerPeersSendsNoOffers(t *testing.T) {
	m, rec := newTestManager(t, "zed")
	m.handle(protocol.Envelope{
		Kind:         protocol.KindParticipantJoined,
		UserID:       "zed",
		Participants: []protocol.ParticipantInfo{{UserID: "alice"}, {UserID: "zed"}},
	})
	if rec.count(protocol.KindOffer) != 0 {
		t.Fatal("larger id initiated")
	}
	// Still tracked as a member for later recovery decisions.
	m.mu.Lock()
	isMember := m.members["alice"]
	m.mu.Unlock()
	if !isMember {
		t.Fatal("snapshot member not recorded")
	}
}

func TestRemoteOfferGetsAnswered(t *testing.T) {
	m, rec := newTestManager(t, "bob")
	m.handle(joined("alice"))

	sdp := protocol.SDPFromPion(makeOffer(t))
	m.handle(protocol.Envelope{Kind: protocol.KindOffer, UserID: "alice", TargetUserID: "bob", SDP: &sdp})

	if rec.count(protocol.KindAnswer) != 1 {
		t.Fatal("offer not answered")
	}
	link, ok := m.Link("alice")
	if !ok {
		t.Fatal("no link after offer")
	}
	if link.State() != StateNegotiating {
		t.Fatalf("link state = %q, want negotiating", link.State())
	}
}

func TestCandidateWithoutLinkIsDropped(t *testing.T) {
	m, _ := newTestManager(t, "bob")
	cand := protocol.Candidate{Candidate: testCandidate}
	// Must not panic or create a link.
	m.handle(protocol.Envelope{Kind: protocol.KindICECandidate, UserID: "alice", TargetUserID: "bob", Candidate: &cand})
	if _, ok := m.Link("alice"); ok {
		t.Fatal("candidate conjured a link")
	}
}

func TestAnswerWithoutLinkIsIgnored(t *testing.T) {
	m, _ := newTestManager(t, "alice")
	sdp := protocol.SDP{Type: "answer", SDP: "v=0\r\n"}
	m.handle(protocol.Envelope{Kind: protocol.KindAnswer, UserID: "bob", TargetUserID: "alice", SDP: &sdp})
}

func TestParticipantLeftTearsDownLink(t *testing.T) {
	m, _ := newTestManager(t, "alice")
	m.handle(joined("bob"))
	link, ok := m.Link("bob")
	if !ok {
		t.Fatal("no link to bob")
	}

	var left domain.UserID
	m.events.OnParticipantLeft = func(user domain.UserID) { left = user }

	m.handle(protocol.Envelope{Kind: protocol.KindParticipantLeft, UserID: "bob"})

	if left != "bob" {
		t.Fatalf("OnParticipantLeft got %q", left)
	}
	if link.State() != StateClosed {
		t.Fatalf("link state = %q, want closed", link.State())
	}
	if _, ok := m.Link("bob"); ok {
		t.Fatal("departed member still linked")
	}
}

func TestRecoveryOnlyWhileMember(t *testing.T) {
	m, rec := newTestManager(t, "alice")
	m.handle(joined("bob"))
	offersBefore := rec.count(protocol.KindOffer)

	// Remote still a member: the failed link is replaced and
	// renegotiated by the smaller id.
	failed, _ := m.Link("bob")
	m.recover("bob", failed)
	if got := rec.count(protocol.KindOffer); got != offersBefore+1 {
		t.Fatalf("offers after recovery = %d, want %d", got, offersBefore+1)
	}
	link, ok := m.Link("bob")
	if !ok {
		t.Fatal("no fresh link after recovery")
	}
	if link.State() != StateNegotiating {
		t.Fatalf("fresh link state = %q", link.State())
	}

	// Remote gone: failure is terminal, no new link, no offer.
	m.handle(protocol.Envelope{Kind: protocol.KindParticipantLeft, UserID: "bob"})
	m.mu.Lock()
	stale, err := m.ensureLinkLocked("bob")
	m.mu.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	offersBefore = rec.count(protocol.KindOffer)
	m.recover("bob", stale)
	if rec.count(protocol.KindOffer) != offersBefore {
		t.Fatal("recovery offered to a departed member")
	}
	if _, ok := m.Link("bob"); ok {
		t.Fatal("recovery rebuilt a link to a departed member")
	}
}

func TestLargerIDWaitsForPeerOfferOnRecovery(t *testing.T) {
	m, rec := newTestManager(t, "zed")
	m.handle(joined("alice"))
	// zed > alice: answerer side, link appears with alice's offer.
	sdp := protocol.SDPFromPion(makeOffer(t))
	m.handle(protocol.Envelope{Kind: protocol.KindOffer, UserID: "alice", TargetUserID: "zed", SDP: &sdp})

	failed, _ := m.Link("alice")
	m.recover("alice", failed)
	if rec.count(protocol.KindOffer) != 0 {
		t.Fatal("larger id initiated recovery")
	}
	if _, ok := m.Link("alice"); ok {
		t.Fatal("stale link kept while waiting for the peer's fresh offer")
	}
}

func TestStaleFailureLeavesFreshLinkAlone(t *testing.T) {
	m, rec := newTestManager(t, "zed")
	m.handle(joined("alice"))

	// alice (the initiator) negotiated once; that link then fails.
	sdp := protocol.SDPFromPion(makeOffer(t))
	m.handle(protocol.Envelope{Kind: protocol.KindOffer, UserID: "alice", TargetUserID: "zed", SDP: &sdp})
	old, ok := m.Link("alice")
	if !ok {
		t.Fatal("no link after alice's offer")
	}

	// alice saw the failure first and her fresh offer arrives before
	// our own failure callback gets to run.
	sdp2 := protocol.SDPFromPion(makeOffer(t))
	m.handle(protocol.Envelope{Kind: protocol.KindOffer, UserID: "alice", TargetUserID: "zed", SDP: &sdp2})
	answers := rec.count(protocol.KindAnswer)

	m.recover("alice", old)

	link, ok := m.Link("alice")
	if !ok {
		t.Fatal("fresh link destroyed by stale failure callback")
	}
	if link == old {
		t.Fatal("link was not replaced by the fresh offer")
	}
	if link.State() != StateNegotiating {
		t.Fatalf("fresh link state = %q, want negotiating", link.State())
	}
	if got := rec.count(protocol.KindAnswer); got != answers {
		t.Fatalf("answers = %d, want %d", got, answers)
	}
}

func TestReplaceOutboundVideoCoversEveryLink(t *testing.T) {
	m, _ := newTestManager(t, "alice")
	m.handle(joined("bob"))
	m.handle(joined("carol"))

	replacement := newVideoTrack(t, "alice-screen")
	if err := m.ReplaceOutboundVideo(replacement); err != nil {
		t.Fatalf("ReplaceOutboundVideo: %v", err)
	}
	for _, remote := range []domain.UserID{"bob", "carol"} {
		link, ok := m.Link(remote)
		if !ok {
			t.Fatalf("no link to %s", remote)
		}
		if link.videoSender.Track() != replacement {
			t.Fatalf("link to %s kept the old track", remote)
		}
	}

	// A link created after the swap starts with the replacement track.
	m.handle(joined("dave"))
	link, ok := m.Link("dave")
	if !ok {
		t.Fatal("no link to dave")
	}
	if link.videoSender.Track() != replacement {
		t.Fatal("new link attached the stale track")
	}
}

func TestMeetingEndedTearsEverythingDown(t *testing.T) {
	m, _ := newTestManager(t, "alice")
	m.handle(joined("bob"))
	link, _ := m.Link("bob")

	ended := false
	m.events.OnMeetingEnded = func() { ended = true }

	m.handle(protocol.Envelope{Kind: protocol.KindMeetingEnded})
	if !ended {
		t.Fatal("OnMeetingEnded not fired")
	}
	if link.State() != StateClosed {
		t.Fatal("link survived meeting end")
	}
	if _, ok := m.Link("bob"); ok {
		t.Fatal("links map not cleared")
	}

	m.TeardownAll()
}

func TestRemovedNotifiesAndTearsDown(t *testing.T) {
	m, _ := newTestManager(t, "alice")
	m.handle(joined("bob"))

	removed := false
	m.events.OnRemoved = func() { removed = true }
	m.handle(protocol.Envelope{Kind: protocol.KindRemoved})
	if !removed {
		t.Fatal("OnRemoved not fired")
	}
	if _, ok := m.Link("bob"); ok {
		t.Fatal("links survived removal")
	}
}
