package peer

import (
	"errors"
	"testing"
)

func TestCameraIsExclusive(t *testing.T) {
	first, err := AcquireCamera("alice")
	if err != nil {
		t.Fatalf("AcquireCamera: %v", err)
	}

	if _, err := AcquireCamera("bob"); !errors.Is(err, ErrCameraInUse) {
		t.Fatalf("second acquire err = %v, want ErrCameraInUse", err)
	}

	first.Release()
	first.Release() // idempotent

	second, err := AcquireCamera("bob")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	second.Release()
}

func TestCameraTracks(t *testing.T) {
	session, err := AcquireCamera("alice")
	if err != nil {
		t.Fatalf("AcquireCamera: %v", err)
	}
	defer session.Release()

	if session.AudioTrack() == nil || session.VideoTrack() == nil {
		t.Fatal("camera session missing tracks")
	}
	if session.AudioTrack().ID() != "audio" || session.VideoTrack().ID() != "video" {
		t.Fatalf("track ids = %q, %q", session.AudioTrack().ID(), session.VideoTrack().ID())
	}
}

func TestScreenShareSwapsAndRestores(t *testing.T) {
	m, _ := newTestManager(t, "alice")
	camera := m.localVideo
	m.handle(joined("bob"))

	share, err := m.StartScreenShare("alice")
	if err != nil {
		t.Fatalf("StartScreenShare: %v", err)
	}
	link, ok := m.Link("bob")
	if !ok {
		t.Fatal("no link to bob")
	}
	if link.videoSender.Track() != share.Track() {
		t.Fatal("link not switched to the screen track")
	}
	// Pairs formed mid-share see the screen too.
	m.handle(joined("carol"))
	carolLink, _ := m.Link("carol")
	if carolLink.videoSender.Track() != share.Track() {
		t.Fatal("new link attached the camera during a share")
	}

	if err := share.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if link.videoSender.Track() != camera {
		t.Fatal("camera track not restored")
	}
	if err := share.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestScreenTrackID(t *testing.T) {
	track, err := NewScreenTrack("alice")
	if err != nil {
		t.Fatalf("NewScreenTrack: %v", err)
	}
	if track.ID() != "screen" {
		t.Fatalf("track id = %q, want screen", track.ID())
	}
}
