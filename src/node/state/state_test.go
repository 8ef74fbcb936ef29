package state

import "testing"

func TestManager(t *testing.T) {
	var m Manager

	if s := m.GetState(); s != Running {
		t.Fatalf("zero state should be Running, not %s", s)
	}

	m.SetState(Terminating)
	if s := m.GetState(); s != Terminating {
		t.Fatalf("state should be Terminating, not %s", s)
	}

	m.SetState(Stopped)
	if s := m.GetState().String(); s != "Stopped" {
		t.Fatalf("state should be Stopped, not %s", s)
	}
	if s := State(42).String(); s != "Unknown" {
		t.Fatalf("unknown state should print Unknown, not %s", s)
	}
}
