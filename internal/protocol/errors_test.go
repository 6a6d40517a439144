package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrBadRequest,
		ErrInvalidTarget,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestNewErrorFallsBackToInternal(t *testing.T) {
	if m := NewError(ErrInvalidTarget, "nope"); m.Code != ErrInvalidTarget || m.Type != TypeError {
		t.Fatalf("NewError=%+v", m)
	}
	if m := NewError("E_WHATEVER", "x"); m.Code != ErrInternal {
		t.Fatalf("unknown code kept: %+v", m)
	}
	if m := NewError("", "x"); m.Code != ErrInternal {
		t.Fatalf("empty code kept: %+v", m)
	}
}
