package messages

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/ivlev/attnmap/internal/apperr"
)

func TestEveryTerminalKindHasAlert(t *testing.T) {
	for _, k := range apperr.Kinds() {
		if k.Recoverable() {
			continue
		}
		a := ForKind(k)
		if a.Title == "" || a.Body == "" {
			t.Errorf("%s has an empty alert", k)
		}
	}
	if ForKind(apperr.Unknown) != ForKind(apperr.UnknownServiceError) {
		t.Error("Unknown kinds should fall back to the generic alert")
	}
}

func TestRejection(t *testing.T) {
	if got := Rejection(apperr.TooSmall, 70, 32); !strings.Contains(got, "70x32") {
		t.Errorf("Unexpected notice %q", got)
	}
	if got := Rejection(apperr.OutOfBounds, 70, 32); !strings.Contains(got, "outside") {
		t.Errorf("Unexpected notice %q", got)
	}
}

func TestTip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		if tip := Tip(r); !strings.Contains(tip, "TIP: ") {
			t.Errorf("Unexpected tip %q", tip)
		}
	}
}
