package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfFollowsWrappedChain(t *testing.T) {
	base := NotFound("tenant session not found")
	wrapped := fmt.Errorf("get state: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("expected not_found, got %v", got)
	}
	if !Is(wrapped, KindNotFound) {
		t.Fatal("expected Is to match wrapped error")
	}
	if Is(nil, KindUnknown) {
		t.Fatal("nil must not match any kind")
	}
}

func TestUnavailableMapsTo503(t *testing.T) {
	err := Unavailable("transport offline", errors.New("dial failed"))
	if err.HTTPStatus() != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", err.HTTPStatus())
	}
	if err.Error() != "transport offline: dial failed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if err.PublicMessage() != "transport offline" {
		t.Fatalf("unexpected public message %q", err.PublicMessage())
	}
}

func TestInternalErrorsHideTheirMessage(t *testing.T) {
	cause := errors.New(`relation "in_app_notifications" does not exist`)
	err := Wrap(KindInternal, "list notifications", cause).WithOp("notifications.list")

	if err.PublicMessage() != "internal error" {
		t.Fatalf("leaked message %q", err.PublicMessage())
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to stay in the chain")
	}
	want := `notifications.list: list notifications: relation "in_app_notifications" does not exist`
	if err.Error() != want {
		t.Fatalf("got %q", err.Error())
	}
}

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindInternal, http.StatusInternalServerError},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Status(); got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}
