package conversation

import (
	"strings"
	"testing"
)

func TestEveryStateAnswersArbitraryText(t *testing.T) {
	m := testMachine(t)
	inputs := []string{"xyz", "1", "9", "Émerald please", "हाँ", "NA"}

	for _, state := range AllStates {
		for _, text := range inputs {
			s := newSession("c1", "+919800000001")
			s.State = state
			if state == StateResumeDecision {
				s.ResumeState = StateProductAddress
				s.AwaitingResume = true
			}

			out := m.Step(s, text)
			if len(out.Replies) == 0 && !out.Finalize {
				t.Errorf("state %s with %q produced no reply", state, text)
			}
			for _, r := range out.Replies {
				if strings.TrimSpace(r) == "" {
					t.Errorf("state %s with %q produced an empty reply", state, text)
				}
			}
		}
	}
}

func TestUnrecognizedSubmenuInputKeepsState(t *testing.T) {
	m := testMachine(t)

	for _, state := range []State{StateServicesMenu, StateProductsMenu} {
		s := newSession("c1", "+919800000001")
		s.State = state
		out := m.Step(s, "no idea")
		if s.State != state {
			t.Fatalf("expected %s to stay put, moved to %s", state, s.State)
		}
		if len(out.Replies) != 1 || !strings.HasPrefix(out.Replies[0], msgNotUnderstood) {
			t.Fatalf("expected a re-prompt, got %v", out.Replies)
		}
	}
}

func TestFinalizeRequiresNameThenEmail(t *testing.T) {
	m := testMachine(t)
	s := newSession("c1", "+919800000001")
	s.State = StateExecutiveMessage

	out := m.Step(s, "Please call me about a bulk order")
	if out.Finalize || s.State != StateAskName {
		t.Fatalf("expected ASK_NAME before finalize, state=%s finalize=%v", s.State, out.Finalize)
	}

	out = m.Step(s, "Ravi")
	if out.Finalize || s.State != StateAskEmail {
		t.Fatalf("expected ASK_EMAIL after name, state=%s finalize=%v", s.State, out.Finalize)
	}
	if !strings.Contains(out.Replies[0], "Ravi") {
		t.Fatalf("expected email prompt to use the name, got %q", out.Replies[0])
	}

	out = m.Step(s, "not-an-email")
	if out.Finalize || s.State != StateAskEmail {
		t.Fatalf("expected invalid email to re-prompt, state=%s", s.State)
	}
	if out.Replies[0] != msgInvalidEmail {
		t.Fatalf("expected invalid email message, got %q", out.Replies[0])
	}

	out = m.Step(s, "ravi@example.com")
	if !out.Finalize {
		t.Fatal("expected finalize once name and email are known")
	}
	if s.Data.ExecutiveMessage != "Please call me about a bulk order" {
		t.Fatalf("expected executive message to be kept, got %q", s.Data.ExecutiveMessage)
	}
}

func TestKnownContactSkipsStraightToFinalize(t *testing.T) {
	m := testMachine(t)
	s := newSession("c1", "+919800000001")
	s.KnownName = "Asha"
	s.KnownEmail = "asha@example.com"
	s.State = StateServiceDetails

	if out := m.Step(s, "born 1990 in Pune"); !out.Finalize {
		t.Fatalf("expected finalize for known contact, got state %s", s.State)
	}

	s = newSession("c2", "+919800000002")
	s.KnownName = "Asha"
	s.State = StateProductAltContact
	if out := m.Step(s, "NA"); out.Finalize || s.State != StateAskEmail {
		t.Fatalf("expected ASK_EMAIL when only name is known, got %s", s.State)
	}
}

func TestTopLevelRouting(t *testing.T) {
	m := testMachine(t)

	cases := []struct {
		text      string
		wantState State
		wantLabel string
	}{
		{"2", StateProductsMenu, ""},
		{"1", StateServicesMenu, ""},
		{"3", StateExecutiveMessage, ""},
		{"I want a kundli made", StateServiceDetails, "Astrology Reading"},
		{"price of an emerald ring", StateProductRequirements, "Emerald"},
		{"hi there", StateMenu, ""},
	}

	for _, tc := range cases {
		s := newSession("c1", "+919800000001")
		out := m.Step(s, tc.text)
		if s.State != tc.wantState {
			t.Errorf("%q: expected %s, got %s", tc.text, tc.wantState, s.State)
		}
		if len(out.Replies) != 1 {
			t.Errorf("%q: expected exactly one reply, got %d", tc.text, len(out.Replies))
		}
		if tc.wantLabel != "" && s.Category() != tc.wantLabel {
			t.Errorf("%q: expected category %q, got %q", tc.text, tc.wantLabel, s.Category())
		}
	}
}

func TestServicesMenuRoutingEntries(t *testing.T) {
	m := testMachine(t)

	s := newSession("c1", "+919800000001")
	s.State = StateServicesMenu
	m.Step(s, "5")
	if s.State != StateExecutiveMessage {
		t.Fatalf("expected executive entry to route to EXECUTIVE_MESSAGE, got %s", s.State)
	}

	s = newSession("c1", "+919800000001")
	s.State = StateServicesMenu
	out := m.Step(s, "6")
	if s.State != StateMenu || out.Replies[0] != m.catalog.MainMenuText() {
		t.Fatalf("expected main_menu entry to show main menu, got %s", s.State)
	}

	s = newSession("c1", "+919800000001")
	s.State = StateServicesMenu
	out = m.Step(s, "certification")
	if s.State != StateServiceDetails || s.Data.ServiceID != "certification" {
		t.Fatalf("expected certification details, got %s/%s", s.State, s.Data.ServiceID)
	}
	if !strings.Contains(out.Replies[0], "certified") {
		t.Fatalf("expected the service specific prompt, got %q", out.Replies[0])
	}
}

func TestShowMenuPreservesData(t *testing.T) {
	m := testMachine(t)
	s := newSession("c1", "+919800000001")
	s.State = StateProductAddress
	s.Data.ProductLabel = "Ruby"
	s.Data.Details = "2 rings"

	out := m.ShowMenu(s)
	if s.State != StateMenu {
		t.Fatalf("expected MENU, got %s", s.State)
	}
	if s.Data.ProductLabel != "Ruby" || s.Data.Details != "2 rings" {
		t.Fatalf("expected data to survive the menu command, got %+v", s.Data)
	}
	if out.Replies[0] != m.catalog.MainMenuText() {
		t.Fatalf("expected main menu text, got %q", out.Replies[0])
	}
}

func TestResumeContinueRestoresStateAndPrompt(t *testing.T) {
	m := testMachine(t)
	s := newSession("c1", "+919800000001")
	s.State = StateProductAddress
	s.Data.ProductLabel = "Emerald"

	m.EnterResume(s)
	if s.State != StateResumeDecision || !s.AwaitingResume || s.ResumeState != StateProductAddress {
		t.Fatalf("unexpected resume bookkeeping: %+v", s)
	}

	out := m.Resume(s, "maybe")
	if s.State != StateResumeDecision || out.Replies[0] != msgResumeReprompt {
		t.Fatalf("expected re-prompt without state change, got %s", s.State)
	}

	out = m.Resume(s, "1")
	if s.State != StateProductAddress || s.AwaitingResume || s.ResumeState != "" {
		t.Fatalf("expected restored PRODUCT_ADDRESS with cleared bookkeeping, got %+v", s)
	}
	if out.Replies[0] != msgAddress {
		t.Fatalf("expected the address prompt again, got %q", out.Replies[0])
	}
	if s.Data.ProductLabel != "Emerald" {
		t.Fatal("expected data to be kept on continue")
	}
}

func TestResumeRestartClearsData(t *testing.T) {
	m := testMachine(t)
	s := newSession("c1", "+919800000001")
	s.State = StateAskEmail
	s.Data.Name = "Asha"
	s.Data.ProductLabel = "Ruby"
	s.KnownName = "Asha K"

	m.EnterResume(s)
	out := m.Resume(s, "2")
	if !out.Restarted || s.State != StateMenu {
		t.Fatalf("expected restart into MENU, got %s (restarted=%v)", s.State, out.Restarted)
	}
	if s.Data != (Data{}) {
		t.Fatalf("expected accumulated data to be cleared, got %+v", s.Data)
	}
	if s.KnownName != "Asha K" {
		t.Fatal("expected stored contact facts to survive a restart")
	}
	if out.Replies[0] != m.catalog.MainMenuText() {
		t.Fatalf("expected main menu after restart, got %q", out.Replies[0])
	}
}

func TestPromptIsIdempotent(t *testing.T) {
	m := testMachine(t)
	for _, state := range AllStates {
		s := newSession("c1", "+919800000001")
		s.State = state
		s.Data.ServiceID = "astrology_reading"
		beforeState, beforeData := s.State, s.Data
		first := m.Prompt(s)
		second := m.Prompt(s)
		if first == "" || first != second {
			t.Fatalf("state %s: prompt must be stable and non-empty", state)
		}
		if s.State != beforeState || s.Data != beforeData {
			t.Fatalf("state %s: prompt must not mutate the session", state)
		}
	}
}

func TestAskEmailAcceptsSecondNonEmailReply(t *testing.T) {
	m := testMachine(t)
	s := newSession("c1", "+919800000001")
	s.State = StateMenu

	m.Step(s, "3")
	m.Step(s, "please call me back")
	m.Step(s, "Asha")
	if s.State != StateAskEmail {
		t.Fatalf("expected ASK_EMAIL, got %s", s.State)
	}

	out := m.Step(s, "I don't use email")
	if out.Finalize || out.Replies[0] != msgInvalidEmail {
		t.Fatalf("expected one warning, got finalize=%v replies=%v", out.Finalize, out.Replies)
	}

	out = m.Step(s, "I don't use email")
	if !out.Finalize {
		t.Fatalf("expected second reply to finalize, state=%s replies=%v", s.State, out.Replies)
	}
	if s.Data.Email != "I don't use email" {
		t.Fatalf("expected reply stored as given, got %q", s.Data.Email)
	}
}

func TestRestartClearsEmailWarning(t *testing.T) {
	_ = testMachine(t)
	s := newSession("c1", "+919800000001")
	s.EmailWarned = true
	s.resetData()
	if s.EmailWarned {
		t.Fatal("expected restart to clear the email warning")
	}
}
