// Package conversation implements the lead-capture dialogue: the option
// catalog, the keyword intent resolver, the per-customer state machine, and
// the per-tenant engine that owns live conversations, idle timers and
// finalization into storage.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a step of the lead-capture dialogue.
type State string

const (
	StateStart               State = "START"
	StateMenu                State = "MENU"
	StateServicesMenu        State = "SERVICES_MENU"
	StateProductsMenu        State = "PRODUCTS_MENU"
	StateServiceDetails      State = "SERVICE_DETAILS"
	StateProductRequirements State = "PRODUCT_REQUIREMENTS"
	StateProductAddress      State = "PRODUCT_ADDRESS"
	StateProductAltContact   State = "PRODUCT_ALT_CONTACT"
	StateExecutiveMessage    State = "EXECUTIVE_MESSAGE"
	StateAskName             State = "ASK_NAME"
	StateAskEmail            State = "ASK_EMAIL"
	StateResumeDecision      State = "RESUME_DECISION"
)

// AllStates lists every dialogue state.
var AllStates = []State{
	StateStart, StateMenu, StateServicesMenu, StateProductsMenu,
	StateServiceDetails, StateProductRequirements, StateProductAddress,
	StateProductAltContact, StateExecutiveMessage, StateAskName,
	StateAskEmail, StateResumeDecision,
}

// Data is what the customer has told us so far.
type Data struct {
	Name             string
	Email            string
	Reason           string
	ServiceID        string
	ServiceLabel     string
	ProductID        string
	ProductLabel     string
	Details          string
	Address          string
	AltContact       string
	ExecutiveMessage string
	LastMessage      string
}

// Session is one live conversation with a counterparty. All fields are
// guarded by mu, which the Engine holds for the full duration of a turn or
// timer callback.
type Session struct {
	mu sync.Mutex

	ID             uuid.UUID
	CounterpartyID string
	Phone          string

	State State
	Data  Data

	Returning  bool
	ContactID  *uuid.UUID
	KnownName  string
	KnownEmail string
	Greeted    bool

	// EmailWarned is set once an ASK_EMAIL answer was rejected.
	EmailWarned bool

	ResumeState    State
	AwaitingResume bool

	Finalized     bool
	LastInboundAt time.Time

	seeded  bool
	removed bool

	idle    Timer
	idleSeq uint64
}

func newSession(counterpartyID, phone string) *Session {
	return &Session{
		ID:             uuid.New(),
		CounterpartyID: counterpartyID,
		Phone:          phone,
		State:          StateStart,
	}
}

// Name is the name captured in this conversation or the stored one.
func (s *Session) Name() string {
	if n := strings.TrimSpace(s.Data.Name); n != "" {
		return n
	}
	return strings.TrimSpace(s.KnownName)
}

// Email is the email captured in this conversation or the stored one.
func (s *Session) Email() string {
	if e := strings.TrimSpace(s.Data.Email); e != "" {
		return e
	}
	return strings.TrimSpace(s.KnownEmail)
}

// Category is the chosen service/product label, falling back to the top-level reason.
func (s *Session) Category() string {
	switch {
	case s.Data.ServiceLabel != "":
		return s.Data.ServiceLabel
	case s.Data.ProductLabel != "":
		return s.Data.ProductLabel
	case s.Data.Reason != "":
		return s.Data.Reason
	default:
		return "general"
	}
}

// Summary renders the captured data as the multi-line record stored for the lead.
func (s *Session) Summary() string {
	var b strings.Builder
	line := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}
	line("Name", s.Name())
	line("Phone", s.Phone)
	line("Email", s.Email())
	line("Reason", s.Data.Reason)
	line("Service", s.Data.ServiceLabel)
	line("Product", s.Data.ProductLabel)
	line("Details", s.Data.Details)
	line("Address", s.Data.Address)
	line("Alternate contact", s.Data.AltContact)
	line("Message for executive", s.Data.ExecutiveMessage)
	return strings.TrimRight(b.String(), "\n")
}

// resetData drops everything captured in this conversation; stored contact facts survive.
func (s *Session) resetData() {
	s.Data = Data{}
	s.EmailWarned = false
	s.ResumeState = ""
	s.AwaitingResume = false
}
