package conversation

import "strings"

// Outcome is the result of one transition: texts to send and whether the
// conversation is ready to be finalized.
type Outcome struct {
	Replies   []string
	Finalize  bool
	Restarted bool
}

func reply(texts ...string) Outcome { return Outcome{Replies: texts} }

// Machine is the transition function of the dialogue. It mutates the session
// it is given and never performs I/O.
type Machine struct {
	catalog *Catalog
	isEmail func(string) bool
}

// NewMachine builds a Machine over catalog. isEmail checks ASK_EMAIL answers;
// nil accepts any non-empty text.
func NewMachine(catalog *Catalog, isEmail func(string) bool) *Machine {
	if isEmail == nil {
		isEmail = func(s string) bool { return strings.TrimSpace(s) != "" }
	}
	return &Machine{catalog: catalog, isEmail: isEmail}
}

// Catalog returns the option tables the machine routes over.
func (m *Machine) Catalog() *Catalog { return m.catalog }

// Step applies text to the session's current state.
func (m *Machine) Step(s *Session, text string) Outcome {
	text = strings.TrimSpace(text)

	switch s.State {
	case StateStart, StateMenu:
		return m.topLevel(s, text)
	case StateServicesMenu:
		return m.servicesMenu(s, text)
	case StateProductsMenu:
		return m.productsMenu(s, text)
	case StateServiceDetails:
		s.Data.Details = text
		return m.attemptFinalize(s)
	case StateProductRequirements:
		s.Data.Details = text
		s.State = StateProductAddress
		return reply(msgAddress)
	case StateProductAddress:
		s.Data.Address = text
		s.State = StateProductAltContact
		return reply(msgAltContact)
	case StateProductAltContact:
		s.Data.AltContact = text
		return m.attemptFinalize(s)
	case StateExecutiveMessage:
		s.Data.ExecutiveMessage = text
		return m.attemptFinalize(s)
	case StateAskName:
		s.Data.Name = text
		return m.attemptFinalize(s)
	case StateAskEmail:
		// One warning only; a second reply is stored as given so a customer
		// without an address can still finish.
		if !m.isEmail(text) && !s.EmailWarned {
			s.EmailWarned = true
			return reply(msgInvalidEmail)
		}
		s.Data.Email = text
		return m.attemptFinalize(s)
	case StateResumeDecision:
		return m.Resume(s, text)
	default:
		s.State = StateMenu
		return reply(m.catalog.MainMenuText())
	}
}

// ShowMenu handles the global menu command. Captured data is kept.
func (m *Machine) ShowMenu(s *Session) Outcome {
	s.State = StateMenu
	s.AwaitingResume = false
	s.ResumeState = ""
	return reply(m.catalog.MainMenuText())
}

// EnterResume parks the current state and asks whether to continue or restart.
func (m *Machine) EnterResume(s *Session) Outcome {
	s.ResumeState = s.State
	s.AwaitingResume = true
	s.State = StateResumeDecision
	return reply(resumePrompt(s.Name()))
}

// Resume handles the answer to the continue-or-restart prompt.
func (m *Machine) Resume(s *Session, text string) Outcome {
	switch m.catalog.ResolveResumeChoice(text) {
	case ResumeContinue:
		prev := s.ResumeState
		if prev == "" || prev == StateResumeDecision || prev == StateStart {
			prev = StateMenu
		}
		s.State = prev
		s.ResumeState = ""
		s.AwaitingResume = false
		return reply(m.Prompt(s))
	case ResumeRestart:
		s.resetData()
		s.State = StateMenu
		out := reply(m.catalog.MainMenuText())
		out.Restarted = true
		return out
	default:
		return reply(msgResumeReprompt)
	}
}

// Prompt re-renders the question of the session's current state without
// changing anything.
func (m *Machine) Prompt(s *Session) string {
	c := m.catalog
	switch s.State {
	case StateServicesMenu:
		return c.ServicesMenuText()
	case StateProductsMenu:
		return c.ProductsMenuText()
	case StateServiceDetails:
		if o, ok := c.Service(s.Data.ServiceID); ok {
			return c.ServicePrompt(o)
		}
		return c.ServicePrompt(Option{Label: s.Data.ServiceLabel})
	case StateProductRequirements:
		return c.ProductPromptFor(s.Data.ProductLabel)
	case StateProductAddress:
		return msgAddress
	case StateProductAltContact:
		return msgAltContact
	case StateExecutiveMessage:
		return msgExecutive
	case StateAskName:
		return msgAskName
	case StateAskEmail:
		return askEmail(s.Name())
	case StateResumeDecision:
		return resumePrompt(s.Name())
	default:
		return c.MainMenuText()
	}
}

func (m *Machine) topLevel(s *Session, text string) Outcome {
	c := m.catalog
	intent := c.ResolveIntent(text)

	switch intent {
	case IntentServices:
		s.Data.Reason = intent.String()
		if o, ok := c.MatchConcrete(c.Services, text); ok {
			return m.selectService(s, o)
		}
		s.State = StateServicesMenu
		return reply(c.ServicesMenuText())
	case IntentProducts:
		s.Data.Reason = intent.String()
		if o, ok := c.MatchConcrete(c.Products, text); ok {
			return m.selectProduct(s, o)
		}
		s.State = StateProductsMenu
		return reply(c.ProductsMenuText())
	case IntentExecutive:
		return m.selectExecutive(s)
	default:
		s.State = StateMenu
		return reply(c.MainMenuText())
	}
}

func (m *Machine) servicesMenu(s *Session, text string) Outcome {
	c := m.catalog
	o, ok := c.MatchOption(c.Services, text)
	if !ok {
		return reply(msgNotUnderstood + "\n\n" + c.ServicesMenuText())
	}
	switch o.ID {
	case OptionMainMenu:
		s.State = StateMenu
		return reply(c.MainMenuText())
	case OptionExecutive:
		return m.selectExecutive(s)
	default:
		return m.selectService(s, o)
	}
}

func (m *Machine) productsMenu(s *Session, text string) Outcome {
	c := m.catalog
	o, ok := c.MatchOption(c.Products, text)
	if !ok {
		return reply(msgNotUnderstood + "\n\n" + c.ProductsMenuText())
	}
	if o.ID == OptionMainMenu {
		s.State = StateMenu
		return reply(c.MainMenuText())
	}
	return m.selectProduct(s, o)
}

func (m *Machine) selectService(s *Session, o Option) Outcome {
	s.Data.Reason = IntentServices.String()
	s.Data.ServiceID = o.ID
	s.Data.ServiceLabel = o.Label
	s.Data.ProductID = ""
	s.Data.ProductLabel = ""
	s.State = StateServiceDetails
	return reply(m.catalog.ServicePrompt(o))
}

func (m *Machine) selectProduct(s *Session, o Option) Outcome {
	s.Data.Reason = IntentProducts.String()
	s.Data.ProductID = o.ID
	s.Data.ProductLabel = o.Label
	s.Data.ServiceID = ""
	s.Data.ServiceLabel = ""
	s.State = StateProductRequirements
	return reply(m.catalog.ProductPromptFor(o.Label))
}

func (m *Machine) selectExecutive(s *Session) Outcome {
	s.Data.Reason = IntentExecutive.String()
	s.State = StateExecutiveMessage
	return reply(msgExecutive)
}

// attemptFinalize asks for whatever contact detail is still missing, or
// signals that the lead can be written.
func (m *Machine) attemptFinalize(s *Session) Outcome {
	if s.Name() == "" {
		s.State = StateAskName
		return reply(msgAskName)
	}
	if s.Email() == "" {
		s.State = StateAskEmail
		return reply(askEmail(s.Name()))
	}
	return Outcome{Finalize: true}
}
