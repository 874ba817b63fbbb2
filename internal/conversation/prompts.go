package conversation

import (
	"fmt"
	"strings"
)

const (
	msgAddress        = "Thank you! Please share the delivery address, including the PIN code."
	msgAltContact     = "Do you have an alternate contact number we can reach you on? Reply with the number, or NA to skip."
	msgExecutive      = "Sure. Please type your message for our executive and we will get back to you shortly."
	msgAskName        = "May we know your name, please?"
	msgInvalidEmail   = "That email address doesn't look right. Please send a valid one, for example name@example.com, or reply again to keep your answer."
	msgResumeReprompt = "Please reply 1 to continue where you left off, or 2 to start over."
	msgNotUnderstood  = "Sorry, I didn't catch that."
	msgSaveFailed     = "Sorry, we couldn't save your details just now. Please send your last reply again."
)

func (c *Catalog) businessName() string {
	if n := strings.TrimSpace(c.BusinessName); n != "" {
		return n
	}
	return "us"
}

// MainMenuText is the top-level menu.
func (c *Catalog) MainMenuText() string {
	return fmt.Sprintf("Welcome to %s! How can we help you today?\n"+
		"1. Services\n"+
		"2. Products\n"+
		"3. Talk to an Executive\n\n"+
		"Reply with a number or tell us what you need. Send *menu* anytime to come back here.",
		c.businessName())
}

func optionList(title string, opts []Option) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('\n')
	for _, o := range opts {
		fmt.Fprintf(&b, "%d. %s\n", o.Ordinal, o.Label)
	}
	b.WriteString("\nReply with a number or the name of an option.")
	return b.String()
}

// ServicesMenuText lists the services table.
func (c *Catalog) ServicesMenuText() string {
	return optionList("Here are our services:", c.Services)
}

// ProductsMenuText lists the products table.
func (c *Catalog) ProductsMenuText() string {
	return optionList("Which gemstone are you interested in?", c.Products)
}

// ServicePrompt is the detail prompt for a selected service.
func (c *Catalog) ServicePrompt(o Option) string {
	if p := strings.TrimSpace(o.Prompt); p != "" {
		return p
	}
	return fmt.Sprintf("Please tell us a little more about what you need for %s.", o.Label)
}

// ProductPromptFor is the generic product-detail prompt, mentioning the chosen product.
func (c *Catalog) ProductPromptFor(label string) string {
	if label == "" {
		return c.ProductPrompt
	}
	return fmt.Sprintf("%s selected. %s", label, c.ProductPrompt)
}

func greeting(name string) string {
	if name == "" {
		return "Welcome back! Good to hear from you again."
	}
	return fmt.Sprintf("Welcome back, %s! Good to hear from you again.", name)
}

func resumePrompt(name string) string {
	hello := "Hi, welcome back!"
	if name != "" {
		hello = fmt.Sprintf("Hi %s, welcome back!", name)
	}
	return hello + " We didn't finish your last request.\n" +
		"1. Continue where you left off\n" +
		"2. Start over"
}

func askEmail(name string) string {
	if name == "" {
		return "What is your email address?"
	}
	return fmt.Sprintf("Thanks, %s! What is your email address?", name)
}

func thanks(name string) string {
	if name == "" {
		return "Thank you! We have received your request and our team will contact you soon."
	}
	return fmt.Sprintf("Thank you, %s! We have received your request and our team will contact you soon.", name)
}
