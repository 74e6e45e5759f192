package views

import (
	"context"
	"strings"

	"aura.app/internal/platform"
)

// Mode is the auth form's state.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

const msgRegistered = "Registration successful! Please login."

// AuthView is the login/register page.
type AuthView struct {
	env Env

	Mode    Mode
	Email   string
	Error   string
	Success string
}

func NewAuthView(env Env) *AuthView {
	return &AuthView{env: env, Mode: ModeLogin}
}

// Load sends users with a stored token to the dashboard. It reports whether
// the form should be shown.
func (v *AuthView) Load() bool {
	if _, ok := v.env.Session.Token(); ok {
		v.env.Nav.Navigate(platform.To(platform.PageDashboard))
		return false
	}
	return true
}

// Toggle flips between login and register, resetting the form and messages.
func (v *AuthView) Toggle() {
	if v.Mode == ModeLogin {
		v.SetMode(ModeRegister)
	} else {
		v.SetMode(ModeLogin)
	}
}

// SetMode switches to m, resetting the form and messages.
func (v *AuthView) SetMode(m Mode) {
	v.Mode = m
	v.Email = ""
	v.Error = ""
	v.Success = ""
}

// Submit logs in or registers depending on the mode.
func (v *AuthView) Submit(ctx context.Context, email, password string) error {
	v.Error = ""
	v.Success = ""
	v.Email = strings.TrimSpace(email)

	if v.Mode == ModeLogin {
		tok, err := v.env.API.Login(ctx, v.Email, password)
		if err != nil {
			v.Error = Message(err)
			logFailure("login", err)
			return err
		}
		if err := v.env.Session.Save(tok.AccessToken); err != nil {
			v.Error = msgUnexpected
			logFailure("login", err)
			return err
		}
		v.env.Nav.Navigate(platform.To(platform.PageDashboard))
		return nil
	}

	if err := v.env.API.Register(ctx, v.Email, password); err != nil {
		v.Error = Message(err)
		logFailure("register", err)
		return err
	}
	v.SetMode(ModeLogin)
	v.Success = msgRegistered
	return nil
}

// Title is the form heading.
func (v *AuthView) Title() string {
	if v.Mode == ModeRegister {
		return "Register"
	}
	return "Login"
}

// ButtonLabel is the submit button text.
func (v *AuthView) ButtonLabel() string {
	if v.Mode == ModeRegister {
		return "Create Account"
	}
	return "Login"
}

// TogglePrompt returns the lead-in and the link text of the mode switch.
func (v *AuthView) TogglePrompt() (prompt, link string) {
	if v.Mode == ModeRegister {
		return "Already have an account?", "Login."
	}
	return "Don't have an account?", "Register."
}
