package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"threads/client"
	"threads/models"
)

type Screen string

const (
	ScreenLogin  Screen = "login"
	ScreenSignup Screen = "signup"
)

// AuthState is the screen shared by the login and signup forms.
type AuthState struct {
	mu     sync.RWMutex
	screen Screen
}

func NewAuthState() *AuthState {
	return &AuthState{screen: ScreenLogin}
}

func (a *AuthState) Screen() Screen {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.screen
}

func (a *AuthState) Set(s Screen) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.screen = s
}

type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.AuthResponse, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error)
}

type passwordField struct {
	show bool
}

func (p *passwordField) TogglePassword() {
	p.show = !p.show
}

// PasswordInputType is "text" while the password is shown.
func (p *passwordField) PasswordInputType() string {
	if p.show {
		return "text"
	}
	return "password"
}

func required(fields ...[2]string) error {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			return &FieldError{Field: f[0]}
		}
	}
	return nil
}

type FormDeps struct {
	Auth    Authenticator
	Session *Session
	Screen  *AuthState
	Notify  Notifier
}

type LoginForm struct {
	passwordField
	Username string
	Password string

	deps FormDeps
}

func NewLoginForm(deps FormDeps) *LoginForm {
	if deps.Notify == nil {
		deps.Notify = NotifyFunc(func(Toast) {})
	}
	return &LoginForm{deps: deps}
}

func (f *LoginForm) Validate() error {
	return required([2]string{"username", f.Username}, [2]string{"password", f.Password})
}

// Submit validates, logs in and stores the user in the session.
func (f *LoginForm) Submit(ctx context.Context) (*models.AuthResponse, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	res, err := f.deps.Auth.Login(ctx, strings.TrimSpace(f.Username), f.Password)
	if err != nil {
		f.deps.Notify.Notify(errorToast(client.Message(err)))
		return nil, err
	}
	f.deps.Session.Set(summaryOf(res))
	return res, nil
}

func (f *LoginForm) SwitchToSignup() {
	f.deps.Screen.Set(ScreenSignup)
}

type SignupForm struct {
	passwordField
	Name     string
	Username string
	Email    string
	Password string

	deps FormDeps
}

func NewSignupForm(deps FormDeps) *SignupForm {
	if deps.Notify == nil {
		deps.Notify = NotifyFunc(func(Toast) {})
	}
	return &SignupForm{deps: deps}
}

func (f *SignupForm) Validate() error {
	return required(
		[2]string{"name", f.Name},
		[2]string{"username", f.Username},
		[2]string{"email", f.Email},
		[2]string{"password", f.Password},
	)
}

func (f *SignupForm) Submit(ctx context.Context) (*models.AuthResponse, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	res, err := f.deps.Auth.Signup(ctx, models.SignupRequest{
		Name:     strings.TrimSpace(f.Name),
		Username: strings.TrimSpace(f.Username),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	})
	if err != nil {
		f.deps.Notify.Notify(errorToast(client.Message(err)))
		return nil, err
	}
	f.deps.Session.Set(summaryOf(res))
	return res, nil
}

func (f *SignupForm) SwitchToLogin() {
	f.deps.Screen.Set(ScreenLogin)
}

func summaryOf(res *models.AuthResponse) models.UserSummary {
	return models.UserSummary{
		ID:         res.ID,
		Username:   res.Username,
		Name:       res.Name,
		ProfilePic: res.ProfilePic,
	}
}
