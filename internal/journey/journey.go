// Package journey runs end-to-end account flows against an OpenCart store
// through the page objects: registration, login and password reset.
package journey

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/browser"
	"github.com/wesleyorama2/shopcheck/internal/fixtures"
	"github.com/wesleyorama2/shopcheck/internal/pages"
)

// ErrUnexpectedOutcome is returned when a flow ends differently from what
// its fixture expects.
var ErrUnexpectedOutcome = errors.New("unexpected outcome")

// Step is one timed stage of a journey.
type Step struct {
	Name     string
	OK       bool
	Duration time.Duration
	Detail   string
}

// Result is what a journey observed. Outcome is the store's answer, not
// whether it matched expectations.
type Result struct {
	Journey    string
	Steps      []Step
	Errors     []string
	Outcome    fixtures.Outcome
	FinalURL   string
	Screenshot string
}

// Passed reports whether every step succeeded.
func (r *Result) Passed() bool {
	for _, s := range r.Steps {
		if !s.OK {
			return false
		}
	}
	return len(r.Steps) > 0
}

// Duration is the sum of the step durations.
func (r *Result) Duration() time.Duration {
	var d time.Duration
	for _, s := range r.Steps {
		d += s.Duration
	}
	return d
}

// Runner drives one browser through journeys. Its driver is used
// sequentially and must not be shared with another Runner.
type Runner struct {
	Driver        browser.Driver
	BaseURL       string
	Logger        *zap.Logger
	Timeouts      pages.Timeouts
	ScreenshotDir string
}

func (r *Runner) session() pages.Session {
	return pages.Session{
		Driver:        r.Driver,
		BaseURL:       r.BaseURL,
		ScreenshotDir: r.ScreenshotDir,
		Timeouts:      r.Timeouts,
		Logger:        r.logger(),
	}
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// run executes fn as a named journey. A failing step stops the journey; a
// screenshot is attempted when ScreenshotDir is set.
func (r *Runner) run(ctx context.Context, name string, fn func(*recorder) error) (Result, error) {
	log := r.logger().With(zap.String("journey", name))
	rec := &recorder{res: Result{Journey: name}, log: log}

	start := time.Now()
	err := fn(rec)
	if u, uerr := r.Driver.URL(ctx); uerr == nil {
		rec.res.FinalURL = u
	}

	if err != nil {
		if r.ScreenshotDir != "" {
			home := pages.NewHome(r.session())
			if path, serr := home.Screenshot(ctx, name+"-failure"); serr == nil {
				rec.res.Screenshot = path
			} else {
				log.Warn("failure screenshot", zap.Error(serr))
			}
		}
		log.Error("journey failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return rec.res, fmt.Errorf("%s: %w", name, err)
	}
	log.Info("journey passed", zap.Duration("elapsed", time.Since(start)), zap.String("outcome", string(rec.res.Outcome)))
	return rec.res, nil
}

type recorder struct {
	res Result
	log *zap.Logger
}

// step times fn and appends it to the result.
func (rec *recorder) step(name string, fn func() (string, error)) error {
	start := time.Now()
	detail, err := fn()
	s := Step{Name: name, OK: err == nil, Duration: time.Since(start), Detail: detail}
	if err != nil && detail == "" {
		s.Detail = err.Error()
	}
	rec.res.Steps = append(rec.res.Steps, s)
	rec.log.Debug("step", zap.String("step", name), zap.Bool("ok", s.OK), zap.Duration("duration", s.Duration))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Form converts a user fixture into the registration form input.
func Form(u fixtures.User) pages.RegistrationForm {
	return pages.RegistrationForm{
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		Email:               u.Email,
		Telephone:           u.Telephone,
		Password:            u.Password,
		ConfirmPassword:     u.ConfirmPassword,
		SubscribeNewsletter: u.SubscribeNewsletter,
		AgreePrivacyPolicy:  u.AgreePrivacyPolicy,
	}
}

// Register opens the store, reaches the registration form through the
// My Account menu and submits u. A success fixture must land on the success
// page with every message and no error; an error fixture must stay off it
// and show its expected messages.
func (r *Runner) Register(ctx context.Context, u fixtures.User) (Result, error) {
	s := r.session()
	home := pages.NewHome(s)
	reg := pages.NewRegister(s)
	success := pages.NewSuccess(s)

	return r.run(ctx, "register", func(rec *recorder) error {
		if err := rec.step("open home", func() (string, error) {
			if err := home.Navigate(ctx); err != nil {
				return "", err
			}
			return "", home.VerifyLoaded(ctx)
		}); err != nil {
			return err
		}
		if err := rec.step("open registration form", func() (string, error) {
			if err := home.NavigateToRegister(ctx); err != nil {
				return "", err
			}
			return "", reg.VerifyLoaded(ctx)
		}); err != nil {
			return err
		}
		if err := rec.step("submit registration", func() (string, error) {
			return u.Email, reg.CompleteRegistration(ctx, Form(u))
		}); err != nil {
			return err
		}

		if u.ExpectsSuccess() {
			return rec.step("verify account created", func() (string, error) {
				return verifySuccess(ctx, success, reg, &rec.res)
			})
		}
		return rec.step("verify registration rejected", func() (string, error) {
			return verifyRejected(ctx, reg, u, &rec.res)
		})
	})
}

func verifySuccess(ctx context.Context, p *pages.Success, form *pages.Register, res *Result) (string, error) {
	if err := p.VerifyLoaded(ctx); err != nil {
		res.Outcome = fixtures.OutcomeError
		// Best effort: the form's messages explain the rejection.
		if msgs, msgErr := form.ErrorMessages(ctx); msgErr == nil {
			res.Errors = msgs
		}
		return "", fmt.Errorf("%w: success page not reached: %w", ErrUnexpectedOutcome, err)
	}
	res.Outcome = fixtures.OutcomeSuccess
	if !p.AreAllSuccessMessagesPresent(ctx) {
		return "", fmt.Errorf("%w: success messages missing", ErrUnexpectedOutcome)
	}
	clean, err := p.HasNoErrorMessages(ctx)
	if err != nil {
		return "", err
	}
	if !clean {
		return "", fmt.Errorf("%w: error markers on the success page", ErrUnexpectedOutcome)
	}
	return "account created", nil
}

func verifyRejected(ctx context.Context, p *pages.Register, u fixtures.User, res *Result) (string, error) {
	url, err := p.URL(ctx)
	if err != nil {
		return "", err
	}
	if strings.Contains(url, pages.RouteSuccess) {
		res.Outcome = fixtures.OutcomeSuccess
		return "", fmt.Errorf("%w: registration of %q was accepted", ErrUnexpectedOutcome, u.Email)
	}
	res.Outcome = fixtures.OutcomeError

	shown, err := p.HasErrorMessages(ctx)
	if err != nil {
		return "", err
	}
	if !shown {
		return "", fmt.Errorf("%w: no error message shown", ErrUnexpectedOutcome)
	}
	msgs, err := p.ErrorMessages(ctx)
	if err != nil {
		return "", err
	}
	res.Errors = msgs
	for _, want := range u.Messages {
		if !slices.Contains(msgs, want) {
			return "", fmt.Errorf("%w: missing message %q", ErrUnexpectedOutcome, want)
		}
	}
	return strings.Join(msgs, "; "), nil
}

// Login signs in through the My Account menu. A rejected login is an
// outcome, not an error: its alert is reported in Result.Errors.
func (r *Runner) Login(ctx context.Context, c fixtures.Credentials) (Result, error) {
	s := r.session()
	home := pages.NewHome(s)
	login := pages.NewLogin(s)

	return r.run(ctx, "login", func(rec *recorder) error {
		if err := rec.step("open home", func() (string, error) {
			if err := home.Navigate(ctx); err != nil {
				return "", err
			}
			return "", home.VerifyLoaded(ctx)
		}); err != nil {
			return err
		}
		if err := rec.step("open login form", func() (string, error) {
			if err := home.NavigateToLogin(ctx); err != nil {
				return "", err
			}
			return "", login.VerifyLoaded(ctx)
		}); err != nil {
			return err
		}
		if err := rec.step("submit login", func() (string, error) {
			return c.Email, login.Login(ctx, c.Email, c.Password)
		}); err != nil {
			return err
		}
		return rec.step("read login result", func() (string, error) {
			ok, err := login.URLContains(ctx, pages.RouteAccount)
			if err != nil {
				return "", err
			}
			if ok {
				rec.res.Outcome = fixtures.OutcomeSuccess
				return "signed in", nil
			}
			rec.res.Outcome = fixtures.OutcomeError
			failed, err := login.HasLoginError(ctx)
			if err != nil || !failed {
				return "not signed in", err
			}
			msg, err := login.LoginError(ctx)
			if err != nil {
				return "", err
			}
			rec.res.Errors = append(rec.res.Errors, msg)
			return msg, nil
		})
	})
}

// ResetPassword requests a reset link for email from the login page's
// Forgotten Password link. A known email returns to login with a
// confirmation; an unknown one stays with a warning in Result.Errors.
func (r *Runner) ResetPassword(ctx context.Context, email string) (Result, error) {
	s := r.session()
	login := pages.NewLogin(s)
	forgotten := pages.NewForgottenPassword(s)

	return r.run(ctx, "reset-password", func(rec *recorder) error {
		if err := rec.step("open login form", func() (string, error) {
			if err := login.Navigate(ctx); err != nil {
				return "", err
			}
			return "", login.VerifyLoaded(ctx)
		}); err != nil {
			return err
		}
		if err := rec.step("open reset form", func() (string, error) {
			if err := login.ClickForgottenPassword(ctx); err != nil {
				return "", err
			}
			return "", forgotten.VerifyLoaded(ctx)
		}); err != nil {
			return err
		}
		if err := rec.step("request reset", func() (string, error) {
			return email, forgotten.RequestPasswordReset(ctx, email)
		}); err != nil {
			return err
		}
		return rec.step("read reset result", func() (string, error) {
			back, err := forgotten.URLContains(ctx, pages.RouteLogin)
			if err != nil {
				return "", err
			}
			if back {
				rec.res.Outcome = fixtures.OutcomeSuccess
				return login.ResetConfirmation(ctx)
			}
			rec.res.Outcome = fixtures.OutcomeError
			msg, err := forgotten.ErrorMessage(ctx)
			if err != nil {
				return "", err
			}
			rec.res.Errors = append(rec.res.Errors, msg)
			return msg, nil
		})
	})
}
