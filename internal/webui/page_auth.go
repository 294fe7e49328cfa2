package webui

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/session"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

type authData struct {
	Signup bool
	// Passwords are never sent back.
	Username string
	Email    string
	Error    string
}

type authDataBuilder struct {
	signup bool
}

func (b authDataBuilder) Build(ctx context.Context, bc *builderCtx) (any, error) {
	if bc.Sess.State.LoggedIn {
		return nil, bc.Redirect(homeOf(bc.Sess.State))
	}
	data := &authData{Signup: b.signup}
	if bc.Req.Method == http.MethodGet {
		return data, nil
	}

	if err := bc.parseForm(); err != nil {
		return nil, err
	}
	form := session.AuthForm{
		Username:        bc.formValue("username"),
		Email:           bc.formValue("email"),
		Password:        bc.Req.PostFormValue("password"),
		ConfirmPassword: bc.Req.PostFormValue("confirm-password"),
	}
	data.Username = form.Username
	data.Email = form.Email

	var err error
	if b.signup {
		err = session.ValidateSignup(form)
	} else {
		err = session.ValidateLogin(form)
	}
	if err != nil {
		data.Error = err.Error()
		return data, nil
	}

	if b.signup {
		_, err = bc.Config.Session.Signup(ctx, bc.Sess, form.Username, form.Email, form.Password)
	} else {
		_, err = bc.Config.Session.Login(ctx, bc.Sess, form.Username, form.Password)
	}
	if err != nil {
		bc.Log.Info("authentication failed",
			slog.String("username", form.Username),
			slog.Bool("signup", b.signup),
			slogx.Err(err),
		)
		if b.signup {
			data.Error = calcapi.UserMessage(err, "Signup failed")
		} else {
			data.Error = "Invalid credentials"
		}
		return data, nil
	}

	bc.Log.Info("user logged in", slog.String("username", bc.Username()))
	bc.startSession()
	if b.signup {
		bc.addFlash(flashSuccess, "Welcome, "+bc.Username()+"!")
	}
	return nil, bc.Redirect(homeOf(bc.Sess.State))
}

// homeOf is the page the user lands on after logging in.
func homeOf(st session.State) string {
	if st.IsAdmin() {
		return "/admin"
	}
	return "/betting"
}

func loginPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Title: "Log In"}, templ, authDataBuilder{}, "auth")
}

func signupPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Title: "Sign Up"}, templ, authDataBuilder{signup: true}, "auth")
}

type logoutDataBuilder struct{}

func (logoutDataBuilder) Build(ctx context.Context, bc *builderCtx) (any, error) {
	if bc.Sess.State.LoggedIn {
		bc.Log.Info("user logged out", slog.String("username", bc.Username()))
	}
	bc.Config.Session.Logout(ctx, bc.Sess)
	bc.startSession()
	return nil, bc.Redirect("/")
}

func logoutPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{NoCheck: true}, templ, logoutDataBuilder{}, "")
}
