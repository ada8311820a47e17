package core

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, store sessions.Store, authService AuthService, users UserRepository, google GoogleVerifier) *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(loadTemplates())

	r.Use(SessionMiddleware(cfg, store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/", func(c *gin.Context) {
		_, authed := currentUser(c)
		c.HTML(http.StatusOK, "home.tmpl", gin.H{"Authenticated": authed})
	})

	r.GET("/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "login.tmpl", nil)
	})

	r.POST("/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		user, err := authService.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				log.Printf("login failed for %q: invalid credentials", username)
				c.Redirect(http.StatusFound, "/login")
				return
			}
			log.Printf("login failed for %q: %v", username, err)
			renderError(c, http.StatusInternalServerError, "login is temporarily unavailable")
			return
		}

		if err := attachPrincipal(cfg, c, user); err != nil {
			log.Printf("failed to attach session for user %d: %v", user.ID, err)
			renderError(c, http.StatusInternalServerError, "failed to establish session")
			return
		}
		c.Redirect(http.StatusFound, "/secrets")
	})

	r.GET("/register", func(c *gin.Context) {
		c.HTML(http.StatusOK, "register.tmpl", nil)
	})

	r.POST("/register", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		user, err := authService.Register(c.Request.Context(), username, password)
		if err != nil {
			switch {
			case errors.Is(err, ErrDuplicateUsername):
				log.Printf("registration rejected: username %q already taken", username)
				c.Redirect(http.StatusFound, "/register")
			case errors.Is(err, ErrInvalidCredentials):
				c.Redirect(http.StatusFound, "/register")
			default:
				log.Printf("registration failed for %q: %v", username, err)
				renderError(c, http.StatusInternalServerError, "registration is temporarily unavailable")
			}
			return
		}

		if err := attachPrincipal(cfg, c, user); err != nil {
			log.Printf("failed to attach session for user %d: %v", user.ID, err)
			renderError(c, http.StatusInternalServerError, "failed to establish session")
			return
		}
		c.Redirect(http.StatusFound, "/secrets")
	})

	r.GET("/auth/google", func(c *gin.Context) {
		state, err := newStateToken()
		if err != nil {
			renderError(c, http.StatusInternalServerError, "failed to start sign-in")
			return
		}

		sess := requestSession(c)
		sess.Values["oauth_state"] = state
		if err := sess.Save(c.Request, c.Writer); err != nil {
			log.Printf("failed to persist oauth state: %v", err)
			renderError(c, http.StatusInternalServerError, "failed to start sign-in")
			return
		}
		c.Redirect(http.StatusFound, google.AuthCodeURL(state))
	})

	r.GET("/auth/google/secrets", func(c *gin.Context) {
		sess := requestSession(c)
		wantState, _ := sess.Values["oauth_state"].(string)
		if wantState == "" || c.Query("state") != wantState {
			log.Printf("google callback rejected: state mismatch")
			c.Redirect(http.StatusFound, "/login")
			return
		}

		profile, err := google.Profile(c.Request.Context(), c.Query("code"))
		if err != nil {
			log.Printf("google callback rejected: %v", err)
			c.Redirect(http.StatusFound, "/login")
			return
		}

		user, err := authService.FindOrCreateGoogleUser(c.Request.Context(), profile)
		if err != nil {
			log.Printf("google sign-in failed for sub %q: %v", profile.Sub, err)
			renderError(c, http.StatusInternalServerError, "sign-in is temporarily unavailable")
			return
		}

		if err := attachPrincipal(cfg, c, user); err != nil {
			log.Printf("failed to attach session for user %d: %v", user.ID, err)
			renderError(c, http.StatusInternalServerError, "failed to establish session")
			return
		}
		c.Redirect(http.StatusFound, "/secrets")
	})

	r.GET("/secrets", func(c *gin.Context) {
		items, err := users.ListSecrets(c.Request.Context())
		if err != nil {
			log.Printf("failed to list secrets: %v", err)
			renderError(c, http.StatusInternalServerError, "secrets are temporarily unavailable")
			return
		}
		_, authed := currentUser(c)
		c.HTML(http.StatusOK, "secrets.tmpl", gin.H{
			"Secrets":       items,
			"Authenticated": authed,
		})
	})

	r.GET("/submit", func(c *gin.Context) {
		user, ok := requireLogin(c)
		if !ok {
			return
		}
		current := ""
		if rec, err := users.FindByID(c.Request.Context(), user.ID); err == nil {
			current = rec.Secret
		}
		c.HTML(http.StatusOK, "submit.tmpl", gin.H{"Current": current})
	})

	r.POST("/submit", func(c *gin.Context) {
		user, ok := requireLogin(c)
		if !ok {
			return
		}

		secret := strings.TrimSpace(c.PostForm("secret"))
		if secret == "" {
			c.Redirect(http.StatusFound, "/submit")
			return
		}

		if err := users.UpdateSecret(c.Request.Context(), user.ID, secret); err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				// The session points at a record that no longer exists;
				// surface it instead of swallowing.
				log.Printf("submit rejected: user %d has no record", user.ID)
				renderError(c, http.StatusInternalServerError, "your account no longer exists")
				return
			}
			log.Printf("failed to save secret for user %d: %v", user.ID, err)
			renderError(c, http.StatusInternalServerError, "failed to save your secret")
			return
		}
		c.Redirect(http.StatusFound, "/secrets")
	})

	r.GET("/logout", func(c *gin.Context) {
		if err := clearSession(cfg, c); err != nil {
			log.Printf("failed to clear session: %v", err)
			renderError(c, http.StatusInternalServerError, "failed to log out")
			return
		}
		c.Redirect(http.StatusFound, "/")
	})

	return r
}
