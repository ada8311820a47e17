package core

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const sessionName = "secretshare_session"

// SessionMiddleware loads the request session and applies consistent
// cookie options. Anonymous sessions are not persisted; nothing is
// written to Redis until a handler attaches state.
func SessionMiddleware(cfg Config, store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := store.Get(c.Request, sessionName)
		if err != nil {
			renderError(c, http.StatusInternalServerError, "session backend unavailable")
			c.Abort()
			return
		}

		applySessionOptions(cfg, session)
		c.Set("session", session)
		c.Next()
	}
}

func applySessionOptions(cfg Config, session *sessions.Session) {
	if session.Options == nil {
		session.Options = &sessions.Options{}
	}
	session.Options.Path = "/"
	session.Options.MaxAge = cfg.SessionMaxAge
	session.Options.HttpOnly = true
	session.Options.Secure = cfg.CookieSecure
	session.Options.SameSite = sameSiteFromString(cfg.CookieSameSite)
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func requestSession(c *gin.Context) *sessions.Session {
	sessionAny, _ := c.Get("session")
	sess, _ := sessionAny.(*sessions.Session)
	return sess
}

// currentUser rehydrates the principal from the session payload.
// An absent or incomplete payload means anonymous, not an error.
func currentUser(c *gin.Context) (User, bool) {
	sess := requestSession(c)
	if sess == nil {
		return User{}, false
	}
	id, ok := sessionUserID(sess)
	if !ok {
		return User{}, false
	}
	username, _ := sess.Values["username"].(string)
	return User{ID: id, Username: username}, true
}

// requireLogin gates protected routes; unauthenticated requests are
// redirected to the login page rather than answered with an error body.
func requireLogin(c *gin.Context) (User, bool) {
	u, ok := currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return User{}, false
	}
	return u, true
}

// attachPrincipal resets the session values and stores the serialized
// principal {user_id, username}. Credential material never enters the
// payload.
func attachPrincipal(cfg Config, c *gin.Context, user User) error {
	sess := requestSession(c)
	sess.Values = map[interface{}]interface{}{}
	sess.Values["user_id"] = user.ID
	sess.Values["username"] = user.Username
	applySessionOptions(cfg, sess)
	return sess.Save(c.Request, c.Writer)
}

// clearSession logs the principal out. Clearing an anonymous session is
// a no-op.
func clearSession(cfg Config, c *gin.Context) error {
	sess := requestSession(c)
	if sess == nil || sess.IsNew {
		return nil
	}
	sess.Values = map[interface{}]interface{}{}
	applySessionOptions(cfg, sess)
	sess.Options.MaxAge = -1 // deletes the cookie and the server-side state
	return sess.Save(c.Request, c.Writer)
}

// sessionUserID tolerates the numeric widening that happens when the
// payload round-trips through JSON (int64 on write, float64 on read).
func sessionUserID(sess *sessions.Session) (int64, bool) {
	switch v := sess.Values["user_id"].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	}
	return 0, false
}
