package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/pkg/i18n"
	"github.com/akinalp/forumcore/pkg/ratelimit"
)

// RespondError writes err in the response envelope. Denials and generic
// failures get localized copy; validation errors keep their detail since
// it names the offending field.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := pkg.StatusFor(err)
	code := pkg.CodeFor(err)
	l := localizer(r)

	var message string
	if denied, ok := pkg.AsDenied(err); ok {
		params := map[string]string{}
		if denied.Until != nil {
			params["until"] = denied.Until.UTC().Format(time.RFC1123)
		}
		message = l.TWithParams("denied."+denied.Code, params)
	} else if errors.Is(err, pkg.ErrValidation) {
		message = err.Error()
	} else {
		message = l.T("errors." + code)
	}

	pkg.ErrorWithCode(w, status, code, message)
}

// respondUnauthenticated is the 401 for handlers reached without a user.
func respondUnauthenticated(w http.ResponseWriter, r *http.Request) {
	RespondError(w, r, pkg.ErrUnauthenticated)
}

// respondRateLimited sets Retry-After and writes a 429.
func respondRateLimited(w http.ResponseWriter, r *http.Request, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	msg := localizer(r).TWithParams("errors.rate_limited", map[string]string{
		"retry": ratelimit.FormatRetryMessage(retryAfter),
	})
	pkg.ErrorWithCode(w, http.StatusTooManyRequests, pkg.CodeFor(pkg.ErrRateLimited), msg)
}

// badBody is the uniform answer to an undecodable JSON body.
func badBody(w http.ResponseWriter) {
	pkg.ErrorWithCode(w, http.StatusBadRequest, pkg.CodeFor(pkg.ErrValidation), "invalid request body")
}

// localizer prefers Accept-Language, then the user's saved language.
func localizer(r *http.Request) *i18n.Localizer {
	if header := r.Header.Get("Accept-Language"); header != "" {
		return i18n.NewLocalizer(i18n.DetectLanguage(header))
	}
	if user, ok := userFromRequest(r); ok && user.Language != "" {
		return i18n.NewLocalizer(user.Language)
	}
	return i18n.NewLocalizer(i18n.DefaultLanguage)
}
