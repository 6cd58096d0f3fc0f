package main

import (
	htmxmiddleware "github.com/donseba/go-htmx/middleware"
	"github.com/justinas/alice"
	"github.com/myrjola/kastor/ui"
	"net/http"
	"time"
)

func (app *application) routes(defaultTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", cacheForeverHeaders(http.FileServerFS(ui.Files)))

	session := alice.New(app.sessionManager.LoadAndSave, noSurf, htmxmiddleware.MiddleWare, app.commonContext)

	mux.Handle("GET /{$}", session.ThenFunc(app.episode))
	mux.Handle("POST /episode/choose", session.ThenFunc(app.choose))
	mux.Handle("POST /episode/chat", session.ThenFunc(app.chat))
	mux.Handle("POST /episode/hint", session.ThenFunc(app.hint))
	mux.Handle("POST /episode/retry", session.ThenFunc(app.retry))
	mux.Handle("POST /episode/skip", session.ThenFunc(app.skip))
	mux.Handle("POST /episode/restart", session.ThenFunc(app.restart))

	mux.HandleFunc("GET /api/healthy", app.healthy)

	common := alice.New(app.recoverPanic, app.logRequest, secureHeaders)
	return common.Then(timeoutHandler(mux, defaultTimeout))
}
