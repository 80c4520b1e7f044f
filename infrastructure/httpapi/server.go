// Package httpapi exposes the chat core's protocol surface: a
// websocket gateway for live delivery and REST endpoints for history
// and sends, sharing one bearer-token authenticator.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"teamchat/auth"
)

// NewRouter assembles the full protocol surface.
//
//	GET  /ws                     websocket upgrade (token in header or query)
//	GET  /message/get-messages   history page
//	POST /message/send           persisted send
//	GET  /healthz                liveness + counters
func NewRouter(gateway *Gateway, handler *MessageHandler, authenticator *auth.TokenAuthenticator) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/ws", gateway.Handle)
	router.HandleFunc("/healthz", handler.Healthz).Methods(http.MethodGet)

	messages := router.PathPrefix("/message").Subrouter()
	messages.Use(auth.Middleware(authenticator, WriteError))
	messages.HandleFunc("/get-messages", handler.GetMessages).Methods(http.MethodGet)
	messages.HandleFunc("/send", handler.Send).Methods(http.MethodPost)

	return router
}
