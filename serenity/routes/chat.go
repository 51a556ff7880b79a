package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"serenity/serenity/controllers"
	"serenity/serenity/middlewares"
	"serenity/serenity/pipeline"
	"serenity/serenity/sources/psql/dao"
	"serenity/serenity/utils/types"
)

func ChatRoutes(ctrl *controllers.ChatController) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.IdentityMiddleware())

		// POST /chat/sessions : start a new session (thread)
		gr.Post("/sessions", func(w http.ResponseWriter, r *http.Request) {
			userID := middlewares.UserID(r)
			session, err := ctrl.CreateSession(r.Context(), userID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(session)
		})

		// GET /chat/sessions : list all user's sessions (threads)
		gr.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
			userID := middlewares.UserID(r)
			sessions, err := ctrl.ListSessions(r.Context(), userID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(sessions)
		})

		// POST /chat/sessions/{session_id}/messages : send one message and
		// get the pipeline's response
		gr.Post("/sessions/{session_id}/messages", func(w http.ResponseWriter, r *http.Request) {
			userID := middlewares.UserID(r)
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				http.Error(w, "invalid session id", http.StatusBadRequest)
				return
			}
			var req types.ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if req.Content == "" {
				http.Error(w, "content is required", http.StatusBadRequest)
				return
			}
			resp, err := ctrl.SendMessage(r.Context(), userID, sessionID, req)
			if err != nil {
				writeChatError(w, err)
				return
			}
			json.NewEncoder(w).Encode(resp)
		})

		// GET /chat/sessions/{session_id} : fetch one session
		gr.Get("/sessions/{session_id}", func(w http.ResponseWriter, r *http.Request) {
			userID := middlewares.UserID(r)
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				http.Error(w, "invalid session id", http.StatusBadRequest)
				return
			}
			session, err := ctrl.GetSession(r.Context(), userID, sessionID)
			if err != nil {
				writeChatError(w, err)
				return
			}
			json.NewEncoder(w).Encode(session)
		})

		// GET /chat/sessions/{session_id}/history : full message history
		gr.Get("/sessions/{session_id}/history", func(w http.ResponseWriter, r *http.Request) {
			userID := middlewares.UserID(r)
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				http.Error(w, "invalid session id", http.StatusBadRequest)
				return
			}
			msgs, err := ctrl.GetMessages(r.Context(), userID, sessionID)
			if err != nil {
				writeChatError(w, err)
				return
			}
			json.NewEncoder(w).Encode(msgs)
		})

		// POST /chat/sessions/{session_id}/analyze : queue full-session
		// analysis
		gr.Post("/sessions/{session_id}/analyze", func(w http.ResponseWriter, r *http.Request) {
			userID := middlewares.UserID(r)
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				http.Error(w, "invalid session id", http.StatusBadRequest)
				return
			}
			eventID, err := ctrl.RequestAnalysis(r.Context(), userID, sessionID)
			if err != nil {
				writeChatError(w, err)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"event_id": eventID})
		})

		// DELETE /chat/sessions/{session_id} : delete one session (thread)
		gr.Delete("/sessions/{session_id}", func(w http.ResponseWriter, r *http.Request) {
			userID := middlewares.UserID(r)
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				http.Error(w, "invalid session id", http.StatusBadRequest)
				return
			}
			if err := ctrl.DeleteSession(r.Context(), userID, sessionID); err != nil {
				writeChatError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	// websocket variant: streams step progress frames, then the final result
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx := r.Context()
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "unsupported data")
			return
		}
		var input struct {
			UserID      string            `json:"user_id"`
			SessionID   string            `json:"session_id"`
			ChatRequest types.ChatRequest `json:"chat_request"`
		}
		if err := json.Unmarshal(data, &input); err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid json"}`))
			return
		}
		userID, err := uuid.Parse(input.UserID)
		if err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid user_id"}`))
			conn.Close(websocket.StatusPolicyViolation, "invalid user_id")
			return
		}
		sessionID, err := uuid.Parse(input.SessionID)
		if err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid session_id"}`))
			conn.Close(websocket.StatusPolicyViolation, "invalid session_id")
			return
		}

		observer := func(update pipeline.StepUpdate) {
			frame, err := json.Marshal(map[string]string{
				"type": "step",
				"run":  update.RunID,
				"step": update.Step,
			})
			if err != nil {
				return
			}
			conn.Write(ctx, websocket.MessageText, frame)
		}

		resp, err := ctrl.SendMessageObserved(ctx, userID, sessionID, input.ChatRequest, observer)
		if err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"`+err.Error()+`"}`))
			conn.Close(websocket.StatusInternalError, "processing error")
			return
		}
		final, err := json.Marshal(map[string]interface{}{
			"type":   "result",
			"result": resp,
		})
		if err != nil {
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, final); err != nil {
			return
		}
		conn.Close(websocket.StatusNormalClosure, "")
	})
	return r
}

func writeChatError(w http.ResponseWriter, err error) {
	if errors.Is(err, dao.ErrSessionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
